// Package checkout собирает из корзины, промокода и правил доставки
// итоговую стоимость заказа.
package checkout

import (
	"context"

	"github.com/mmeshcher/promo-system/internal/model"
	"github.com/mmeshcher/promo-system/internal/pricing"
	"github.com/mmeshcher/promo-system/internal/promo"
)

// Checkout объединяет движок промокодов и правила доставки для одной
// сессии оформления заказа. Корзина и страница заказа обязаны получать
// раскладку стоимости только отсюда.
type Checkout struct {
	engine   *promo.Engine
	shipping pricing.Shipping
}

// New создаёт сессию оформления заказа.
func New(engine *promo.Engine, shipping pricing.Shipping) *Checkout {
	return &Checkout{
		engine:   engine,
		shipping: shipping,
	}
}

// ApplyCode проверяет промокод для текущей корзины и при успехе применяет его.
func (c *Checkout) ApplyCode(ctx context.Context, code string, items []model.CartItem) *model.ValidationResult {
	return c.engine.Validate(ctx, code, pricing.Subtotal(items))
}

// RemoveCode снимает применённый промокод.
func (c *Checkout) RemoveCode() {
	c.engine.Clear()
}

// Quote возвращает раскладку стоимости корзины: сумма, скидка, доставка, итог.
func (c *Checkout) Quote(items []model.CartItem) model.Quote {
	subtotal := pricing.Subtotal(items)
	res := c.engine.ComputeDiscount(subtotal)

	return model.Quote{
		Subtotal:     subtotal,
		Discount:     res.Discount,
		NewTotal:     res.NewTotal,
		FreeShipping: res.FreeShipping,
		ShippingFee:  c.shipping.Fee(res),
		Total:        c.shipping.GrandTotal(res),
		Promotion:    c.engine.Applied(),
	}
}
