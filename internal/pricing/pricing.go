// Package pricing содержит чистые функции расчёта скидки и итоговой стоимости заказа.
package pricing

import (
	"math"

	"github.com/mmeshcher/promo-system/internal/model"
)

// Параметры доставки по умолчанию: фиксированная стоимость и порог суммы,
// выше которого доставка бесплатна.
const (
	DefaultFlatShippingFee       = 5.99
	DefaultFreeShippingThreshold = 50
)

// Shipping описывает правила расчёта стоимости доставки.
type Shipping struct {
	FlatFee       float64
	FreeThreshold float64
}

// DefaultShipping возвращает правила доставки магазина по умолчанию.
func DefaultShipping() Shipping {
	return Shipping{
		FlatFee:       DefaultFlatShippingFee,
		FreeThreshold: DefaultFreeShippingThreshold,
	}
}

// ComputeDiscount вычисляет скидку для указанной суммы корзины.
// Скидка никогда не превышает сумму, итог никогда не уходит в минус.
// Функция чистая: nil-промокод означает отсутствие скидки.
func ComputeDiscount(p *model.Promotion, subtotal float64) model.PricingResult {
	if p == nil {
		return model.PricingResult{
			Discount: 0,
			NewTotal: subtotal,
		}
	}

	var discount float64
	switch p.Type {
	case model.TypePercentage:
		discount = p.Value / 100 * subtotal
	case model.TypeFixedAmount:
		discount = p.Value
	}

	discount = math.Min(discount, subtotal)

	return model.PricingResult{
		Discount:     discount,
		NewTotal:     math.Max(0, subtotal-discount),
		FreeShipping: p.FreeShipping,
	}
}

// Fee возвращает стоимость доставки для рассчитанной корзины.
// Доставка бесплатна при соответствующем промокоде либо когда сумма
// после скидки превышает порог.
func (s Shipping) Fee(res model.PricingResult) float64 {
	if res.FreeShipping || res.NewTotal > s.FreeThreshold {
		return 0
	}
	return s.FlatFee
}

// GrandTotal возвращает итоговую сумму к оплате: сумма после скидки плюс доставка.
// Это единственное место, где складываются скидка и доставка, — все
// отображающие слои обязаны использовать именно его.
func (s Shipping) GrandTotal(res model.PricingResult) float64 {
	return res.NewTotal + s.Fee(res)
}

// Subtotal возвращает сумму корзины до скидки и доставки.
func Subtotal(items []model.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}

// Round2 округляет денежную величину до двух знаков. Применяется только
// на границе отображения, промежуточные расчёты не округляются.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
