// Package promo реализует сессионный движок применения промокодов.
//
// Движок хранит единственный применённый промокод на время сессии
// оформления заказа, проверяет новые коды через внешний валидатор и
// детерминированно считает скидку для любой суммы корзины.
package promo

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/promo-system/internal/model"
	"github.com/mmeshcher/promo-system/internal/pricing"
)

// Validator описывает внешнюю проверку промокода для заданной суммы заказа.
// Контракт реализуют и HTTP-клиент бэкенда, и сам сервис промокодов.
type Validator interface {
	ValidateCode(ctx context.Context, code string, total float64) (*model.ValidationResult, error)
}

// Engine хранит применённый промокод и обращается к валидатору за проверкой новых.
// Одновременно применён не более чем один промокод: успешная проверка
// замещает предыдущий, неуспешная не меняет состояние.
type Engine struct {
	validator Validator
	logger    *zap.Logger

	mu      sync.Mutex
	applied *model.Promotion
	seq     uint64
}

// NewEngine создаёт движок промокодов поверх указанного валидатора.
func NewEngine(v Validator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		validator: v,
		logger:    logger,
	}
}

// Validate проверяет код для указанной суммы корзины и при успехе применяет его.
// Пустой код отклоняется локально, без обращения к валидатору. Ошибки
// транспорта превращаются в общий отказ с сообщением для пользователя и
// наружу не выходят. Ответ устаревшего вызова, разрешившийся после более
// нового Validate или Clear, возвращается вызывающему, но состояние не меняет.
func (e *Engine) Validate(ctx context.Context, code string, subtotal float64) *model.ValidationResult {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return &model.ValidationResult{
			Valid:   false,
			Message: "Veuillez saisir un code promo",
		}
	}

	e.mu.Lock()
	e.seq++
	token := e.seq
	e.mu.Unlock()

	res, err := e.validator.ValidateCode(ctx, code, subtotal)
	if err != nil {
		e.logger.Error("validate promo code", zap.Error(err), zap.String("code", code))
		return &model.ValidationResult{
			Valid:   false,
			Message: "Impossible de valider le code promo",
		}
	}

	if res.Valid && res.Promotion != nil {
		e.mu.Lock()
		if token == e.seq {
			e.applied = res.Promotion
		}
		e.mu.Unlock()
	}

	return res
}

// Clear снимает применённый промокод. Идемпотентна.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.seq++
	e.applied = nil
	e.mu.Unlock()
}

// Applied возвращает применённый промокод либо nil.
func (e *Engine) Applied() *model.Promotion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// ComputeDiscount считает скидку применённого промокода для указанной суммы.
// Без побочных эффектов, безопасно вызывать на каждую отрисовку.
func (e *Engine) ComputeDiscount(subtotal float64) model.PricingResult {
	return pricing.ComputeDiscount(e.Applied(), subtotal)
}
