// Package handler содержит HTTP-обработчики API сервиса промокодов.
package handler

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/promo-system/internal/checkout"
	"github.com/mmeshcher/promo-system/internal/middleware"
	"github.com/mmeshcher/promo-system/internal/model"
	"github.com/mmeshcher/promo-system/internal/pricing"
	"github.com/mmeshcher/promo-system/internal/promo"
	"github.com/mmeshcher/promo-system/internal/repository"
	"github.com/mmeshcher/promo-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ValidateCode(ctx context.Context, code string, total float64) (*model.ValidationResult, error)
	RedeemCode(ctx context.Context, code string) error
	CreatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error)
	UpdatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error)
	DeletePromotion(ctx context.Context, id int64) error
	SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error)
	GetPromotion(ctx context.Context, id int64) (*model.Promotion, error)
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	ListActivePromotions(ctx context.Context) ([]model.Promotion, error)
}

// Handler реализует HTTP-обработчики API сервиса промокодов.
type Handler struct {
	service       Service
	logger        *zap.Logger
	adminAuth     *middleware.AdminAuth
	adminPassword string
	shipping      pricing.Shipping
	allowedOrigin string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AdminAuth, adminPassword string, shipping pricing.Shipping, allowedOrigin string) *Handler {
	return &Handler{
		service:       s,
		logger:        logger,
		adminAuth:     auth,
		adminPassword: adminPassword,
		shipping:      shipping,
		allowedOrigin: allowedOrigin,
	}
}

// promotionPayload описывает промокод в формате API магазина.
type promotionPayload struct {
	ID           int64               `json:"id"`
	Code         string              `json:"code"`
	Name         string              `json:"nom"`
	Description  string              `json:"description,omitempty"`
	Type         model.PromotionType `json:"type"`
	Value        float64             `json:"valeur"`
	StartDate    time.Time           `json:"date_debut"`
	EndDate      time.Time           `json:"date_fin"`
	MaxUses      *int                `json:"utilisation_max,omitempty"`
	CurrentUses  int                 `json:"utilisation_actuelle"`
	MinAmount    *float64            `json:"montant_min,omitempty"`
	FreeShipping bool                `json:"livraison_gratuite"`
	Active       bool                `json:"active"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func toPayload(p *model.Promotion) *promotionPayload {
	return &promotionPayload{
		ID:           p.ID,
		Code:         p.Code,
		Name:         p.Name,
		Description:  p.Description,
		Type:         p.Type,
		Value:        p.Value,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		MaxUses:      p.MaxUses,
		CurrentUses:  p.CurrentUses,
		MinAmount:    p.MinAmount,
		FreeShipping: p.FreeShipping,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (p *promotionPayload) toModel() *model.Promotion {
	return &model.Promotion{
		ID:           p.ID,
		Code:         p.Code,
		Name:         p.Name,
		Description:  p.Description,
		Type:         p.Type,
		Value:        p.Value,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		MaxUses:      p.MaxUses,
		MinAmount:    p.MinAmount,
		FreeShipping: p.FreeShipping,
		Active:       p.Active,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

type validateRequest struct {
	Code  string  `json:"code"`
	Total float64 `json:"total"`
}

type validateResponse struct {
	Valid     bool              `json:"valid"`
	Promotion *promotionPayload `json:"promotion,omitempty"`
	Message   string            `json:"message"`
}

// ValidatePromotion проверяет промокод для указанной суммы заказа.
// Отказ по бизнес-правилам отдаётся со статусом 200 и valid == false.
func (h *Handler) ValidatePromotion(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Total < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.ValidateCode(r.Context(), req.Code, req.Total)
	if err != nil {
		h.logger.Error("validate promotion error", zap.Error(err), zap.String("code", req.Code))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := validateResponse{
		Valid:   res.Valid,
		Message: res.Message,
	}
	if res.Promotion != nil {
		resp.Promotion = toPayload(res.Promotion)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetActivePromotions возвращает действующие промокоды для витрины.
func (h *Handler) GetActivePromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.ListActivePromotions(r.Context())
	if err != nil {
		h.logger.Error("list active promotions error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]*promotionPayload, 0, len(promotions))
	for i := range promotions {
		resp = append(resp, toPayload(&promotions[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type quoteRequest struct {
	Items []model.CartItem `json:"articles"`
	Code  string           `json:"code_promo,omitempty"`
}

type quoteResponse struct {
	model.Quote
	Promotion *promotionPayload `json:"promotion,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// QuoteCheckout считает раскладку стоимости корзины: сумму, скидку,
// доставку и итог. Единая точка расчёта для корзины и страницы заказа.
func (h *Handler) QuoteCheckout(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	for _, it := range req.Items {
		if it.Price < 0 || it.Quantity < 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	session := checkout.New(promo.NewEngine(h.service, h.logger), h.shipping)

	var message string
	if req.Code != "" {
		res := session.ApplyCode(r.Context(), req.Code, req.Items)
		message = res.Message
	}

	quote := session.Quote(req.Items)

	resp := quoteResponse{
		Quote:   quote,
		Message: message,
	}
	if quote.Promotion != nil {
		resp.Promotion = toPayload(quote.Promotion)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Password string `json:"password"`
}

// AdminLogin открывает сессию администратора по паролю.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if h.adminPassword == "" || !hmac.Equal([]byte(req.Password), []byte(h.adminPassword)) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.adminAuth.SetAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// AdminLogout завершает сессию администратора.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.adminAuth.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// ListPromotions возвращает все промокоды для админки.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.ListPromotions(r.Context())
	if err != nil {
		h.logger.Error("list promotions error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]*promotionPayload, 0, len(promotions))
	for i := range promotions {
		resp = append(resp, toPayload(&promotions[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// CreatePromotion создаёт новый промокод.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	created, err := h.service.CreatePromotion(r.Context(), req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPromotion):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrPromotionExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("create promotion error", zap.Error(err), zap.String("code", req.Code))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toPayload(created))
}

func promotionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// GetPromotion возвращает промокод по идентификатору.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.GetPromotion(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get promotion error", zap.Error(err), zap.Int64("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toPayload(p))
}

// UpdatePromotion обновляет промокод по идентификатору.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req promotionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p := req.toModel()
	p.ID = id

	updated, err := h.service.UpdatePromotion(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPromotion):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrPromotionNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrPromotionExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("update promotion error", zap.Error(err), zap.Int64("id", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toPayload(updated))
}

// DeletePromotion удаляет промокод по идентификатору.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeletePromotion(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete promotion error", zap.Error(err), zap.Int64("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type toggleRequest struct {
	Active bool `json:"active"`
}

// TogglePromotion включает или выключает промокод.
func (h *Handler) TogglePromotion(w http.ResponseWriter, r *http.Request) {
	id, err := promotionID(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	p, err := h.service.SetPromotionActive(r.Context(), id, req.Active)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("toggle promotion error", zap.Error(err), zap.Int64("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toPayload(p))
}

// RedeemPromotion расходует одно использование промокода при оформлении заказа.
func (h *Handler) RedeemPromotion(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	err := h.service.RedeemCode(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPromotion):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrPromotionNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrPromotionExhausted):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("redeem promotion error", zap.Error(err), zap.String("code", code))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}
