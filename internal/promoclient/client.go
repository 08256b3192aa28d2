// Package promoclient предоставляет HTTP-клиент API промокодов для витрины.
package promoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/promo-system/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с сервисом промокодов.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
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

// NewClient создаёт клиент сервиса промокодов по указанному адресу.
// Временные сбои сети и ответы 5xx повторяются автоматически.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
	}
}

func (c *Client) url(path string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("promo client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return base + path, nil
}

// ValidateCode проверяет промокод для указанной суммы заказа.
// Отказ сервера (valid == false) — обычный результат, а не ошибка.
func (c *Client) ValidateCode(ctx context.Context, code string, total float64) (*model.ValidationResult, error) {
	url, err := c.url("/api/promotions/validate")
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(validateRequest{Code: code, Total: total})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var payload validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	res := &model.ValidationResult{
		Valid:   payload.Valid,
		Message: payload.Message,
	}
	if payload.Promotion != nil {
		res.Promotion = payload.Promotion.toModel()
	}

	return res, nil
}

// GetActive возвращает список активных промокодов магазина.
func (c *Client) GetActive(ctx context.Context) ([]model.Promotion, error) {
	url, err := c.url("/api/promotions/active")
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var payload []promotionPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	promotions := make([]model.Promotion, 0, len(payload))
	for _, p := range payload {
		promotions = append(promotions, *p.toModel())
	}

	return promotions, nil
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
		CurrentUses:  p.CurrentUses,
		MinAmount:    p.MinAmount,
		FreeShipping: p.FreeShipping,
		Active:       p.Active,
	}
}
