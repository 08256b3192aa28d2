// Package model содержит доменные сущности сервиса промокодов.
package model

import "time"

// PromotionType описывает тип скидки промокода.
// Значения соответствуют бизнес-словарю API магазина.
type PromotionType string

const (
	// TypePercentage — скидка в процентах от суммы корзины (0–100).
	TypePercentage PromotionType = "pourcentage"
	// TypeFixedAmount — фиксированная скидка в валюте магазина.
	TypeFixedAmount PromotionType = "montant"
)

// Promotion представляет промокод, выданный магазином.
type Promotion struct {
	ID           int64
	Code         string
	Name         string
	Description  string
	Type         PromotionType
	Value        float64
	StartDate    time.Time
	EndDate      time.Time
	MaxUses      *int
	CurrentUses  int
	MinAmount    *float64
	FreeShipping bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidationResult описывает результат проверки промокода для заданной суммы заказа.
// При Valid == false Promotion равен nil, а Message содержит причину отказа.
type ValidationResult struct {
	Valid     bool       `json:"valid"`
	Promotion *Promotion `json:"-"`
	Message   string     `json:"message"`
}

// PricingResult содержит денежный эффект применённого промокода для заданной суммы.
type PricingResult struct {
	Discount     float64 `json:"discount"`
	NewTotal     float64 `json:"new_total"`
	FreeShipping bool    `json:"free_shipping"`
}

// CartItem описывает позицию корзины. Движок цен использует только
// цену и количество, остальные поля нужны витрине.
type CartItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"nom"`
	Price    float64 `json:"prix"`
	Quantity int     `json:"quantite"`
	Size     string  `json:"taille,omitempty"`
	Color    string  `json:"couleur,omitempty"`
}

// Quote содержит полную раскладку стоимости заказа для отображения.
type Quote struct {
	Subtotal     float64    `json:"sous_total"`
	Discount     float64    `json:"remise"`
	NewTotal     float64    `json:"total_apres_remise"`
	FreeShipping bool       `json:"livraison_gratuite"`
	ShippingFee  float64    `json:"frais_livraison"`
	Total        float64    `json:"total"`
	Promotion    *Promotion `json:"-"`
}
