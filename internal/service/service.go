// Package service реализует бизнес-логику сервиса промокодов.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/promo-system/internal/model"
	"github.com/mmeshcher/promo-system/internal/repository"
	"github.com/mmeshcher/promo-system/internal/validation"
)

// ErrInvalidPromotion возвращается при некорректных данных промокода.
var ErrInvalidPromotion = errors.New("invalid promotion")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error)
	GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error)
	GetPromotionByID(ctx context.Context, id int64) (*model.Promotion, error)
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	ListActivePromotions(ctx context.Context, now time.Time) ([]model.Promotion, error)
	UpdatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error)
	DeletePromotion(ctx context.Context, id int64) error
	SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error)
	IncrementPromotionUses(ctx context.Context, code string) error
}

// Service содержит бизнес-логику работы с промокодами.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService создаёт новый сервис поверх указанного репозитория.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode проверяет промокод для указанной суммы заказа.
// Отказ по бизнес-правилам — не ошибка: возвращается результат с
// Valid == false и причиной на языке магазина. Ошибка возвращается
// только при сбое хранилища.
func (s *Service) ValidateCode(ctx context.Context, code string, total float64) (*model.ValidationResult, error) {
	code = normalizeCode(code)
	if code == "" {
		return &model.ValidationResult{Valid: false, Message: "Veuillez saisir un code promo"}, nil
	}

	p, err := s.repo.GetPromotionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return &model.ValidationResult{Valid: false, Message: "Code promo invalide"}, nil
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}

	now := s.now()

	switch {
	case !p.Active:
		return &model.ValidationResult{Valid: false, Message: "Ce code promo n'est plus actif"}, nil
	case now.Before(p.StartDate):
		return &model.ValidationResult{Valid: false, Message: "Ce code promo n'est pas encore valide"}, nil
	case now.After(p.EndDate):
		return &model.ValidationResult{Valid: false, Message: "Ce code promo a expiré"}, nil
	case p.MaxUses != nil && p.CurrentUses >= *p.MaxUses:
		return &model.ValidationResult{Valid: false, Message: "Ce code promo a atteint sa limite d'utilisation"}, nil
	case p.MinAmount != nil && total < *p.MinAmount:
		return &model.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("Montant minimum de %.2f € requis pour ce code", *p.MinAmount),
		}, nil
	}

	return &model.ValidationResult{
		Valid:     true,
		Promotion: p,
		Message:   fmt.Sprintf("Code promo %s appliqué", p.Code),
	}, nil
}

// RedeemCode расходует одно использование промокода при оформлении заказа.
func (s *Service) RedeemCode(ctx context.Context, code string) error {
	code = normalizeCode(code)
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidPromotion)
	}
	return s.repo.IncrementPromotionUses(ctx, code)
}

func checkPromotion(p *model.Promotion) error {
	if !validation.IsValidPromoCode(p.Code) {
		return fmt.Errorf("%w: malformed code %q", ErrInvalidPromotion, p.Code)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPromotion)
	}
	if p.Type != model.TypePercentage && p.Type != model.TypeFixedAmount {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidPromotion, p.Type)
	}
	if p.Value < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidPromotion)
	}
	if p.Type == model.TypePercentage && p.Value > 100 {
		return fmt.Errorf("%w: percentage above 100", ErrInvalidPromotion)
	}
	if !p.EndDate.After(p.StartDate) {
		return fmt.Errorf("%w: date_fin must be after date_debut", ErrInvalidPromotion)
	}
	if p.MaxUses != nil && *p.MaxUses <= 0 {
		return fmt.Errorf("%w: utilisation_max must be positive", ErrInvalidPromotion)
	}
	if p.MinAmount != nil && *p.MinAmount < 0 {
		return fmt.Errorf("%w: negative montant_min", ErrInvalidPromotion)
	}
	return nil
}

// CreatePromotion создаёт новый промокод.
func (s *Service) CreatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	p.Code = normalizeCode(p.Code)
	if err := checkPromotion(p); err != nil {
		return nil, err
	}
	return s.repo.CreatePromotion(ctx, p)
}

// UpdatePromotion обновляет существующий промокод.
func (s *Service) UpdatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	p.Code = normalizeCode(p.Code)
	if err := checkPromotion(p); err != nil {
		return nil, err
	}
	return s.repo.UpdatePromotion(ctx, p)
}

// DeletePromotion удаляет промокод по идентификатору.
func (s *Service) DeletePromotion(ctx context.Context, id int64) error {
	return s.repo.DeletePromotion(ctx, id)
}

// SetPromotionActive включает или выключает промокод.
func (s *Service) SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error) {
	return s.repo.SetPromotionActive(ctx, id, active)
}

// GetPromotion возвращает промокод по идентификатору.
func (s *Service) GetPromotion(ctx context.Context, id int64) (*model.Promotion, error) {
	return s.repo.GetPromotionByID(ctx, id)
}

// ListPromotions возвращает все промокоды.
func (s *Service) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	return s.repo.ListPromotions(ctx)
}

// ListActivePromotions возвращает промокоды, действующие в данный момент.
func (s *Service) ListActivePromotions(ctx context.Context) ([]model.Promotion, error) {
	return s.repo.ListActivePromotions(ctx, s.now())
}
