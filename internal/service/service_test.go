package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/promo-system/internal/model"
	"github.com/mmeshcher/promo-system/internal/repository"
)

type stubRepo struct {
	promotions map[string]*model.Promotion

	createErr error
	created   *model.Promotion

	incrementErr   error
	incrementCalls []string
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = p
	return p, nil
}

func (s *stubRepo) GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error) {
	if p, ok := s.promotions[code]; ok {
		return p, nil
	}
	return nil, repository.ErrPromotionNotFound
}

func (s *stubRepo) GetPromotionByID(ctx context.Context, id int64) (*model.Promotion, error) {
	return nil, repository.ErrPromotionNotFound
}

func (s *stubRepo) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	return nil, nil
}

func (s *stubRepo) ListActivePromotions(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	return nil, nil
}

func (s *stubRepo) UpdatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	return p, nil
}

func (s *stubRepo) DeletePromotion(ctx context.Context, id int64) error { return nil }

func (s *stubRepo) SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error) {
	return nil, repository.ErrPromotionNotFound
}

func (s *stubRepo) IncrementPromotionUses(ctx context.Context, code string) error {
	s.incrementCalls = append(s.incrementCalls, code)
	return s.incrementErr
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func fixedTime() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

func newTestService(r *stubRepo) *Service {
	svc := NewService(r)
	svc.now = fixedTime
	return svc
}

func livePromo(code string) *model.Promotion {
	return &model.Promotion{
		ID:        1,
		Code:      code,
		Name:      "Soldes",
		Type:      model.TypePercentage,
		Value:     10,
		StartDate: fixedTime().Add(-24 * time.Hour),
		EndDate:   fixedTime().Add(24 * time.Hour),
		Active:    true,
	}
}

func TestValidateCode_Valid(t *testing.T) {
	repo := &stubRepo{promotions: map[string]*model.Promotion{
		"SUMMER10": livePromo("SUMMER10"),
	}}
	svc := newTestService(repo)

	res, err := svc.ValidateCode(context.Background(), "  summer10 ", 100)
	if err != nil {
		t.Fatalf("ValidateCode error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid, got %+v", res)
	}
	if res.Promotion == nil || res.Promotion.Code != "SUMMER10" {
		t.Fatalf("unexpected promotion: %+v", res.Promotion)
	}
}

func TestValidateCode_Rejections(t *testing.T) {
	notStarted := livePromo("FUTUR")
	notStarted.StartDate = fixedTime().Add(time.Hour)

	expired := livePromo("PASSE")
	expired.EndDate = fixedTime().Add(-time.Hour)

	inactive := livePromo("ETEINT")
	inactive.Active = false

	exhausted := livePromo("EPUISE")
	exhausted.MaxUses = intPtr(5)
	exhausted.CurrentUses = 5

	minAmount := livePromo("MIN50")
	minAmount.MinAmount = floatPtr(50)

	repo := &stubRepo{promotions: map[string]*model.Promotion{
		"FUTUR":  notStarted,
		"PASSE":  expired,
		"ETEINT": inactive,
		"EPUISE": exhausted,
		"MIN50":  minAmount,
	}}
	svc := newTestService(repo)

	tests := []struct {
		name  string
		code  string
		total float64
	}{
		{name: "empty code", code: "   ", total: 100},
		{name: "unknown code", code: "INCONNU", total: 100},
		{name: "not started yet", code: "FUTUR", total: 100},
		{name: "expired", code: "PASSE", total: 100},
		{name: "inactive", code: "ETEINT", total: 100},
		{name: "usage limit reached", code: "EPUISE", total: 100},
		{name: "below minimum amount", code: "MIN50", total: 49.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ValidateCode(context.Background(), tt.code, tt.total)
			if err != nil {
				t.Fatalf("ValidateCode error: %v", err)
			}
			if res.Valid {
				t.Fatalf("expected rejection, got %+v", res)
			}
			if res.Message == "" {
				t.Fatalf("rejection must carry a message")
			}
			if res.Promotion != nil {
				t.Fatalf("rejection must not carry promotion")
			}
		})
	}
}

func TestValidateCode_MinAmountBoundary(t *testing.T) {
	p := livePromo("MIN50")
	p.MinAmount = floatPtr(50)
	repo := &stubRepo{promotions: map[string]*model.Promotion{"MIN50": p}}
	svc := newTestService(repo)

	res, err := svc.ValidateCode(context.Background(), "MIN50", 50)
	if err != nil {
		t.Fatalf("ValidateCode error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("total equal to montant_min must pass, got %+v", res)
	}
}

func TestCreatePromotion_Validation(t *testing.T) {
	svc := newTestService(&stubRepo{})

	base := func() *model.Promotion {
		p := livePromo("NOUVEAU")
		p.ID = 0
		return p
	}

	tests := []struct {
		name   string
		mutate func(p *model.Promotion)
	}{
		{name: "malformed code", mutate: func(p *model.Promotion) { p.Code = "a b!" }},
		{name: "empty name", mutate: func(p *model.Promotion) { p.Name = "" }},
		{name: "unknown type", mutate: func(p *model.Promotion) { p.Type = "cadeau" }},
		{name: "negative value", mutate: func(p *model.Promotion) { p.Value = -1 }},
		{name: "percentage above 100", mutate: func(p *model.Promotion) { p.Value = 150 }},
		{name: "end before start", mutate: func(p *model.Promotion) { p.EndDate = p.StartDate.Add(-time.Hour) }},
		{name: "non-positive max uses", mutate: func(p *model.Promotion) { p.MaxUses = intPtr(0) }},
		{name: "negative min amount", mutate: func(p *model.Promotion) { p.MinAmount = floatPtr(-5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)

			_, err := svc.CreatePromotion(context.Background(), p)
			if !errors.Is(err, ErrInvalidPromotion) {
				t.Fatalf("err = %v, want ErrInvalidPromotion", err)
			}
		})
	}
}

func TestCreatePromotion_NormalizesCode(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	p := livePromo("NOUVEAU")
	p.Code = " nouveau-10 "

	if _, err := svc.CreatePromotion(context.Background(), p); err != nil {
		t.Fatalf("CreatePromotion error: %v", err)
	}
	if repo.created.Code != "NOUVEAU-10" {
		t.Fatalf("code = %q, want NOUVEAU-10", repo.created.Code)
	}
}

func TestCreatePromotion_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{createErr: repository.ErrPromotionExists}
	svc := newTestService(repo)

	_, err := svc.CreatePromotion(context.Background(), livePromo("DOUBLE"))
	if !errors.Is(err, repository.ErrPromotionExists) {
		t.Fatalf("err = %v, want ErrPromotionExists", err)
	}
}

func TestRedeemCode(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo)

	if err := svc.RedeemCode(context.Background(), " summer10 "); err != nil {
		t.Fatalf("RedeemCode error: %v", err)
	}
	if len(repo.incrementCalls) != 1 || repo.incrementCalls[0] != "SUMMER10" {
		t.Fatalf("increment calls = %v", repo.incrementCalls)
	}

	if err := svc.RedeemCode(context.Background(), "  "); !errors.Is(err, ErrInvalidPromotion) {
		t.Fatalf("err = %v, want ErrInvalidPromotion", err)
	}

	repo.incrementErr = repository.ErrPromotionExhausted
	if err := svc.RedeemCode(context.Background(), "SUMMER10"); !errors.Is(err, repository.ErrPromotionExhausted) {
		t.Fatalf("err = %v, want ErrPromotionExhausted", err)
	}
}
