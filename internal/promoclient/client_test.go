package promoclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/promo-system/internal/model"
)

func TestValidateCode_Valid(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/promotions/validate" {
			t.Fatalf("path = %s, want /api/promotions/validate", r.URL.Path)
		}

		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Code != "SUMMER10" {
			t.Fatalf("code = %s, want SUMMER10", req.Code)
		}
		if req.Total != 100 {
			t.Fatalf("total = %v, want 100", req.Total)
		}

		resp := validateResponse{
			Valid:   true,
			Message: "Code promo appliqué",
			Promotion: &promotionPayload{
				ID:        1,
				Code:      "SUMMER10",
				Name:      "Soldes d'été",
				Type:      model.TypePercentage,
				Value:     10,
				StartDate: time.Now().Add(-time.Hour),
				EndDate:   time.Now().Add(time.Hour),
				Active:    true,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.ValidateCode(ctx, "SUMMER10", 100)
	if err != nil {
		t.Fatalf("ValidateCode error: %v", err)
	}
	if !res.Valid {
		t.Fatalf("expected valid result, got %+v", res)
	}
	if res.Promotion == nil || res.Promotion.Code != "SUMMER10" {
		t.Fatalf("unexpected promotion: %+v", res.Promotion)
	}
	if res.Promotion.Type != model.TypePercentage || res.Promotion.Value != 10 {
		t.Fatalf("unexpected promotion payload: %+v", res.Promotion)
	}
}

func TestValidateCode_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := validateResponse{
			Valid:   false,
			Message: "Code promo invalide",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := client.ValidateCode(ctx, "NOPE", 100)
	if err != nil {
		t.Fatalf("rejection must not be an error: %v", err)
	}
	if res.Valid {
		t.Fatalf("expected invalid result")
	}
	if res.Promotion != nil {
		t.Fatalf("rejected result must not carry promotion: %+v", res.Promotion)
	}
	if res.Message != "Code promo invalide" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestValidateCode_ServerErrorRetriedThenFails(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	client.httpClient.RetryMax = 1
	client.httpClient.RetryWaitMin = time.Millisecond
	client.httpClient.RetryWaitMax = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.ValidateCode(ctx, "SUMMER10", 100)
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
	if calls < 2 {
		t.Fatalf("calls = %d, want at least one retry", calls)
	}
}

func TestGetActive_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/promotions/active" {
			t.Fatalf("path = %s, want /api/promotions/active", r.URL.Path)
		}

		payload := []promotionPayload{
			{ID: 1, Code: "SUMMER10", Type: model.TypePercentage, Value: 10, Active: true},
			{ID: 2, Code: "LIVRAISON", Type: model.TypeFixedAmount, Value: 0, FreeShipping: true, Active: true},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	promotions, err := client.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive error: %v", err)
	}
	if len(promotions) != 2 {
		t.Fatalf("len = %d, want 2", len(promotions))
	}
	if promotions[1].Code != "LIVRAISON" || !promotions[1].FreeShipping {
		t.Fatalf("unexpected promotion: %+v", promotions[1])
	}
}

func TestClient_NotConfigured(t *testing.T) {
	var client *Client

	_, err := client.ValidateCode(context.Background(), "SUMMER10", 100)
	if err == nil {
		t.Fatalf("expected error for unconfigured client")
	}
}
