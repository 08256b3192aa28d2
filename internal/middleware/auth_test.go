package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAdminAuth_WithValidCookie(t *testing.T) {
	m := NewAdminAuth("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/promotions", nil)

	m.SetAuthCookie(w)
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAdminAuth_WithoutCookie(t *testing.T) {
	m := NewAdminAuth("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/promotions", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAdminAuth_ExpiredToken(t *testing.T) {
	m := NewAdminAuth("test-secret")

	issued := httptest.NewRecorder()
	m.SetAuthCookie(issued)
	cookie := issued.Result().Cookies()[0]

	// Сдвигаем часы за срок действия токена.
	m.now = func() time.Time { return time.Now().Add(adminCookieTTL + time.Hour) }

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called for expired token")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/promotions", nil)
	r.AddCookie(cookie)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAdminAuth_TamperedToken(t *testing.T) {
	m := NewAdminAuth("test-secret")
	other := NewAdminAuth("other-secret")

	issued := httptest.NewRecorder()
	other.SetAuthCookie(issued)
	cookie := issued.Result().Cookies()[0]

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/promotions", nil)
	r.AddCookie(cookie)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called for foreign signature")
	})

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}
