package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	custommiddleware "github.com/mmeshcher/promo-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса промокодов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	if h.allowedOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{h.allowedOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/promotions/validate", h.ValidatePromotion)
		r.Get("/promotions/active", h.GetActivePromotions)
		r.Post("/checkout/quote", h.QuoteCheckout)

		r.Post("/admin/login", h.AdminLogin)
		r.Post("/admin/logout", h.AdminLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.adminAuth.Middleware)

			r.Get("/promotions", h.ListPromotions)
			r.Post("/promotions", h.CreatePromotion)
			r.Get("/promotions/{id}", h.GetPromotion)
			r.Put("/promotions/{id}", h.UpdatePromotion)
			r.Delete("/promotions/{id}", h.DeletePromotion)
			r.Patch("/promotions/{id}/toggle", h.TogglePromotion)
			r.Post("/promotions/redeem/{code}", h.RedeemPromotion)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
