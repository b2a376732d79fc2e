package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/zaryo/zaryo-backend/internal/api/handlers"
	"github.com/zaryo/zaryo-backend/internal/config"
	"github.com/zaryo/zaryo-backend/internal/metrics"
	"github.com/zaryo/zaryo-backend/internal/middleware"
)

type Deps struct {
	Cfg         config.Config
	Auth        *handlers.AuthHandler
	Accounts    *handlers.AccountsHandler
	Checkout    *handlers.CheckoutHandler
	Redemptions *handlers.RedemptionsHandler
	Webhook     *handlers.WebhookHandler
	AuthMW      *middleware.AuthMiddleware
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	// Gateway callbacks authenticate by signature, not by bearer token.
	r.Post("/webhooks/payment", d.Webhook.HandlePayment)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/login", d.Auth.Login)
		r.Post("/auth/refresh", d.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.Get("/accounts/{id}", d.Accounts.Get)
			r.Get("/accounts/{id}/transactions", d.Accounts.Transactions)
			r.Get("/transactions/{id}", d.Accounts.GetTransaction)

			r.Post("/products", d.Checkout.CreateProduct)
			r.Get("/products/{id}", d.Checkout.GetProduct)
			r.Post("/checkout", d.Checkout.Purchase)
			r.Get("/orders/{id}", d.Checkout.GetOrder)

			r.Post("/redemptions", d.Redemptions.Create)
			r.Get("/redemptions/{id}", d.Redemptions.Get)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/redemptions", d.Redemptions.List)
				r.Post("/redemptions/{id}/approve", d.Redemptions.Approve)
				r.Post("/redemptions/{id}/reject", d.Redemptions.Reject)
				r.Post("/redemptions/{id}/complete", d.Redemptions.Complete)
			})
		})
	})

	return r
}
