package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tundeajala/bookhaven-payments/api/controllers"
	webhookcontrollers "github.com/tundeajala/bookhaven-payments/api/controllers/webhooks"
	"github.com/tundeajala/bookhaven-payments/api/middleware"
	"github.com/tundeajala/bookhaven-payments/pkg/config"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
)

// RouterParams carries the wired dependencies for the HTTP surface.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	HealthDeps  map[string]controllers.Pinger
	Payouts     controllers.PayoutLister
	NOWPayments webhookcontrollers.Deps
	Paystack    webhookcontrollers.Deps
}

func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(params.Config))
		r.Get("/ready", controllers.HealthReady(params.Config, params.Logger, params.HealthDeps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/nowpayments", webhookcontrollers.NOWPaymentsIPN(params.NOWPayments))
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(params.Paystack))
	})

	r.Route("/api/v1/payouts", func(r chi.Router) {
		r.Get("/failed", controllers.FailedPayoutSplits(params.Logger, params.Payouts))
	})

	return r
}
