package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func NewRouter(handler *Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(Metrics)
	r.Use(Timeout)
	r.Use(CORS)

	r.Get("/healthz", handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", handler.ListProducts)
		r.Post("/products", handler.CreateProduct)
		r.Get("/products/{id}", handler.GetProduct)
		r.Patch("/products/{id}", handler.PatchProduct)
		r.Delete("/products/{id}", handler.DeleteProduct)

		r.Get("/counterparties", handler.ListCounterparties)
		r.Post("/counterparties", handler.CreateCounterparty)
		r.Get("/counterparties/{id}", handler.GetCounterparty)
		r.Patch("/counterparties/{id}", handler.PatchCounterparty)
		r.Delete("/counterparties/{id}", handler.DeleteCounterparty)

		r.Post("/purchases", handler.RecordPurchase)
		r.Post("/sales", handler.RecordSale)

		r.Get("/titles", handler.ListTitles)
		r.Post("/titles/{id}/settle", handler.SettleTitle)

		r.Get("/movements", handler.ListMovements)

		r.Get("/analytics/abc", handler.RevenueClassification)
		r.Get("/analytics/forecast", handler.DemandForecast)
		r.Get("/analytics/export", handler.ExportReports)
	})

	return r
}
