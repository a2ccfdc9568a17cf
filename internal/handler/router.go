package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/efreitasn/marketmatch/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. gatherer backs GET /metrics.
func NewRouter(
	partySvc *service.PartyService,
	instrumentSvc *service.InstrumentService,
	orderSvc *service.OrderService,
	webhookSvc *service.WebhookService,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	partyH := NewPartyHandler(partySvc, orderSvc)
	instrumentH := NewInstrumentHandler(instrumentSvc)
	orderH := NewOrderHandler(orderSvc)
	webhookH := NewWebhookHandler(webhookSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Party routes.
	r.Post("/parties", partyH.Register)
	r.Get("/parties/{party_id}/orders", partyH.ListOrders)

	// Instrument routes.
	r.Post("/instruments", instrumentH.Create)
	r.Get("/instruments", instrumentH.List)
	r.Get("/instruments/{symbol}", instrumentH.Get)
	r.Get("/instruments/{symbol}/book", instrumentH.GetBook)
	r.Get("/instruments/{symbol}/sessions", instrumentH.ListSessions)
	r.Post("/instruments/{symbol}/clear", instrumentH.Clear)

	// Order routes.
	r.Post("/orders", orderH.SubmitOrder)
	r.Get("/orders/{order_id}", orderH.GetOrder)
	r.Delete("/orders/{order_id}", orderH.CancelOrder)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH bodies that are not sent as
// JSON with 400 before the handler runs. Bodiless calls such as
// POST /instruments/{symbol}/clear pass through.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasBody := r.ContentLength != 0
		if hasBody && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
			if !isJSON(r.Header.Get("Content-Type")) {
				writeInvalidRequest(w, errNotJSON)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
