package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gitlab.com/yelinaung/subday/internal/logger"
)

// RequestTimeout bounds every request.
const RequestTimeout = 60 * time.Second

// NewRouter registers the API routes. Everything under /api/v1 requires a
// bearer token. Cross-origin requests are only allowed from allowedOrigins;
// with none configured the API is same-origin only.
func NewRouter(h *Handler, auth *Authenticator, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.listSubscriptions)
			r.Post("/", h.addSubscription)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", h.updateSubscription)
				r.Delete("/", h.deleteSubscription)
				r.Post("/cancel", h.cancelSubscription)
				r.Post("/reminder", h.setReminder)
				r.Post("/retry", h.retrySubscription)
				r.Post("/revert", h.revertSubscription)
				r.Get("/cancel-guide", h.cancelGuide)
			})
		})

		r.Get("/calendar", h.calendar)
		r.Get("/due", h.due)
		r.Get("/due-soon", h.dueSoon)
		r.Get("/stats", h.stats)
		r.Get("/stats/categories.png", h.categoryChart)
		r.Get("/stats/forecast.png", h.forecastChart)
		r.Get("/export.csv", h.exportCSV)
		r.Get("/presets", h.presets)

		r.Get("/preferences", h.getPreferences)
		r.Put("/preferences", h.putPreferences)

		r.Route("/assistant", func(r chi.Router) {
			r.Post("/chat", h.chat)
			r.Post("/negotiate", h.negotiate)
			r.Post("/extract", h.extract)
		})
	})

	return otelhttp.NewHandler(r, "subday")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := logger.Log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			event = logger.Log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
