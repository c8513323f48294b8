package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the roster API under /api.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/members", h.ListMembers)
		r.Post("/members", h.CreateMember)
		r.Delete("/members", h.ClearMembers)
		r.Get("/members/{id}", h.GetMember)
		r.Patch("/members/{id}", h.EditMember)
		r.Post("/members/{id}/deliver", h.DeliverMember)
		r.Get("/stats", h.Stats)
		r.Get("/history", h.History)
		r.Post("/import", h.Import)
		r.Get("/export.csv", h.ExportCSV)
		r.Get("/report.pdf", h.ReportPDF)
	})
	return r
}

// requestLogger tags each request with an X-Request-ID and logs its outcome.
func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"request_id":  reqID,
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("HTTP request")
		})
	}
}
