package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the chi router.
//
// Routes:
//   - GET /health                       liveness, unauthenticated
//   - POST /api/1.0/share/create        CreateShare
//   - PATCH|POST /api/1.0/share/update  UpdateShare
//   - DELETE /api/1.0/share/delete      DeleteShare
//   - GET /api/1.0/share/info           GetSharingInfo
//   - GET /api/1.0/share/partners       FindSharePartners
//
// Everything under /api requires a bearer access token.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	// order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.Get("/health", s.health)

	r.Route("/api/1.0/share", func(r chi.Router) {
		r.Use(s.accessTokenMiddleware)

		r.Post("/create", s.createShare)
		r.Patch("/update", s.updateShare)
		r.Post("/update", s.updateShare)
		r.Delete("/delete", s.deleteShare)
		r.Get("/info", s.sharingInfo)
		r.Get("/partners", s.sharePartners)
	})

	return r
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		s.logger.Debug(r.Context(), "API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info(r.Context(), "API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
