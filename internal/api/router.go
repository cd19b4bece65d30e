package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(h *Handler, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests(logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/topics", h.Topics).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(requireUser)
	protected.HandleFunc("/session", h.GetSession).Methods("GET")
	protected.HandleFunc("/session", h.DeleteSession).Methods("DELETE")
	protected.HandleFunc("/session/start", h.Start).Methods("POST")
	protected.HandleFunc("/session/answer", h.Answer).Methods("POST")
	protected.HandleFunc("/session/goto", h.GoTo).Methods("POST")
	protected.HandleFunc("/session/finish", h.Finish).Methods("POST")
	protected.HandleFunc("/progress", h.Progress).Methods("GET")
	protected.HandleFunc("/theory", h.ConfirmTheory).Methods("POST")

	return r
}

// NewServer wraps the router with CORS for the given origins.
func NewServer(h *Handler, logger *slog.Logger, origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", UserHeader},
	})
	return c.Handler(NewRouter(h, logger))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if logger != nil {
				logger.Debug("request",
					"method", r.Method, "path", r.URL.Path, "status", rec.status,
					"duration", time.Since(start))
			}
		})
	}
}
