package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Quizzes      *QuizHandler
	Live         *WSHandler
	Auth         Authenticator
	Users        UserRecorder
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// NewRouter wires the quiz API under /api plus a liveness probe.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	r := mux.NewRouter()
	r.Use(accessLog(logger))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(limitBody(logger, maxBody), authenticate(cfg.Auth, cfg.Users, logger))

	h := cfg.Quizzes
	required := func(fn http.HandlerFunc) http.HandlerFunc { return requireIdentity(logger, fn) }

	api.HandleFunc("/quiz/take/{shareableId}", h.Take).Methods(http.MethodGet)
	api.HandleFunc("/quiz/take/{shareableId}/submit", required(h.Submit)).Methods(http.MethodPost)
	api.HandleFunc("/quiz/take/{shareableId}/results", required(h.Results)).Methods(http.MethodGet)

	api.HandleFunc("/quiz", required(h.Create)).Methods(http.MethodPost)
	api.HandleFunc("/quiz/create", required(h.Create)).Methods(http.MethodPost)
	api.HandleFunc("/quiz/{id}", required(h.Get)).Methods(http.MethodGet)
	api.HandleFunc("/quiz/{id}", required(h.Update)).Methods(http.MethodPut)
	api.HandleFunc("/quiz/{id}", required(h.Delete)).Methods(http.MethodDelete)
	api.HandleFunc("/quiz/{id}/publish", required(h.Publish)).Methods(http.MethodPost)
	api.HandleFunc("/quiz/{id}/clone", required(h.Clone)).Methods(http.MethodPost)
	api.HandleFunc("/quiz/{id}/results", required(h.Report)).Methods(http.MethodGet)
	if cfg.Live != nil {
		api.HandleFunc("/quiz/{id}/results/live", required(cfg.Live.ServeWS)).Methods(http.MethodGet)
	}

	api.HandleFunc("/quizzes", required(h.Dashboard)).Methods(http.MethodGet)
	return r
}
