package http

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"quiz-share-service/internal/domain"
	"quiz-share-service/internal/validation"
)

// Authenticator resolves the caller of a request. A request without
// credentials yields (nil, nil).
type Authenticator interface {
	Authenticate(r *http.Request) (*domain.Identity, error)
}

// UserRecorder persists authenticated callers.
type UserRecorder interface {
	Ensure(ctx context.Context, id *domain.Identity) error
}

type identityKey struct{}

func withIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// identityFrom returns the caller attached by the auth middleware, or nil.
func identityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey{}).(*domain.Identity)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working behind the access log.
func (r *statusRecorder) Hijack() (conn net.Conn, rw *bufio.ReadWriter, err error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}

// limitBody rejects declared oversize bodies up front and caps the rest while they are read.
func limitBody(logger *slog.Logger, maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := validation.ValidateRequestSize(r.ContentLength); err != nil {
				writeError(w, r, logger, err)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate attaches the caller, if any, to the request context. Invalid
// credentials are rejected; missing ones are left for the handler to judge.
func authenticate(auth Authenticator, users UserRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.Authenticate(r)
			if err != nil {
				logger.Debug("authentication failed", "path", r.URL.Path, "err", err)
				writeError(w, r, logger, domain.ErrUnauthorized)
				return
			}
			if id != nil {
				if err := users.Ensure(r.Context(), id); err != nil {
					writeError(w, r, logger, err)
					return
				}
				r = r.WithContext(withIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireIdentity answers 401 before the handler runs when no caller is attached.
func requireIdentity(logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r.Context()) == nil {
			writeError(w, r, logger, domain.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}
