package handle

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/xpkg/logger"

	"github.com/google/uuid"
)

const (
	RequestIDHeader   = "X-Request-ID"
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
)

type Identifier interface {
	Identify(ctx context.Context, rawToken string) (core.Principal, error)
}

type Middleware struct {
	identity    Identifier
	idempotency core.IIdempotencyStore
	mylog       logger.Logger
}

// NewMiddleware builds the request pipeline helpers. idempotency may be nil.
func NewMiddleware(identity Identifier, idempotency core.IIdempotencyStore, mylog logger.Logger) *Middleware {
	return &Middleware{
		identity:    identity,
		idempotency: idempotency,
		mylog:       mylog,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	if sr.body != nil {
		sr.body.Write(b)
	}
	return sr.ResponseWriter.Write(b)
}

// Logging tags the request with an id and logs its outcome.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		m.mylog.Action("request_completed").Debug("Request served",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Require resolves the caller and checks it may perform op before next runs.
func (m *Middleware) Require(op core.Operation, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			jsonError(w, fmt.Errorf("%w: credentials were not provided", core.ErrUnauthorized))
			return
		}

		p, err := m.identity.Identify(r.Context(), token)
		if err != nil {
			if core.Kind(err) == "internal" {
				m.mylog.Action("identify_failed").Error("Failed to resolve principal", err)
			}
			jsonError(w, err)
			return
		}
		if !p.Can(op) {
			jsonError(w, fmt.Errorf("%w: %s is not allowed for role %s", core.ErrForbidden, op, p.Role))
			return
		}

		next.ServeHTTP(w, r.WithContext(core.WithPrincipal(r.Context(), p)))
	})
}

// Idempotent replays the stored 201 for a repeated Idempotency-Key.
// It must run after Require.
func (m *Middleware) Idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		if key == "" || m.idempotency == nil {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			jsonError(w, fmt.Errorf("%w: %s is longer than %d characters", core.ErrValidation, IdempotencyHeader, maxIdempotencyKeyLen))
			return
		}

		p, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}
		storeKey := fmt.Sprintf("idempotency:%d:%s", p.UserID, key)
		mylog := m.mylog.Action("idempotency").With("user_id", p.UserID, "key", key)

		stored, err := m.idempotency.Begin(r.Context(), storeKey)
		if err != nil {
			if core.Kind(err) == "internal" {
				mylog.Error("Failed to reserve idempotency key", err)
			}
			jsonError(w, err)
			return
		}
		if stored != nil {
			mylog.Info("Replaying stored response")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(ReplayedHeader, "true")
			w.WriteHeader(stored.Status)
			_, _ = w.Write(stored.Body)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
		next.ServeHTTP(rec, r)

		// the response is already sent, a cancelled request must still settle the key
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		defer cancel()
		if rec.status == http.StatusCreated {
			if err := m.idempotency.Complete(ctx, storeKey, core.StoredResponse{Status: rec.status, Body: rec.body.Bytes()}); err != nil {
				mylog.Error("Failed to store response", err)
			}
			return
		}
		if err := m.idempotency.Release(ctx, storeKey); err != nil {
			mylog.Error("Failed to release idempotency key", err)
		}
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(core.TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
