package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ahlan-reserve/internal/backend"

	"go.uber.org/zap"
)

type ctxKey string

const SessionKey ctxKey = "backendSession"

// BearerMiddleware forwards the caller's token to the backend untouched. The
// backend is the authority on whether the token is valid; this only rejects
// requests that carry none.
func BearerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromHeader(r.Header.Get("Authorization"))
			source := "header"
			// Browsers cannot set headers on websocket upgrades.
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
				source = "query"
			}

			if token == "" {
				logger.Debug("request without token",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error_code":401,"status":"error","message":"Unauthorized","data":null}` + "\n"))
				return
			}

			logger.Debug("token accepted", zap.String("source", source), zap.String("path", r.URL.Path))
			ctx := WithSession(r.Context(), backend.Session{Token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromHeader(h string) string {
	if h == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func WithSession(ctx context.Context, s backend.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

func GetSession(ctx context.Context) (backend.Session, error) {
	s, ok := ctx.Value(SessionKey).(backend.Session)
	if !ok || s.Token == "" {
		return backend.Session{}, errors.New("backend session not found in context")
	}
	return s, nil
}
