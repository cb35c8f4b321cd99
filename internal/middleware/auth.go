package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/model"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier TokenVerifier
	Metrics  metrics.Recorder
}

// Auth returns a middleware that authenticates requests with a bearer token.
// A request without a token is rejected with 401; a token that fails
// verification for any reason is rejected with 403. On success the verified
// identity is bound to the request context and nothing downstream may take
// the user ID from anywhere else.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if token == "" && ok {
				logAuthFailure(cfg.Logger, r, metrics.ReasonMissingToken)
				recorder.IncAuthRejected(metrics.ReasonMissingToken)
				writeMessage(w, http.StatusUnauthorized, "No token provided")
				return
			}
			if !ok {
				logAuthFailure(cfg.Logger, r, "invalid_scheme")
				recorder.IncAuthRejected(metrics.ReasonInvalidToken)
				writeMessage(w, http.StatusForbidden, "Invalid token")
				return
			}

			claims, err := cfg.Verifier.Verify(token)
			if err != nil {
				logAuthFailure(cfg.Logger, r, metrics.ReasonInvalidToken)
				recorder.IncAuthRejected(metrics.ReasonInvalidToken)
				writeMessage(w, http.StatusForbidden, "Invalid token")
				return
			}

			authCtx := &model.AuthContext{UserID: claims.UserID}

			setLogUserID(r.Context(), authCtx.UserID)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>".
// ok is false when a credential is present under another scheme.
func extractBearerToken(r *http.Request) (token string, ok bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", true
	}

	scheme, rest, found := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	if !found {
		return "", true
	}
	return strings.TrimSpace(rest), true
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}
