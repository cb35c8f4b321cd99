package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/cache"
)

// RateLimiter checks token buckets. *cache.Cache implements it.
type RateLimiter interface {
	CheckUserRateLimit(ctx context.Context, userID string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckIPRateLimit(ctx context.Context, scope, ip string, ratePerSecond, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter

	// Per authenticated user
	UserEnabled bool
	UserRPM     int // Requests per minute
	UserBurst   int

	// Per client IP, for unauthenticated routes
	IPEnabled bool
	IPScope   string
	IPRPS     int // Requests per second
	IPBurst   int
}

// check takes one token for the request. subject is logged on rejection;
// ok is false when the request carries nothing to key on.
type check func(r *http.Request) (res *cache.RateLimitResult, subject slog.Attr, ok bool, err error)

// RateLimitUser limits requests per verified user and reports the bucket
// state in X-RateLimit-* headers. Must run after Auth.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.UserEnabled || cfg.Limiter == nil {
		return passthrough
	}
	return limit(cfg.Logger, "user", cfg.UserRPM, func(r *http.Request) (*cache.RateLimitResult, slog.Attr, bool, error) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			return nil, slog.Attr{}, false, nil
		}
		res, err := cfg.Limiter.CheckUserRateLimit(r.Context(), userID, cfg.UserRPM, cfg.UserBurst)
		return res, slog.String("user_id", userID), true, err
	})
}

// RateLimitIP limits requests per client IP within cfg.IPScope. It guards
// the login and register endpoints.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.IPEnabled || cfg.Limiter == nil {
		return passthrough
	}
	return limit(cfg.Logger, "ip:"+cfg.IPScope, 0, func(r *http.Request) (*cache.RateLimitResult, slog.Attr, bool, error) {
		ip := getClientIP(r)
		res, err := cfg.Limiter.CheckIPRateLimit(r.Context(), cfg.IPScope, ip, cfg.IPRPS, cfg.IPBurst)
		return res, slog.String("ip", ip), true, err
	})
}

func passthrough(next http.Handler) http.Handler { return next }

// limit builds the shared middleware. Limiter errors let the request
// through. headerLimit > 0 enables the X-RateLimit-* headers.
func limit(logger *slog.Logger, kind string, headerLimit int, take check) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, subject, ok, err := take(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				logger.ErrorContext(r.Context(), "rate limit check failed",
					slog.String("type", kind),
					subject,
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if headerLimit > 0 {
				h := w.Header()
				h.Set("X-RateLimit-Limit", strconv.Itoa(headerLimit))
				h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
				h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			}

			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			seconds := max(1, int(math.Ceil(res.RetryAfter.Seconds())))
			logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("type", kind),
				subject,
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Int("retry_after_seconds", seconds),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeMessage(w, http.StatusTooManyRequests,
				"Rate limit exceeded. Retry after "+strconv.Itoa(seconds)+" seconds.")
		})
	}
}

// getClientIP returns the first forwarded hop when present, then
// X-Real-IP, then the connection address without its port.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
