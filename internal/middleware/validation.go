package middleware

import (
	"mime"
	"net/http"
	"strings"
)

// AllowContentTypes returns middleware that rejects request bodies whose
// media type is not one of allowed with 415. Requests without a body
// (GET, DELETE, or an empty POST) pass through.
func AllowContentTypes(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		set[strings.ToLower(t)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || !set[strings.ToLower(mediaType)] {
				writeMessage(w, http.StatusUnsupportedMediaType,
					"Content-Type must be one of: "+strings.Join(allowed, ", "))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return r.ContentLength != 0
	default:
		return false
	}
}
