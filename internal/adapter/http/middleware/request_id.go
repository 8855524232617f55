package middleware

import (
	"net/http"

	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation ID, reusing the caller's
// header when present, and echoes it back in the response.
func (h *Middleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(wrap.WithRequestID(r.Context(), id)))
	})
}
