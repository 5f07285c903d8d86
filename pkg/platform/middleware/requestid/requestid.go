// Package requestid tags every request with a correlation id.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"certgate/pkg/requestcontext"
)

// Header carries the correlation id on responses and inbound requests.
const Header = "X-Request-ID"

// Middleware takes the caller-supplied request id or mints one, stores it in
// the context, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
