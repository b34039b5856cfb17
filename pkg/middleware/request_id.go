package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prospectgrid/prospectgrid/pkg/requestid"
)

// RequestID gets the request ID from the x-request-id header or generates a
// unique one, and injects it into the request's context so the service and
// store layers can tag their logs with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("x-request-id")

		if reqID == "" {
			reqID = middleware.GetReqID(r.Context())
		}

		if reqID == "" {
			reqID = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
