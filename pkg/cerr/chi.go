package cerr

import (
	"context"
	"net/http"
)

// responseReceiver collects the handler's outcome so the middleware can
// serialize exactly one JSON body per request. Handlers report through
// SetJSONResponse / SetJSONError instead of writing to the ResponseWriter.
type responseReceiver struct {
	response any
	err      error
}

type receiverKey struct{}

func receiverFrom(ctx context.Context) *responseReceiver {
	rr, _ := ctx.Value(receiverKey{}).(*responseReceiver)
	return rr
}

func SetJSONResponse(ctx context.Context, response any) {
	if rr := receiverFrom(ctx); rr != nil {
		rr.response = response
	}
}

func SetJSONError(ctx context.Context, err error) {
	if rr := receiverFrom(ctx); rr != nil {
		rr.err = err
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewJSONResponseChiMiddleware installs a responseReceiver on the request
// context and writes whichever of response or error the handler set.
func NewJSONResponseChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rr := &responseReceiver{}
			ctx := context.WithValue(r.Context(), receiverKey{}, rr)
			next.ServeHTTP(rw, r.WithContext(ctx))
			ExtractToHTTPResponse(ctx, rw, rr)
		})
	}
}
