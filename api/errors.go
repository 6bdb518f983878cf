package api

import (
	"errors"
	"net/http"

	"github.com/poiesic/rostermatch/core"
)

// Client-facing messages.
const (
	msgEmptyQuery     = "`query` must not be empty"
	msgNegativeTopN   = "`top_n` must not be negative"
	msgProviderFailed = "embedding provider failed"
	msgNotReady       = "roster is not available"
	msgInternal       = "Internal server error"
)

// HTTPError is an error with a status code and a client-safe message.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// statusFor maps an error to the HTTP status and message returned to clients.
func statusFor(err error) (int, string) {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, httpErr.Message
	case errors.Is(err, core.ErrInvalidQuery):
		return http.StatusBadRequest, msgEmptyQuery
	case errors.Is(err, core.ErrProviderFailure):
		return http.StatusBadGateway, msgProviderFailed
	case errors.Is(err, core.ErrStructuralInput):
		return http.StatusServiceUnavailable, msgNotReady
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// HandleError writes err as a JSON error body.
func HandleError(w http.ResponseWriter, err error) {
	code, message := statusFor(err)
	JSONError(w, code, message)
}
