package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"

	apperrors "go-medical-imaging/internal/errors"
)

// classify maps a go-openai failure onto an error kind.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("remote API timed out", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fromStatus(reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError("remote API timed out", err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.NewUpstreamFormatError("malformed response body", err)
	}

	return apperrors.NewTransportError("failed to reach remote API", err)
}

func fromStatus(code int, err error) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperrors.NewAuthError("remote API rejected the API key", err)
	case code == http.StatusTooManyRequests:
		return apperrors.NewRateLimitedError("remote API rate limit exceeded", err)
	case code == http.StatusGatewayTimeout || code == http.StatusRequestTimeout:
		return apperrors.NewTimeoutError("remote API timed out", err)
	default:
		return apperrors.NewUpstreamError(fmt.Sprintf("remote API returned status %d", code), err)
	}
}
