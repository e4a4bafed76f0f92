package vision

import (
	"context"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	apperrors "go-medical-imaging/internal/errors"
)

// DefaultBaseURL is the hosted chat completion API.
const DefaultBaseURL = "https://api.openai.com/v1"

// Dispatcher sends one built request to the remote model and returns the
// generated text.
type Dispatcher interface {
	Complete(ctx context.Context, apiKey string, req openai.ChatCompletionRequest) (string, error)
}

// Client dispatches requests through go-openai. It holds no credentials; the
// caller's key is applied per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a dispatcher for baseURL. A zero timeout leaves the call
// unbounded, matching the default HTTP client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Complete issues a single POST with a bearer credential. There is no retry.
func (c *Client) Complete(ctx context.Context, apiKey string, req openai.ChatCompletionRequest) (string, error) {
	if apiKey == "" {
		return "", apperrors.NewValidationError("API key is required", nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	status := &statusRecorder{next: c.httpClient.Transport}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = &http.Client{Transport: status, Timeout: c.httpClient.Timeout}

	resp, err := openai.NewClientWithConfig(cfg).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}

	// go-openai accepts any 2xx
	if status.code != http.StatusOK {
		return "", fromStatus(status.code, nil)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewUpstreamFormatError("no choices in response", nil)
	}

	message := resp.Choices[0].Message
	if message.Content == "" {
		if message.Refusal != "" {
			return "", apperrors.NewUpstreamFormatError("model refused: "+message.Refusal, nil)
		}
		return "", apperrors.NewUpstreamFormatError("no message content in response", nil)
	}
	return message.Content, nil
}

// statusRecorder keeps the status code of the last response of one call
type statusRecorder struct {
	next http.RoundTripper
	code int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	next := r.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if resp != nil {
		r.code = resp.StatusCode
	}
	return resp, err
}
