package coinbase

import (
	"net/http"
	"time"
)

// HTTPClient Define the interface for the HTTP client's behaviour
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)

// NewHTTPClient creates a basic HTTPClient with the given request timeout.
// A zero timeout leaves requests bounded only by their context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
