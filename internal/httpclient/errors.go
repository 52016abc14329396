package httpclient

import "fmt"

// UpstreamError represents a non-2xx answer from a provider API
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Unauthorized reports whether the provider rejected the credentials.
func (e *UpstreamError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
