package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// ResponseError describes a non-2xx answer from a downstream service.
type ResponseError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// ReadResponse consumes and closes the response body. It returns the body for
// 2xx responses and a *ResponseError otherwise.
func ReadResponse(resp *http.Response, service string) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &ResponseError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

