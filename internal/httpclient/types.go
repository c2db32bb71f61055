package httpclient

import "fmt"

// HTTPError represents an HTTP error response
type HTTPError struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int

	// URL is the request URL that produced the error
	URL string

	// Message is the status text returned by the server
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}
