package httpclient_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ingest/granule-discovery/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "not found",
			statusCode:    404,
			url:           "https://catalog.example.gov/granules/G1",
			message:       "404 Not Found",
			expectedError: "HTTP 404 for URL https://catalog.example.gov/granules/G1: 404 Not Found",
		},
		{
			name:          "server error",
			statusCode:    500,
			url:           "https://catalog.example.gov/granules/G2",
			message:       "500 Internal Server Error",
			expectedError: "HTTP 500 for URL https://catalog.example.gov/granules/G2: 500 Internal Server Error",
		},
		{
			name:          "empty message",
			statusCode:    401,
			url:           "https://auth.example.gov/token",
			message:       "",
			expectedError: "HTTP 401 for URL https://auth.example.gov/token: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)

			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())
			assert.Equal(t, tt.statusCode, err.StatusCode)
			assert.Equal(t, tt.url, err.URL)
		})
	}
}
