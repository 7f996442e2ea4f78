package common

import (
	_ "embed"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

//go:embed VERSION
var version string

// UserAgent is sent on every outbound vendor request.
func UserAgent() string {
	return "SolarFleet/" + strings.TrimSpace(version)
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper and sets the User-Agent header.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: UserAgent(),
		},
		Timeout: timeout,
	}
}

// SessionClient returns an http client with its own cookie jar. Each vendor
// session gets a fresh one so cookies never leak between plants.
func SessionClient(timeout time.Duration) *http.Client {
	c := HTTPClient(timeout)
	// cookiejar.New only fails when a PublicSuffixList returns an error
	jar, _ := cookiejar.New(nil)
	c.Jar = jar
	return c
}
