// Package geoloc resolves a WiFi fingerprint to a position through a
// web geolocation service. Three backends are provided: the Google
// geolocation API, the Mozilla location service (same wire contract,
// different host) and the WiGLE network database.
package geoloc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"wifi-aprs-tracker/internal/wifi"
)

// Result is a resolved position estimate.
type Result struct {
	LatDeg    float64
	LonDeg    float64
	AccuracyM int
}

// Provider resolves fingerprints. Implementations hold no state between
// calls beyond their HTTP client.
type Provider interface {
	Locate(ctx context.Context, fp wifi.Fingerprint) (Result, error)
}

// APIError is an application-level failure reported by a backend, as
// opposed to a transport failure. The code is backend specific.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("geolocation backend error %d", e.Code)
	}
	return fmt.Sprintf("geolocation backend error %d: %s", e.Code, e.Message)
}

const requestTimeout = 5 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}
