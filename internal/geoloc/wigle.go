package geoloc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"wifi-aprs-tracker/internal/wifi"
)

// WiGLE search failure codes. They surface through APIError so callers
// can tell "the database does not know this AP" from a transport fault.
const (
	wigleErrRejected   = 1 // success=false in the response
	wigleErrNoResults  = 2 // the BSSID is not in the database
	wigleErrNoAccuracy = 3 // result entry carries no range estimate
)

// WiGLEClient resolves a position from the WiGLE wardriving database.
// Unlike the geolocate backends it looks up a single network, so only
// the strongest fingerprint entry is used.
type WiGLEClient struct {
	base   string
	user   string
	token  string
	client *http.Client
}

// NewWiGLE returns a client authenticating with a WiGLE API name/token
// pair (HTTP Basic).
func NewWiGLE(user, token string) *WiGLEClient {
	return &WiGLEClient{
		base:   "https://api.wigle.net",
		user:   user,
		token:  token,
		client: newHTTPClient(),
	}
}

// newWiGLEURL is used by tests to point the client at a local server.
func newWiGLEURL(base, user, token string) *WiGLEClient {
	return &WiGLEClient{base: base, user: user, token: token, client: newHTTPClient()}
}

type wigleResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Results      []struct {
		Trilat  float64  `json:"trilat"`
		Trilong float64  `json:"trilong"`
		Range   *float64 `json:"range"`
	} `json:"results"`
}

func (c *WiGLEClient) Locate(ctx context.Context, fp wifi.Fingerprint) (Result, error) {
	if len(fp) == 0 {
		return Result{}, fmt.Errorf("empty fingerprint")
	}
	strongest := fp[0]
	for _, n := range fp[1:] {
		if n.RSSI > strongest.RSSI {
			strongest = n
		}
	}

	u := c.base + "/api/v2/network/search?netid=" + url.QueryEscape(strongest.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{}, err
	}
	req.SetBasicAuth(c.user, c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("wigle request: %v", err)
	}
	defer resp.Body.Close()

	var out wigleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("wigle response: %v", err)
	}

	if !out.Success {
		return Result{}, &APIError{Code: wigleErrRejected, Message: out.Message}
	}
	if out.TotalResults == 0 || len(out.Results) == 0 {
		return Result{}, &APIError{Code: wigleErrNoResults, Message: "network not found"}
	}
	first := out.Results[0]
	if first.Range == nil {
		return Result{}, &APIError{Code: wigleErrNoAccuracy, Message: "no range estimate"}
	}

	return Result{
		LatDeg:    first.Trilat,
		LonDeg:    first.Trilong,
		AccuracyM: int(math.Round(*first.Range)),
	}, nil
}
