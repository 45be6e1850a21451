package geoloc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"wifi-aprs-tracker/internal/wifi"
)

// GeolocateClient speaks the geolocate POST API shared by Google and
// Mozilla: a JSON list of observed access points in, a location plus
// accuracy radius out.
type GeolocateClient struct {
	url    string
	client *http.Client
}

// NewGoogle returns a client for the Google geolocation API.
func NewGoogle(apiKey string) *GeolocateClient {
	return &GeolocateClient{
		url:    "https://www.googleapis.com/geolocation/v1/geolocate?key=" + apiKey,
		client: newHTTPClient(),
	}
}

// NewMozilla returns a client for a Mozilla location service instance.
// The host is configurable since MLS has community-run deployments.
func NewMozilla(host, apiKey string) *GeolocateClient {
	if host == "" {
		host = "location.services.mozilla.com"
	}
	return &GeolocateClient{
		url:    "https://" + host + "/v1/geolocate?key=" + apiKey,
		client: newHTTPClient(),
	}
}

// newGeolocateURL is used by tests to point the client at a local server.
func newGeolocateURL(url string) *GeolocateClient {
	return &GeolocateClient{url: url, client: newHTTPClient()}
}

type geolocateAP struct {
	MACAddress         string `json:"macAddress"`
	SignalStrength     int    `json:"signalStrength"`
	Age                int    `json:"age"`
	Channel            int    `json:"channel"`
	SignalToNoiseRatio int    `json:"signalToNoiseRatio"`
}

type geolocateRequest struct {
	ConsiderIP       bool          `json:"considerIp"`
	WifiAccessPoints []geolocateAP `json:"wifiAccessPoints"`
}

type geolocateResponse struct {
	Location *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Accuracy *float64 `json:"accuracy"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GeolocateClient) Locate(ctx context.Context, fp wifi.Fingerprint) (Result, error) {
	reqBody := geolocateRequest{WifiAccessPoints: make([]geolocateAP, 0, len(fp))}
	for _, n := range fp {
		reqBody.WifiAccessPoints = append(reqBody.WifiAccessPoints, geolocateAP{
			MACAddress:     n.String(),
			SignalStrength: n.RSSI,
		})
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geolocate request: %v", err)
	}
	defer resp.Body.Close()

	var out geolocateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("geolocate response: %v", err)
	}

	if out.Error != nil {
		return Result{}, &APIError{Code: out.Error.Code, Message: out.Error.Message}
	}
	if out.Location == nil || out.Accuracy == nil {
		return Result{}, fmt.Errorf("geolocate response missing location or accuracy")
	}

	return Result{
		LatDeg:    out.Location.Lat,
		LonDeg:    out.Location.Lng,
		AccuracyM: int(math.Round(*out.Accuracy)),
	}, nil
}
