package geoloc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"wifi-aprs-tracker/internal/wifi"
)

func testFingerprint(t *testing.T) wifi.Fingerprint {
	t.Helper()
	b1, err := wifi.ParseBSSID("AA:BB:CC:00:11:01")
	if err != nil {
		t.Fatal(err)
	}
	b2, err := wifi.ParseBSSID("AA:BB:CC:00:11:02")
	if err != nil {
		t.Fatal(err)
	}
	return wifi.Fingerprint{
		{BSSID: b1, RSSI: -55},
		{BSSID: b2, RSSI: -70},
	}
}

func TestGeolocateSuccess(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("key") != "K" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &gotBody); err != nil {
			t.Errorf("request body: %v", err)
		}
		io.WriteString(w, `{"location":{"lat":51.0,"lng":-1.0},"accuracy":42.4}`)
	}))
	defer srv.Close()

	c := newGeolocateURL(srv.URL + "/v1/geolocate?key=K")
	res, err := c.Locate(context.Background(), testFingerprint(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.LatDeg != 51.0 || res.LonDeg != -1.0 || res.AccuracyM != 42 {
		t.Fatalf("result: %+v", res)
	}

	if gotBody["considerIp"] != false {
		t.Errorf("considerIp = %v", gotBody["considerIp"])
	}
	aps, ok := gotBody["wifiAccessPoints"].([]any)
	if !ok || len(aps) != 2 {
		t.Fatalf("wifiAccessPoints: %v", gotBody["wifiAccessPoints"])
	}
	first := aps[0].(map[string]any)
	if first["macAddress"] != "AA:BB:CC:00:11:01" {
		t.Errorf("macAddress = %v", first["macAddress"])
	}
	if first["signalStrength"] != float64(-55) {
		t.Errorf("signalStrength = %v", first["signalStrength"])
	}
}

func TestGeolocateBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"keyInvalid"}}`)
	}))
	defer srv.Close()

	c := newGeolocateURL(srv.URL)
	_, err := c.Locate(context.Background(), testFingerprint(t))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 403 {
		t.Fatalf("code = %d", apiErr.Code)
	}
}

func TestGeolocateMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"location":{"lat":51.0,"lng":-1.0}}`)
	}))
	defer srv.Close()

	c := newGeolocateURL(srv.URL)
	if _, err := c.Locate(context.Background(), testFingerprint(t)); err == nil {
		t.Fatal("expected error when accuracy is missing")
	}
}

func TestGeolocateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := newGeolocateURL(srv.URL)
	_, err := c.Locate(context.Background(), testFingerprint(t))
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatal("transport failures must not be APIErrors")
	}
}

func TestWiGLESuccessPicksStrongest(t *testing.T) {
	var gotNetid, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotNetid = r.URL.Query().Get("netid")
		gotUser, gotPass, _ = r.BasicAuth()
		io.WriteString(w, `{"success":true,"totalResults":1,"results":[{"trilat":48.85,"trilong":2.29,"range":120.6}]}`)
	}))
	defer srv.Close()

	c := newWiGLEURL(srv.URL, "name", "token")
	res, err := c.Locate(context.Background(), testFingerprint(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.LatDeg != 48.85 || res.LonDeg != 2.29 || res.AccuracyM != 121 {
		t.Fatalf("result: %+v", res)
	}
	if gotNetid != "AA:BB:CC:00:11:01" {
		t.Errorf("netid = %q, want strongest BSSID", gotNetid)
	}
	if gotUser != "name" || gotPass != "token" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
}

func TestWiGLEFailureCodes(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"rejected", `{"success":false,"message":"too many queries"}`, 1},
		{"no results", `{"success":true,"totalResults":0,"results":[]}`, 2},
		{"no range", `{"success":true,"totalResults":1,"results":[{"trilat":1,"trilong":2}]}`, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, c.body)
			}))
			defer srv.Close()

			cl := newWiGLEURL(srv.URL, "n", "t")
			_, err := cl.Locate(context.Background(), testFingerprint(t))
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != c.code {
				t.Fatalf("code = %d, want %d", apiErr.Code, c.code)
			}
		})
	}
}

func TestWiGLEEmptyFingerprint(t *testing.T) {
	c := newWiGLEURL("http://unused", "n", "t")
	if _, err := c.Locate(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty fingerprint")
	}
}
