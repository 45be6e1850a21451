package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const minimal = "station:\n  callsign: N0CALL-9\ngeolocation:\n  api_key: secret\n"

func TestLoad_RequiresCallsign(t *testing.T) {
	path := writeTempConfig(t, "geolocation:\n  api_key: secret\n")
	_, err := Load(path)
	requireErrEq(t, err, "station.callsign is required")
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	path := writeTempConfig(t, "station:\n  callsign: N0CALL-9\n")
	_, err := Load(path)
	requireErrEq(t, err, "geolocation.api_key is required")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Scan.Interval != 30*time.Second {
		t.Fatalf("scan.interval=%s want 30s", cfg.Scan.Interval)
	}
	if cfg.Geolocation.Backend != "mozilla" {
		t.Fatalf("backend=%q want mozilla", cfg.Geolocation.Backend)
	}
	if cfg.Geolocation.MaxAccuracyM != 5000 {
		t.Fatalf("max_accuracy_m=%d want 5000", cfg.Geolocation.MaxAccuracyM)
	}
	if cfg.Station.Symbol != "/>" {
		t.Fatalf("symbol=%q want />", cfg.Station.Symbol)
	}
}

func TestLoad_APRSServerDefault(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimal+"aprs:\n  enable: true\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APRS.Server != "rotate.aprs2.net:14580" {
		t.Fatalf("aprs.server=%q", cfg.APRS.Server)
	}
}

func TestLoad_BackendValidation(t *testing.T) {
	body := "station:\n  callsign: N0CALL-9\ngeolocation:\n  api_key: secret\n  backend: openstreetmap\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, "geolocation.backend must be one of google, mozilla, wigle")
}

func TestLoad_BackendCaseInsensitive(t *testing.T) {
	body := "station:\n  callsign: N0CALL-9\ngeolocation:\n  api_key: secret\n  backend: Google\n"
	cfg, err := Load(writeTempConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Geolocation.Backend != "google" {
		t.Fatalf("backend=%q", cfg.Geolocation.Backend)
	}
}

func TestLoad_WiGLERequiresUser(t *testing.T) {
	body := "station:\n  callsign: N0CALL-9\ngeolocation:\n  api_key: secret\n  backend: wigle\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, "geolocation.user is required when geolocation.backend is 'wigle'")
}

func TestLoad_SymbolValidation(t *testing.T) {
	body := "station:\n  callsign: N0CALL-9\n  symbol: '/'\ngeolocation:\n  api_key: secret\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, "station.symbol must be exactly two characters (table and code)")
}

func TestLoad_MQTTRequiresBroker(t *testing.T) {
	_, err := Load(writeTempConfig(t, minimal+"mqtt:\n  enable: true\n"))
	requireErrEq(t, err, "mqtt.broker is required when mqtt.enable is true")
}

func TestLoad_MQTTDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimal+"mqtt:\n  enable: true\n  broker: tcp://localhost:1883\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.MQTT.Topic == "" || cfg.MQTT.ClientID == "" {
		t.Fatalf("mqtt defaults missing: %+v", cfg.MQTT)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	_, err := Load(writeTempConfig(t, minimal+"bogus: 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}
