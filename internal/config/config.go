// Package config loads the tracker's YAML configuration, applying
// defaults and validating the combinations the daemon cannot start
// without.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Station     StationConfig     `yaml:"station"`
	Scan        ScanConfig        `yaml:"scan"`
	Geolocation GeolocationConfig `yaml:"geolocation"`
	APRS        APRSConfig        `yaml:"aprs"`
	NMEA        NMEAConfig        `yaml:"nmea"`
	Web         WebConfig         `yaml:"web"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	LED         LEDConfig         `yaml:"led"`
}

type StationConfig struct {
	Callsign string `yaml:"callsign"`
	Symbol   string `yaml:"symbol"`  // two chars: table + code, e.g. "/>"
	Object   string `yaml:"object"`  // report as a named object instead of the station
	Comment  string `yaml:"comment"` // position comment override
}

type ScanConfig struct {
	Interval time.Duration `yaml:"interval"`
	Iface    string        `yaml:"iface"`
}

type GeolocationConfig struct {
	Backend      string `yaml:"backend"` // google, mozilla or wigle
	APIKey       string `yaml:"api_key"`
	Host         string `yaml:"host"` // mozilla-compatible service host override
	User         string `yaml:"user"` // wigle API name
	MaxAccuracyM int    `yaml:"max_accuracy_m"`
}

type APRSConfig struct {
	Enable   bool   `yaml:"enable"`
	Server   string `yaml:"server"`
	Passcode string `yaml:"passcode"` // derived from the callsign when empty
}

type NMEAConfig struct {
	Dest string `yaml:"dest"` // UDP destination for sentence batches
}

type WebConfig struct {
	Listen string `yaml:"listen"` // empty disables the HTTP server
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type LEDConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"` // empty probes the usual gpiochip names
	Line   int    `yaml:"line"`
}

var backends = map[string]bool{"google": true, "mozilla": true, "wigle": true}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid: %v", err)
	}

	if cfg.Station.Callsign == "" {
		return Config{}, fmt.Errorf("station.callsign is required")
	}
	if cfg.Station.Symbol == "" {
		cfg.Station.Symbol = "/>"
	}
	if len(cfg.Station.Symbol) != 2 {
		return Config{}, fmt.Errorf("station.symbol must be exactly two characters (table and code)")
	}

	if cfg.Scan.Interval <= 0 {
		cfg.Scan.Interval = 30 * time.Second
	}

	if cfg.Geolocation.Backend == "" {
		cfg.Geolocation.Backend = "mozilla"
	}
	cfg.Geolocation.Backend = strings.ToLower(cfg.Geolocation.Backend)
	if !backends[cfg.Geolocation.Backend] {
		return Config{}, fmt.Errorf("geolocation.backend must be one of google, mozilla, wigle")
	}
	if cfg.Geolocation.APIKey == "" {
		return Config{}, fmt.Errorf("geolocation.api_key is required")
	}
	if cfg.Geolocation.Backend == "wigle" && cfg.Geolocation.User == "" {
		return Config{}, fmt.Errorf("geolocation.user is required when geolocation.backend is 'wigle'")
	}
	if cfg.Geolocation.MaxAccuracyM <= 0 {
		cfg.Geolocation.MaxAccuracyM = 5000
	}

	if cfg.APRS.Enable && cfg.APRS.Server == "" {
		cfg.APRS.Server = "rotate.aprs2.net:14580"
	}

	if cfg.MQTT.Enable {
		if cfg.MQTT.Broker == "" {
			return Config{}, fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "wips/position"
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "wips-tracker"
		}
	}

	if cfg.LED.Enable && cfg.LED.Line < 0 {
		return Config{}, fmt.Errorf("led.line must be >= 0")
	}

	return cfg, nil
}
