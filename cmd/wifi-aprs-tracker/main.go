package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wifi-aprs-tracker/internal/config"
	"wifi-aprs-tracker/internal/geoloc"
	"wifi-aprs-tracker/internal/led"
	"wifi-aprs-tracker/internal/mqtt"
	"wifi-aprs-tracker/internal/udp"
	"wifi-aprs-tracker/internal/web"
	"wifi-aprs-tracker/internal/wifi"
)

const (
	softwareName    = "WiPS"
	softwareVersion = "0.4.1"
)

// softwareDate identifies the build in the version sentence; stamp a
// release with -ldflags "-X main.softwareDate=...".
var softwareDate = "dev"

func newProvider(cfg config.GeolocationConfig) geoloc.Provider {
	switch cfg.Backend {
	case "google":
		return geoloc.NewGoogle(cfg.APIKey)
	case "wigle":
		return geoloc.NewWiGLE(cfg.User, cfg.APIKey)
	default:
		return geoloc.NewMozilla(cfg.Host, cfg.APIKey)
	}
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./wips.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := newApp(cfg, newProvider(cfg.Geolocation), wifi.NewScanner(cfg.Scan.Iface))

	if cfg.NMEA.Dest != "" {
		b, err := udp.NewBroadcaster(cfg.NMEA.Dest)
		if err != nil {
			log.Fatalf("udp broadcaster init failed: %v", err)
		}
		defer b.Close()
		app.nmeaOut = b
	}

	if cfg.MQTT.Enable {
		p, err := mqtt.Connect(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			log.Fatalf("mqtt init failed: %v", err)
		}
		defer p.Close()
		app.mqttOut = p
	}

	if cfg.LED.Enable {
		l, err := led.Open(cfg.LED.Chip, cfg.LED.Line)
		if err != nil {
			// The LED is a convenience; run without it.
			log.Printf("led init failed: %v", err)
		} else {
			defer l.Close()
			app.led = l
		}
	}

	if cfg.Web.Listen != "" {
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, app.status, app.positions); err != nil && ctx.Err() == nil {
				log.Printf("web server stopped: %v", err)
				cancel()
			}
		}()
	}

	log.Printf("%s %s starting", softwareName, softwareVersion)
	log.Printf("callsign=%s backend=%s interval=%s",
		cfg.Station.Callsign, cfg.Geolocation.Backend, cfg.Scan.Interval)

	app.run(ctx)
	log.Printf("%s stopping", softwareName)
}
