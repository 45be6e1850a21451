package main

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"wifi-aprs-tracker/internal/aprs"
	"wifi-aprs-tracker/internal/clock"
	"wifi-aprs-tracker/internal/config"
	"wifi-aprs-tracker/internal/geo"
	"wifi-aprs-tracker/internal/geoloc"
	"wifi-aprs-tracker/internal/led"
	"wifi-aprs-tracker/internal/mqtt"
	"wifi-aprs-tracker/internal/nmea"
	"wifi-aprs-tracker/internal/tracker"
	"wifi-aprs-tracker/internal/udp"
	"wifi-aprs-tracker/internal/web"
	"wifi-aprs-tracker/internal/wifi"
)

const (
	aprsBackoffMin = 5 * time.Second
	aprsBackoffMax = 5 * time.Minute
)

// Telemetry digital channels, leftmost bit first in the report.
const bitFix = 0x40

// app owns the report cycle: scan, resolve, then fan the fix out to
// every configured sink.
type app struct {
	cfg     config.Config
	scanner wifi.Scanner
	tracker *tracker.Tracker
	clk     clock.Clock
	enc     *nmea.Encoder

	aprsClient  *aprs.Client
	aprsBackoff time.Duration
	aprsRetryAt time.Time

	nmeaOut   *udp.Broadcaster
	mqttOut   *mqtt.Publisher
	led       *led.LED
	positions *web.PositionBroadcaster

	// lastAcc carries the accuracy of the last accepted fix across
	// suppressed cycles, which only report UnchangedAccuracyM.
	lastAcc int

	mu        sync.Mutex
	aprsState string
	lastFrame web.PositionFrame
	lastErr   string
	cycles    int64
	lastCycle string
}

func newApp(cfg config.Config, provider geoloc.Provider, scanner wifi.Scanner) *app {
	a := &app{
		cfg:       cfg,
		scanner:   scanner,
		tracker:   tracker.New(provider, cfg.Geolocation.MaxAccuracyM),
		clk:       clock.System{},
		enc:       &nmea.Encoder{},
		positions: web.NewPositionBroadcaster(),
		aprsState: "disabled",
	}
	if cfg.APRS.Enable {
		a.aprsClient = aprs.NewClient(aprs.Config{
			Server:   cfg.APRS.Server,
			Callsign: cfg.Station.Callsign,
			Passcode: cfg.APRS.Passcode,
			Name:     softwareName,
			Version:  softwareVersion,
			SymTable: cfg.Station.Symbol[0],
			SymCode:  cfg.Station.Symbol[1],
		})
		a.aprsState = "disconnected"
	}
	return a
}

// run executes one report cycle immediately and then one per interval
// until the context is canceled.
func (a *app) run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Scan.Interval)
	defer ticker.Stop()

	a.announce()
	a.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			if a.aprsClient != nil {
				a.aprsClient.Close()
			}
			return
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

// announce sends the version identification sentence once per sink
// session, before the first report cycle.
func (a *app) announce() {
	welcome := a.enc.Welcome(softwareName, softwareVersion, softwareDate)
	if a.nmeaOut != nil {
		if err := a.nmeaOut.Send([]byte(welcome)); err != nil {
			log.Printf("nmea udp: %v", err)
		}
	}
	if a.mqttOut != nil {
		if err := a.mqttOut.PublishNMEA([]string{welcome}); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
}

func (a *app) cycle(ctx context.Context) {
	defer a.finishCycle()

	fp, err := a.scanner.Scan(ctx)
	if err != nil {
		log.Printf("scan failed: %v", err)
		a.note(fmt.Sprintf("scan: %v", err))
		a.ledOff()
		return
	}

	acc, err := a.tracker.Update(ctx, fp)
	switch {
	case err != nil:
		log.Printf("geolocation failed (%d): %v", acc, err)
		a.note(fmt.Sprintf("geolocation: %v", err))
	case acc == tracker.UnchangedAccuracyM:
		log.Printf("position unchanged, %d networks", len(fp))
	case !a.tracker.Valid():
		log.Printf("fix rejected, accuracy %dm", acc)
		a.note(fmt.Sprintf("fix rejected, accuracy %dm", acc))
	default:
		a.lastAcc = acc
		log.Printf("fix accepted, accuracy %dm locator %s", acc, a.tracker.Locator())
	}

	if !a.tracker.Valid() {
		a.ledOff()
		a.publishInvalid()
		return
	}

	fix := a.tracker.Current()
	mv := a.tracker.Movement()
	now := a.clk.Now()
	var utm int64
	if a.clk.Trustworthy() {
		utm = now.Unix()
	}

	a.reportAPRS(ctx, utm, fix, mv, fp)
	sentences := a.reportNMEA(utm, fix, mv, fp)
	a.publishFix(now, fix, mv, sentences)

	if a.led != nil {
		if err := a.led.Blink(); err != nil {
			log.Printf("led: %v", err)
		}
	}
	a.note("")
}

func (a *app) ledOff() {
	if a.led == nil {
		return
	}
	if err := a.led.Off(); err != nil {
		log.Printf("led: %v", err)
	}
}

// ensureAPRS brings the session to the authenticated state, backing off
// exponentially between attempts so a dead server is not hammered every
// cycle.
func (a *app) ensureAPRS(ctx context.Context) bool {
	c := a.aprsClient
	if c.State() == aprs.StateAuthenticated && c.Err == nil {
		return true
	}
	if time.Now().Before(a.aprsRetryAt) {
		return false
	}
	if err := c.Connect(ctx); err != nil {
		log.Printf("aprs: %v", err)
		a.delayAPRSRetry()
		a.setAPRSState("disconnected")
		return false
	}
	if err := c.Authenticate(); err != nil {
		log.Printf("aprs: %v", err)
		c.Close()
		a.delayAPRSRetry()
		a.setAPRSState("disconnected")
		return false
	}
	a.aprsBackoff = 0
	a.setAPRSState("authenticated")
	log.Printf("aprs: logged in to %s as %s", a.cfg.APRS.Server, a.cfg.Station.Callsign)
	if err := c.SendStatus(softwareName + "/" + softwareVersion + " online"); err != nil {
		log.Printf("aprs: %v", err)
	}
	return true
}

func (a *app) delayAPRSRetry() {
	if a.aprsBackoff == 0 {
		a.aprsBackoff = aprsBackoffMin
	} else if a.aprsBackoff *= 2; a.aprsBackoff > aprsBackoffMax {
		a.aprsBackoff = aprsBackoffMax
	}
	a.aprsRetryAt = time.Now().Add(a.aprsBackoff)
}

func (a *app) reportAPRS(ctx context.Context, utm int64, fix tracker.Fix, mv geo.Movement, fp wifi.Fingerprint) {
	c := a.aprsClient
	if c == nil || !a.ensureAPRS(ctx) {
		return
	}

	cse := mv.BearingDeg
	if cse < 0 {
		cse = 0
	}
	var err error
	if a.cfg.Station.Object != "" {
		err = c.SendObject(utm, a.cfg.Station.Object, fix.LatDeg, fix.LonDeg,
			cse, mv.Knots, -1, a.cfg.Station.Comment)
	} else {
		err = c.SendPosition(utm, fix.LatDeg, fix.LonDeg,
			cse, mv.Knots, -1, a.cfg.Station.Comment)
	}
	if err == nil {
		err = c.SendTelemetry(telemetryChannels(fp, a.lastAcc, mv))
	}
	if err != nil {
		log.Printf("aprs send failed: %v", err)
		c.Close()
		a.delayAPRSRetry()
		a.setAPRSState("disconnected")
	}
}

// telemetryChannels fills the five analog channels: supply voltage (no
// ADC here, always zero), strongest RSSI, heap in 256-byte units,
// accuracy and speed.
func telemetryChannels(fp wifi.Fingerprint, acc int, mv geo.Movement) (int, int, int, int, int, byte) {
	var rssi int
	if len(fp) > 0 {
		rssi = -fp[0].RSSI
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return 0,
		clampChannel(rssi),
		clampChannel(int(mem.HeapAlloc / 256)),
		clampChannel(acc),
		clampChannel(mv.Knots),
		bitFix
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// reportNMEA renders one cycle's sentences and feeds the UDP listener.
// All sentences but VTG carry a timestamp, so an untrusted clock
// suppresses the whole cycle.
func (a *app) reportNMEA(utm int64, fix tracker.Fix, mv geo.Movement, fp wifi.Fingerprint) []string {
	if utm <= 0 {
		return nil
	}
	crs := mv.BearingDeg
	if crs < 0 {
		crs = 0
	}
	kmh := int(mv.SpeedMS * 3.6)
	sentences := []string{
		a.enc.GGA(utm, fix.LatDeg, fix.LonDeg, 1, len(fp)),
		a.enc.RMC(utm, fix.LatDeg, fix.LonDeg, mv.Knots, crs),
		a.enc.GLL(utm, fix.LatDeg, fix.LonDeg),
		a.enc.VTG(crs, mv.Knots, kmh),
		a.enc.ZDA(utm),
	}
	if a.nmeaOut != nil {
		if err := a.nmeaOut.SendSentences(sentences); err != nil {
			log.Printf("nmea udp: %v", err)
		}
	}
	return sentences
}

func (a *app) publishFix(now time.Time, fix tracker.Fix, mv geo.Movement, sentences []string) {
	frame := web.PositionFrame{
		Time:       now.UTC().Format(time.RFC3339),
		Valid:      true,
		LatDeg:     fix.LatDeg,
		LonDeg:     fix.LonDeg,
		AccuracyM:  a.lastAcc,
		Locator:    a.tracker.Locator(),
		Knots:      mv.Knots,
		BearingDeg: mv.BearingDeg,
	}
	if mv.BearingDeg >= 0 {
		frame.Cardinal = geo.Cardinal(mv.BearingDeg)
	}
	a.positions.Publish(frame)

	a.mu.Lock()
	a.lastFrame = frame
	a.mu.Unlock()

	if a.mqttOut != nil {
		err := a.mqttOut.PublishFix(mqtt.Fix{
			Time:       frame.Time,
			LatDeg:     frame.LatDeg,
			LonDeg:     frame.LonDeg,
			AccuracyM:  frame.AccuracyM,
			Locator:    frame.Locator,
			Knots:      frame.Knots,
			BearingDeg: frame.BearingDeg,
		})
		if err != nil {
			log.Printf("mqtt: %v", err)
		}
		if err := a.mqttOut.PublishNMEA(sentences); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
}

func (a *app) publishInvalid() {
	frame := web.PositionFrame{
		Time:       a.clk.Now().UTC().Format(time.RFC3339),
		BearingDeg: geo.BearingUndefined,
	}
	a.positions.Publish(frame)
	a.mu.Lock()
	a.lastFrame = frame
	a.mu.Unlock()
}

func (a *app) setAPRSState(s string) {
	a.mu.Lock()
	a.aprsState = s
	a.mu.Unlock()
}

func (a *app) note(msg string) {
	a.mu.Lock()
	a.lastErr = msg
	a.mu.Unlock()
}

func (a *app) finishCycle() {
	a.mu.Lock()
	a.cycles++
	a.lastCycle = a.clk.Now().UTC().Format(time.RFC3339)
	a.mu.Unlock()
}

// status snapshots the app for the web handler; it runs on request
// goroutines concurrently with the report cycle.
func (a *app) status() web.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return web.Status{
		Callsign:     a.cfg.Station.Callsign,
		Backend:      a.cfg.Geolocation.Backend,
		APRSState:    a.aprsState,
		Fix:          a.lastFrame,
		LastError:    a.lastErr,
		CyclesTotal:  a.cycles,
		LastCycleUTC: a.lastCycle,
	}
}
