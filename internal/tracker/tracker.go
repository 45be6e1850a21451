// Package tracker maintains the current and previous position fixes.
// It decides when a scan warrants a fresh geolocation query, gates
// results on their accuracy, ages out stale history and derives
// movement between the two retained fixes.
package tracker

import (
	"context"
	"sync"
	"time"

	"wifi-aprs-tracker/internal/clock"
	"wifi-aprs-tracker/internal/geo"
	"wifi-aprs-tracker/internal/geoloc"
	"wifi-aprs-tracker/internal/wifi"
)

// DefaultMaxAccuracyM rejects fixes whose accuracy radius exceeds this.
// Web geolocation can hand back city-sized circles when it only
// recognizes a rough area; those are worse than no fix at all.
const DefaultMaxAccuracyM = 5000

// previousMaxAge bounds how old the previous fix may be and still be
// used for movement derivation.
const previousMaxAge = time.Hour

// UnchangedAccuracyM is returned by Update when the fingerprint did not
// change and the query was suppressed.
const UnchangedAccuracyM = 1

// Fix is one resolved position. Uptime records when it was obtained,
// on the monotonic boot clock rather than the wall clock.
type Fix struct {
	LatDeg float64
	LonDeg float64
	Valid  bool
	Uptime time.Duration
}

// Tracker is written only by the poll loop; the mutex exists for the
// web/MQTT readers that snapshot state concurrently.
type Tracker struct {
	mu       sync.Mutex
	provider geoloc.Provider
	maxAccM  int
	uptime   func() time.Duration

	current  Fix
	previous Fix
	baseline wifi.Fingerprint
	locator  string
}

func New(provider geoloc.Provider, maxAccuracyM int) *Tracker {
	if maxAccuracyM <= 0 {
		maxAccuracyM = DefaultMaxAccuracyM
	}
	return &Tracker{
		provider: provider,
		maxAccM:  maxAccuracyM,
		uptime:   clock.Uptime,
	}
}

// Update feeds one scan through the tracker. It returns the accuracy of
// the accepted fix in meters, UnchangedAccuracyM when the query was
// suppressed, or a negative value on failure: -code for a backend
// error, -1 for a transport error (err carries the detail).
func (t *Tracker) Update(ctx context.Context, fp wifi.Fingerprint) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.uptime()

	// An unchanged radio environment means an unchanged position: keep
	// the fix fresh without spending a query.
	if t.current.Valid && !wifi.Changed(t.baseline, fp) {
		t.current.Uptime = now
		t.locator = geo.Locator(t.current.LatDeg, t.current.LonDeg)
		return UnchangedAccuracyM, nil
	}

	t.baseline = append(wifi.Fingerprint(nil), fp...)

	res, err := t.provider.Locate(ctx, fp)

	if t.previous.Valid && now-t.previous.Uptime > previousMaxAge {
		t.previous.Valid = false
	}

	if err != nil {
		t.current.Valid = false
		if apiErr, ok := err.(*geoloc.APIError); ok {
			return -apiErr.Code, err
		}
		return -1, err
	}

	if res.AccuracyM < 0 || res.AccuracyM > t.maxAccM {
		t.current.Valid = false
		return res.AccuracyM, nil
	}

	if t.current.Valid {
		t.previous = t.current
	}
	t.current = Fix{
		LatDeg: res.LatDeg,
		LonDeg: res.LonDeg,
		Valid:  true,
		Uptime: now,
	}
	t.locator = geo.Locator(res.LatDeg, res.LonDeg)
	return res.AccuracyM, nil
}

// Movement derives distance, speed and bearing from the previous fix to
// the current one. Zero-valued when either fix is missing.
func (t *Tracker) Movement() geo.Movement {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current.Valid || !t.previous.Valid {
		return geo.Movement{BearingDeg: geo.BearingUndefined}
	}
	// A fix pair spanning more than the history window says nothing
	// useful about speed.
	if t.current.Uptime-t.previous.Uptime > previousMaxAge {
		return geo.Movement{BearingDeg: geo.BearingUndefined}
	}
	elapsed := (t.current.Uptime - t.previous.Uptime).Seconds()
	return geo.DeriveMovement(
		t.previous.LatDeg, t.previous.LonDeg,
		t.current.LatDeg, t.current.LonDeg,
		elapsed,
	)
}

func (t *Tracker) Current() Fix {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) Previous() Fix {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.previous
}

// Locator returns the Maidenhead grid square of the current fix, or ""
// before the first accepted fix.
func (t *Tracker) Locator() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locator
}

func (t *Tracker) Valid() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Valid
}
