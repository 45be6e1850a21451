// Package nmea generates NMEA-0183 sentences (GGA, RMC, GLL, VTG, ZDA)
// from a resolved position, mimicking a GPS receiver so standard
// navigation clients can consume the tracker's output.
package nmea

import "fmt"

// year2000 is the unix timestamp of 2000-01-01T00:00:00Z, the epoch the
// date decomposition counts from.
const year2000 = 946684800

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// Encoder builds sentences. It memoizes the time and coordinate field
// decompositions, which repeat across the sentences of one report
// cycle. Not safe for concurrent use.
type Encoder struct {
	utm     int64
	hasTime bool
	yy      int // years since 2000
	ll      int // month 1-12
	dd      int // day 1-31
	hh, mm  int
	ss      int

	lat          float64
	hasLat       bool
	latDD, latMM int
	latFF        int
	lng          float64
	hasLng       bool
	lngDD, lngMM int
	lngFF        int
}

// Checksum XORs the sentence body, the bytes between '$' and '*'.
func Checksum(body string) byte {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return c
}

// finish appends the checksum and line terminator to a sentence body
// that includes the leading '$'.
func finish(sentence string) string {
	return fmt.Sprintf("%s*%02X\r\n", sentence, Checksum(sentence[1:]))
}

// calcTime splits a unix timestamp into time and date fields. The year
// count applies the plain year%4 leap rule: exact through 2099, and
// kept that way since downstream consumers see the same dates either
// way within that span.
func (e *Encoder) calcTime(utm int64) {
	if e.hasTime && utm == e.utm {
		return
	}
	e.utm = utm
	e.hasTime = true

	t := utm - year2000
	e.ss = int(t % 60)
	t /= 60
	e.mm = int(t % 60)
	t /= 60
	e.hh = int(t % 24)
	days := int(t / 24)

	leap := 0
	yy := 0
	for ; ; yy++ {
		leap = 0
		if yy%4 == 0 {
			leap = 1
		}
		if days < 365+leap {
			break
		}
		days -= 365 + leap
	}
	e.yy = yy

	ll := 1
	for ; ; ll++ {
		d := daysInMonth[ll-1]
		if leap == 1 && ll == 2 {
			d++
		}
		if days < d {
			break
		}
		days -= d
	}
	e.ll = ll
	e.dd = days + 1
}

// calcCoords splits decimal degrees into whole degrees, whole minutes
// and 1/10000 minutes, per coordinate memoized on its input.
func (e *Encoder) calcCoords(lat, lng float64) {
	if !e.hasLat || lat != e.lat {
		a := lat
		if a < 0 {
			a = -a
		}
		e.latDD = int(a)
		m := int((a - float64(e.latDD)) * 60 * 10000)
		e.latFF = m % 10000
		e.latMM = m / 10000
		e.lat = lat
		e.hasLat = true
	}
	if !e.hasLng || lng != e.lng {
		a := lng
		if a < 0 {
			a = -a
		}
		e.lngDD = int(a)
		m := int((a - float64(e.lngDD)) * 60 * 10000)
		e.lngFF = m % 10000
		e.lngMM = m / 10000
		e.lng = lng
		e.hasLng = true
	}
}

func (e *Encoder) ns(lat float64) byte {
	if lat >= 0 {
		return 'N'
	}
	return 'S'
}

func (e *Encoder) ew(lng float64) byte {
	if lng >= 0 {
		return 'E'
	}
	return 'W'
}

// GGA returns a fix-data sentence: time, position, fix quality and
// satellite count. HDOP, altitude and geoid separation are fixed, as a
// geolocation fix has no meaningful values for them.
func (e *Encoder) GGA(utm int64, lat, lng float64, fix, sat int) string {
	e.calcCoords(lat, lng)
	e.calcTime(utm)
	s := fmt.Sprintf("$GPGGA,%02d%02d%02d.0,%02d%02d.%04d,%c,%03d%02d.%04d,%c,%d,%d,1,0,M,0,M,,",
		e.hh, e.mm, e.ss,
		e.latDD, e.latMM, e.latFF, e.ns(lat),
		e.lngDD, e.lngMM, e.lngFF, e.ew(lng),
		fix, sat)
	return finish(s)
}

// RMC returns the recommended-minimum sentence: time, position, speed
// over ground in knots, course and date.
func (e *Encoder) RMC(utm int64, lat, lng float64, spd, crs int) string {
	e.calcCoords(lat, lng)
	e.calcTime(utm)
	if crs < 0 {
		crs = 0
	}
	s := fmt.Sprintf("$GPRMC,%02d%02d%02d.0,A,%02d%02d.%04d,%c,%03d%02d.%04d,%c,%03d.0,%03d.0,%02d%02d%02d,,,E",
		e.hh, e.mm, e.ss,
		e.latDD, e.latMM, e.latFF, e.ns(lat),
		e.lngDD, e.lngMM, e.lngFF, e.ew(lng),
		spd, crs,
		e.dd, e.ll, e.yy)
	return finish(s)
}

// GLL returns a geographic-position sentence.
func (e *Encoder) GLL(utm int64, lat, lng float64) string {
	e.calcCoords(lat, lng)
	e.calcTime(utm)
	s := fmt.Sprintf("$GPGLL,%02d%02d.%04d,%c,%03d%02d.%04d,%c,%02d%02d%02d.0,A,E",
		e.latDD, e.latMM, e.latFF, e.ns(lat),
		e.lngDD, e.lngMM, e.lngFF, e.ew(lng),
		e.hh, e.mm, e.ss)
	return finish(s)
}

// VTG returns a track-and-speed sentence.
func (e *Encoder) VTG(crs, knots, kmh int) string {
	if crs < 0 {
		crs = 0
	}
	s := fmt.Sprintf("$GPVTG,%03d.0,T,,M,%03d.0,N,%03d.0,K,E", crs, knots, kmh)
	return finish(s)
}

// ZDA returns a time-and-date sentence.
func (e *Encoder) ZDA(utm int64) string {
	e.calcTime(utm)
	s := fmt.Sprintf("$GPZDA,%02d%02d%02d.0,%02d,%02d,%04d,,",
		e.hh, e.mm, e.ss, e.dd, e.ll, e.yy+2000)
	return finish(s)
}

// Welcome returns the proprietary version-identification sentence sent
// once per client session.
func (e *Encoder) Welcome(name, version, date string) string {
	return finish("$PVERS," + name + "," + version + "," + date)
}
