// Package wifi models a WiFi scan fingerprint: the set of nearby access
// points with their signal levels, used as the input to geolocation and
// as the basis for deciding whether the radio environment has changed
// enough to warrant a fresh position query.
package wifi

import (
	"context"
	"fmt"
	"sort"
)

// MaxNetworks caps how many access points a fingerprint carries. Scans
// are truncated to the strongest entries beyond this.
const MaxNetworks = 32

// rssiChangeThreshold is the per-AP signal swing, in dBm, below which a
// level change is treated as noise.
const rssiChangeThreshold = 10

// Network is one observed access point.
type Network struct {
	BSSID [6]byte
	RSSI  int // dBm, typically -30..-95
}

// String formats the BSSID in the usual colon-separated form.
func (n Network) String() string {
	b := n.BSSID
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		b[0], b[1], b[2], b[3], b[4], b[5])
}

// ParseBSSID parses a colon-separated MAC address.
func ParseBSSID(s string) ([6]byte, error) {
	var b [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return b, fmt.Errorf("bad BSSID %q", s)
	}
	return b, nil
}

// Fingerprint is a snapshot of the visible networks, strongest first.
type Fingerprint []Network

// Sort orders the fingerprint by descending RSSI, BSSID as tiebreak so
// equal-signal scans compare stably.
func (fp Fingerprint) Sort() {
	sort.Slice(fp, func(i, j int) bool {
		if fp[i].RSSI != fp[j].RSSI {
			return fp[i].RSSI > fp[j].RSSI
		}
		return lessBSSID(fp[i].BSSID, fp[j].BSSID)
	})
}

func lessBSSID(a, b [6]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Changed reports whether the radio environment differs significantly
// between two fingerprints: a different network count, any BSSID that
// appeared or disappeared, or a shared BSSID whose level moved by more
// than 10 dBm.
func Changed(old, cur Fingerprint) bool {
	if len(old) != len(cur) {
		return true
	}
	levels := make(map[[6]byte]int, len(old))
	for _, n := range old {
		levels[n.BSSID] = n.RSSI
	}
	for _, n := range cur {
		prev, ok := levels[n.BSSID]
		if !ok {
			return true
		}
		d := n.RSSI - prev
		if d < 0 {
			d = -d
		}
		if d > rssiChangeThreshold {
			return true
		}
	}
	return false
}

// Scanner produces WiFi fingerprints. Implementations own the platform
// specifics; callers only see the fingerprint model.
type Scanner interface {
	Scan(ctx context.Context) (Fingerprint, error)
}
