package aprs

import "strings"

// Passcode derives the APRS-IS login code for a callsign: uppercase,
// SSID suffix stripped, successive byte pairs XOR-folded into a 15-bit
// hash. The algorithm is fixed by APRS-IS server-side verification.
func Passcode(callsign string) int {
	cs := strings.ToUpper(callsign)
	if i := strings.IndexByte(cs, '-'); i >= 0 {
		cs = cs[:i]
	}
	hash := 0x73E2
	for i := 0; i < len(cs); i += 2 {
		hash ^= int(cs[i]) << 8
		if i+1 < len(cs) {
			hash ^= int(cs[i+1])
		}
	}
	return hash & 0x7FFF
}
