//go:build linux

package wifi

import "testing"

func TestParseNMCLIScan(t *testing.T) {
	out := "*:AA\\:BB\\:CC\\:00\\:11\\:01:80\n" +
		":AA\\:BB\\:CC\\:00\\:11\\:02:70\n" +
		":AA\\:BB\\:CC\\:00\\:11\\:03:90\n" +
		"\n" +
		":garbage:xx\n"
	fp, err := parseNMCLIScan(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(fp) != 2 {
		t.Fatalf("expected 2 networks (in-use and garbage dropped), got %d: %v", len(fp), fp)
	}
	// Sorted strongest first: 90% -> -55 dBm before 70% -> -65 dBm.
	if fp[0].BSSID != mac(3) || fp[0].RSSI != -55 {
		t.Fatalf("first entry: %v %d", fp[0], fp[0].RSSI)
	}
	if fp[1].BSSID != mac(2) || fp[1].RSSI != -65 {
		t.Fatalf("second entry: %v %d", fp[1], fp[1].RSSI)
	}
}

func TestParseNMCLIScanCapped(t *testing.T) {
	var out string
	for i := 0; i < MaxNetworks+8; i++ {
		out += ":AA\\:BB\\:CC\\:00\\:" +
			string([]byte{hexDigit(i >> 4), hexDigit(i & 0xF)}) + "\\:01:50\n"
	}
	fp, err := parseNMCLIScan(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(fp) != MaxNetworks {
		t.Fatalf("expected cap at %d, got %d", MaxNetworks, len(fp))
	}
}

func hexDigit(n int) byte {
	const digits = "0123456789abcdef"
	return digits[n]
}

func TestSignalToDBM(t *testing.T) {
	cases := []struct{ pct, dbm int }{
		{0, -100},
		{100, -50},
		{50, -75},
		{130, -50},
		{-5, -100},
	}
	for _, c := range cases {
		if got := signalToDBM(c.pct); got != c.dbm {
			t.Errorf("signalToDBM(%d) = %d, want %d", c.pct, got, c.dbm)
		}
	}
}
