package main

import (
	"net"
	"strings"
	"testing"
	"time"

	"wifi-aprs-tracker/internal/config"
	"wifi-aprs-tracker/internal/udp"
)

func TestAnnounceSendsWelcome(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	b, err := udp.NewBroadcaster(pc.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	var cfg config.Config
	cfg.Station.Callsign = "N0CALL-9"
	a := newApp(cfg, nil, nil)
	a.nmeaOut = b

	a.announce()

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatal(err)
	}
	got := string(buf[:n])
	if !strings.HasPrefix(got, "$PVERS,"+softwareName+","+softwareVersion+",") {
		t.Fatalf("welcome = %q", got)
	}
	if !strings.HasSuffix(got, "\r\n") || got[len(got)-5] != '*' {
		t.Fatalf("welcome trailer = %q", got)
	}
}
