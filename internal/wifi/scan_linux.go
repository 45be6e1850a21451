//go:build linux

package wifi

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// NMCLIScanner scans via NetworkManager's nmcli. It asks for a rescan
// on every call so the fingerprint tracks the current environment
// rather than the cache.
type NMCLIScanner struct {
	// Iface restricts the scan to one wireless device; empty scans all.
	Iface string
}

func NewScanner(iface string) *NMCLIScanner {
	return &NMCLIScanner{Iface: iface}
}

func (s *NMCLIScanner) Scan(ctx context.Context) (Fingerprint, error) {
	// Scanning can take a while on some chipsets/drivers; keep this bounded but
	// long enough to avoid spurious cancellations.
	cmdCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	args := []string{"-t", "-f", "IN-USE,BSSID,SIGNAL", "dev", "wifi", "list", "--rescan", "yes"}
	if s.Iface != "" {
		args = append(args, "ifname", s.Iface)
	}

	cmd := exec.CommandContext(cmdCtx, "nmcli", args...)
	out, err := cmd.Output()
	if err != nil {
		if cmdCtx.Err() != nil {
			// When the context is canceled, exec.CommandContext may report "signal: killed".
			return nil, fmt.Errorf("nmcli scan timed out")
		}
		if ee, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(ee.Stderr))
			if stderr != "" {
				return nil, fmt.Errorf("nmcli failed: %s", stderr)
			}
		}
		return nil, fmt.Errorf("nmcli failed: %v", err)
	}

	return parseNMCLIScan(string(out))
}

func parseNMCLIScan(out string) (Fingerprint, error) {
	fp := make(Fingerprint, 0, MaxNetworks)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := splitTerseLine(line)
		if len(parts) < 3 {
			continue
		}
		// The AP this station is associated with is excluded: its level
		// swings with traffic and it would anchor every fingerprint.
		if strings.TrimSpace(parts[0]) == "*" {
			continue
		}
		bssid, err := ParseBSSID(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			continue
		}
		fp = append(fp, Network{BSSID: bssid, RSSI: signalToDBM(pct)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("nmcli parse failed: %v", err)
	}

	fp.Sort()
	if len(fp) > MaxNetworks {
		fp = fp[:MaxNetworks]
	}
	return fp, nil
}

// signalToDBM undoes NetworkManager's percent mapping, which is a
// linear stretch of -100..-50 dBm onto 0..100.
func signalToDBM(pct int) int {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct/2 - 100
}

func splitTerseLine(line string) []string {
	// nmcli -t output uses ':' separators and escapes ':' and '\\' with a
	// backslash, which matters here because BSSIDs are colon-separated.
	fields := make([]string, 0, 4)
	var b strings.Builder
	b.Grow(len(line))
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == ':' {
			fields = append(fields, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(c)
	}
	if escaped {
		b.WriteByte('\\')
	}
	fields = append(fields, b.String())
	return fields
}
