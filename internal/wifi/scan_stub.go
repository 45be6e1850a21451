//go:build !linux

package wifi

import (
	"context"
	"fmt"
)

// NMCLIScanner is only functional on Linux; this stub keeps the package
// building elsewhere for development.
type NMCLIScanner struct {
	Iface string
}

func NewScanner(iface string) *NMCLIScanner {
	return &NMCLIScanner{Iface: iface}
}

func (s *NMCLIScanner) Scan(ctx context.Context) (Fingerprint, error) {
	return nil, fmt.Errorf("wifi scanning not supported on this platform")
}
