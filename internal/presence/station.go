// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package presence

import (
	"bufio"
	"context"
	"os/exec"
	"strings"
	"time"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/netutil"
)

// StationSource dumps the associated stations from the wireless driver:
//
//	iw dev <iface> station dump
//
// This is L2 physical presence and catches silent stations that never send
// an IP packet. Wired clients are invisible here; the other two sources
// cover them.
type StationSource struct {
	Iface   string
	Timeout time.Duration

	// runner is swappable for tests.
	runner func(ctx context.Context, iface string) ([]byte, error)
}

// NewStationSource creates a station-dump source for the AP interface.
func NewStationSource(iface string) *StationSource {
	return &StationSource{
		Iface:   iface,
		Timeout: 3 * time.Second,
		runner:  runIWStationDump,
	}
}

func (s *StationSource) Name() string { return "station-dump" }

// Poll invokes the driver dump and collects associated MACs.
func (s *StationSource) Poll(ctx context.Context) ([]Observation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	out, err := s.runner(ctx, s.Iface)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "station dump on %s", s.Iface)
	}
	return parseStationDump(out, s.Name()), nil
}

// parseStationDump extracts MACs from "Station aa:bb:cc:dd:ee:ff (on wlan0)"
// header lines; the per-station detail lines are ignored.
func parseStationDump(out []byte, source string) []Observation {
	var obs []Observation
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Station ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		mac, err := netutil.CanonicalMAC(fields[1])
		if err != nil {
			continue
		}
		obs = append(obs, Observation{MAC: mac, Source: source})
	}
	return obs
}

func runIWStationDump(ctx context.Context, iface string) ([]byte, error) {
	return exec.CommandContext(ctx, "iw", "dev", iface, "station", "dump").Output()
}
