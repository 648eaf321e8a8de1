// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package presence

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/netutil"
)

// LeaseFileSource reads dnsmasq-style lease files:
//
//	<expiry-epoch> <mac> <ip> <hostname> <client-id>
//
// Only unexpired entries count as evidence. The first readable candidate
// path wins; dnsmasq and ISC dhcpd install to different locations.
type LeaseFileSource struct {
	Paths  []string
	Now    func() time.Time
	logger *logging.Logger
}

// NewLeaseFileSource creates a lease source over the candidate paths.
func NewLeaseFileSource(paths []string) *LeaseFileSource {
	return &LeaseFileSource{
		Paths:  paths,
		Now:    time.Now,
		logger: logging.WithComponent("presence"),
	}
}

func (s *LeaseFileSource) Name() string { return "dhcp-leases" }

// Poll parses the lease file. Malformed lines are skipped, not fatal.
func (s *LeaseFileSource) Poll(ctx context.Context) ([]Observation, error) {
	var f *os.File
	var err error
	for _, p := range s.Paths {
		f, err = os.Open(p)
		if err == nil {
			break
		}
	}
	if f == nil {
		return nil, errors.Wrap(err, errors.KindUnavailable, "no lease file readable")
	}
	defer f.Close()

	now := s.Now()
	var obs []Observation

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		expiry, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		// Expiry 0 means an infinite static lease in dnsmasq.
		if expiry != 0 && time.Unix(expiry, 0).Before(now) {
			continue
		}

		mac, err := netutil.CanonicalMAC(fields[1])
		if err != nil {
			continue
		}

		o := Observation{
			MAC:    mac,
			IP:     fields[2],
			Source: s.Name(),
		}
		if len(fields) > 3 && fields[3] != "*" {
			o.Hostname = fields[3]
		}
		obs = append(obs, o)
	}
	if err := scanner.Err(); err != nil {
		return obs, errors.Wrap(err, errors.KindUnavailable, "reading lease file")
	}
	return obs, nil
}
