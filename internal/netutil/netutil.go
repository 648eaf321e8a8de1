// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package netutil provides MAC and IP helpers shared across the gateway.
// MAC addresses are the device identity; every component that keys on a MAC
// goes through CanonicalMAC first so map keys compare equal.
package netutil

import (
	"fmt"
	"net"
	"strings"

	"grimm.is/warden/internal/errors"
)

// CanonicalMAC returns the canonical lowercase colon-separated form of a MAC
// address, or an error if the input is not a 48-bit hardware address.
func CanonicalMAC(macStr string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(macStr))
	if err != nil {
		return "", errors.Wrapf(err, errors.KindValidation, "invalid MAC %q", macStr)
	}
	if len(hw) != 6 {
		return "", errors.Errorf(errors.KindValidation, "not a 48-bit MAC: %q", macStr)
	}
	return FormatMAC(hw), nil
}

// FormatMAC formats a 6-byte hardware address as lowercase aa:bb:cc:dd:ee:ff.
func FormatMAC(mac []byte) string {
	if len(mac) != 6 {
		return ""
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}

// ValidateMAC rejects anything that is not six colon-separated octets.
// Enforcement actions refuse to build rules from unvalidated input.
func ValidateMAC(macStr string) error {
	parts := strings.Split(strings.TrimSpace(macStr), ":")
	if len(parts) != 6 {
		return errors.Errorf(errors.KindValidation, "MAC must be six colon-separated octets: %q", macStr)
	}
	if _, err := net.ParseMAC(strings.TrimSpace(macStr)); err != nil {
		return errors.Wrapf(err, errors.KindValidation, "invalid MAC %q", macStr)
	}
	return nil
}

// ValidateTargetIP rejects anything that is not a plain IPv4 literal suitable
// as an enforcement target: no loopback, no multicast, no unspecified.
func ValidateTargetIP(ipStr string) error {
	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil || ip.To4() == nil {
		return errors.Errorf(errors.KindValidation, "not an IPv4 literal: %q", ipStr)
	}
	if ip.IsLoopback() {
		return errors.Errorf(errors.KindValidation, "refusing loopback target %q", ipStr)
	}
	if ip.IsMulticast() {
		return errors.Errorf(errors.KindValidation, "refusing multicast target %q", ipStr)
	}
	if ip.IsUnspecified() {
		return errors.Errorf(errors.KindValidation, "refusing unspecified target %q", ipStr)
	}
	return nil
}
