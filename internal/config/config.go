// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the gateway's HCL configuration. Every tunable the
// adaptive loop depends on lives in the defense block so threshold changes
// never require a rebuild.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"grimm.is/warden/internal/errors"
)

// Config is the root configuration document.
type Config struct {
	Network *NetworkConfig `hcl:"network,block"`
	Defense *DefenseConfig `hcl:"defense,block"`
	Decoy   *DecoyConfig   `hcl:"decoy,block"`
	Data    *DataConfig    `hcl:"data,block"`
	API     *APIConfig     `hcl:"api,block"`
}

// NetworkConfig describes the interfaces and host files the gateway observes.
type NetworkConfig struct {
	APInterface string   `hcl:"ap_interface,optional"`
	LeaseFiles  []string `hcl:"lease_files,optional"`
}

// DefenseConfig carries every threshold of the adaptive loop.
type DefenseConfig struct {
	CaptureWindowSec int     `hcl:"capture_window_sec,optional"`
	CycleSleepSec    int     `hcl:"cycle_sleep_sec,optional"`
	OfflineAfterSec  int     `hcl:"offline_after_sec,optional"`

	RateRuleThreshold  float64 `hcl:"rate_rule_threshold,optional"`  // pps for the +50 rule
	PortRuleThreshold  int     `hcl:"port_rule_threshold,optional"`  // unique ports for the +50 rule
	ScanPortsThreshold int     `hcl:"scan_ports_threshold,optional"` // unique ports for the -10 trust delta
	FloodRateThreshold float64 `hcl:"flood_rate_threshold,optional"` // pps for the -5 trust delta

	RedirectBelowTrust int `hcl:"redirect_below_trust,optional"`
	IsolateBelowTrust  int `hcl:"isolate_below_trust,optional"`
	PromoteAboveTrust  int `hcl:"promote_above_trust,optional"`
	PromoteMinAgeSec   int `hcl:"promote_min_age_sec,optional"`

	MinTrainingRows       int     `hcl:"min_training_rows,optional"`
	RetrainProbability    float64 `hcl:"retrain_probability,optional"`
	CorrelationWindowRows int     `hcl:"correlation_window_rows,optional"`

	AlertRingSize int `hcl:"alert_ring_size,optional"`
	HoneypotTail  int `hcl:"honeypot_tail,optional"`
}

// DecoyConfig maps trapped service ports to decoy listener ports.
type DecoyConfig struct {
	SSHPort  int `hcl:"ssh_port,optional"`
	HTTPPort int `hcl:"http_port,optional"`
	SMBPort  int `hcl:"smb_port,optional"`

	SSHDecoy  int `hcl:"ssh_decoy,optional"`
	HTTPDecoy int `hcl:"http_decoy,optional"`
	SMBDecoy  int `hcl:"smb_decoy,optional"`
}

// DataConfig locates the on-disk state the loop reads and writes.
type DataConfig struct {
	Dir string `hcl:"dir,optional"`
}

// APIConfig configures the dashboard-facing HTTP listener.
type APIConfig struct {
	Listen string `hcl:"listen,optional"`
}

// Default returns the configuration the gateway runs with when no file is
// present. The numeric defaults are the tuned operating constants.
func Default() *Config {
	return &Config{
		Network: &NetworkConfig{
			APInterface: "wlan0",
			LeaseFiles: []string{
				"/var/lib/misc/dnsmasq.leases",
				"/var/lib/dnsmasq/dnsmasq.leases",
				"/var/lib/dhcp/dhcpd.leases",
			},
		},
		Defense: &DefenseConfig{
			CaptureWindowSec:      5,
			CycleSleepSec:         1,
			OfflineAfterSec:       30,
			RateRuleThreshold:     100,
			PortRuleThreshold:     20,
			ScanPortsThreshold:    10,
			FloodRateThreshold:    50,
			RedirectBelowTrust:    40,
			IsolateBelowTrust:     20,
			PromoteAboveTrust:     70,
			PromoteMinAgeSec:      60,
			MinTrainingRows:       10,
			RetrainProbability:    0.1,
			CorrelationWindowRows: 50,
			AlertRingSize:         50,
			HoneypotTail:          20,
		},
		Decoy: &DecoyConfig{
			SSHPort:   22,
			HTTPPort:  80,
			SMBPort:   445,
			SSHDecoy:  2222,
			HTTPDecoy: 8080,
			SMBDecoy:  4445,
		},
		Data: &DataConfig{
			Dir: "/var/lib/warden",
		},
		API: &APIConfig{
			Listen: "127.0.0.1:8088",
		},
	}
}

// Load reads an HCL configuration file and merges it over the defaults.
// A missing file yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var loaded Config
	if err := hclsimple.DecodeFile(path, nil, &loaded); err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "parsing %s", path)
	}
	cfg.merge(&loaded)
	return cfg, nil
}

// merge overlays non-zero fields from o onto c, block by block.
func (c *Config) merge(o *Config) {
	if o.Network != nil {
		if o.Network.APInterface != "" {
			c.Network.APInterface = o.Network.APInterface
		}
		if len(o.Network.LeaseFiles) > 0 {
			c.Network.LeaseFiles = o.Network.LeaseFiles
		}
	}
	if o.Defense != nil {
		d, s := c.Defense, o.Defense
		overrideInt(&d.CaptureWindowSec, s.CaptureWindowSec)
		overrideInt(&d.CycleSleepSec, s.CycleSleepSec)
		overrideInt(&d.OfflineAfterSec, s.OfflineAfterSec)
		overrideFloat(&d.RateRuleThreshold, s.RateRuleThreshold)
		overrideInt(&d.PortRuleThreshold, s.PortRuleThreshold)
		overrideInt(&d.ScanPortsThreshold, s.ScanPortsThreshold)
		overrideFloat(&d.FloodRateThreshold, s.FloodRateThreshold)
		overrideInt(&d.RedirectBelowTrust, s.RedirectBelowTrust)
		overrideInt(&d.IsolateBelowTrust, s.IsolateBelowTrust)
		overrideInt(&d.PromoteAboveTrust, s.PromoteAboveTrust)
		overrideInt(&d.PromoteMinAgeSec, s.PromoteMinAgeSec)
		overrideInt(&d.MinTrainingRows, s.MinTrainingRows)
		overrideFloat(&d.RetrainProbability, s.RetrainProbability)
		overrideInt(&d.CorrelationWindowRows, s.CorrelationWindowRows)
		overrideInt(&d.AlertRingSize, s.AlertRingSize)
		overrideInt(&d.HoneypotTail, s.HoneypotTail)
	}
	if o.Decoy != nil {
		d, s := c.Decoy, o.Decoy
		overrideInt(&d.SSHPort, s.SSHPort)
		overrideInt(&d.HTTPPort, s.HTTPPort)
		overrideInt(&d.SMBPort, s.SMBPort)
		overrideInt(&d.SSHDecoy, s.SSHDecoy)
		overrideInt(&d.HTTPDecoy, s.HTTPDecoy)
		overrideInt(&d.SMBDecoy, s.SMBDecoy)
	}
	if o.Data != nil && o.Data.Dir != "" {
		c.Data.Dir = o.Data.Dir
	}
	if o.API != nil && o.API.Listen != "" {
		c.API.Listen = o.API.Listen
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func overrideFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// Durations derived from the integer-second fields.

func (d *DefenseConfig) CaptureWindow() time.Duration {
	return time.Duration(d.CaptureWindowSec) * time.Second
}

func (d *DefenseConfig) CycleSleep() time.Duration {
	return time.Duration(d.CycleSleepSec) * time.Second
}

func (d *DefenseConfig) OfflineAfter() time.Duration {
	return time.Duration(d.OfflineAfterSec) * time.Second
}

func (d *DefenseConfig) PromoteMinAge() time.Duration {
	return time.Duration(d.PromoteMinAgeSec) * time.Second
}

// DecoyPortMap returns trapped port -> decoy port in a stable order.
func (d *DecoyConfig) DecoyPortMap() [][2]int {
	return [][2]int{
		{d.SSHPort, d.SSHDecoy},
		{d.HTTPPort, d.HTTPDecoy},
		{d.SMBPort, d.SMBDecoy},
	}
}

// File paths under the data directory. The names are a stable on-disk
// contract shared with the decoy listeners and the dashboard.

func (dc *DataConfig) BehaviorCSV() string {
	return filepath.Join(dc.Dir, "behavior.csv")
}

func (dc *DataConfig) HoneypotCSV() string {
	return filepath.Join(dc.Dir, "honeypot.csv")
}

func (dc *DataConfig) DevicesJSON() string {
	return filepath.Join(dc.Dir, "devices.json")
}

func (dc *DataConfig) AuditLog() string {
	return filepath.Join(dc.Dir, "iptables_actions.log")
}

func (dc *DataConfig) HistoryDB() string {
	return filepath.Join(dc.Dir, "history.db")
}
