// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package decoylog reads and writes the decoy-interaction log. The decoy
// listeners append one row per interaction; the correlation engine and the
// dashboard tail it.
package decoylog

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
)

// honeypot.csv column contract, parsed by position.
var header = []string{"timestamp", "source_ip", "service", "username", "password", "metadata"}

// Interaction is one decoy touch: who connected, which trapped service,
// and any credentials they offered.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	SourceIP  string    `json:"source_ip"`
	Service   string    `json:"service"`
	Username  string    `json:"username,omitempty"`
	Password  string    `json:"password,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
}

// Log is the append/tail handle for honeypot.csv.
type Log struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger
}

func New(path string) *Log {
	return &Log{path: path, logger: logging.WithComponent("decoylog")}
}

// Append writes one interaction, creating the file with its header on
// first use.
func (l *Log) Append(in Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(err, errors.KindInternal, "creating data dir")
	}

	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "opening decoy log")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return errors.Wrap(err, errors.KindInternal, "writing decoy header")
		}
	}
	row := []string{
		in.Timestamp.Format(time.DateTime),
		in.SourceIP,
		in.Service,
		in.Username,
		in.Password,
		in.Metadata,
	}
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, errors.KindInternal, "writing decoy row")
	}
	w.Flush()
	return w.Error()
}

// Tail returns up to n most recent interactions, oldest first. A missing
// file yields nil; malformed rows are skipped.
func (l *Log) Tail(n int) ([]Interaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "opening decoy log")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []Interaction
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn("Skipping malformed decoy row", "error", err)
			continue
		}
		if len(rec) < 3 || rec[0] == header[0] {
			continue
		}
		in := Interaction{SourceIP: rec[1], Service: rec[2]}
		if ts, err := time.ParseInLocation(time.DateTime, rec[0], time.Local); err == nil {
			in.Timestamp = ts
		}
		if len(rec) > 3 {
			in.Username = rec[3]
		}
		if len(rec) > 4 {
			in.Password = rec[4]
		}
		if len(rec) > 5 {
			in.Metadata = rec[5]
		}
		out = append(out, in)
	}

	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// CountBySource maps source IP to interaction count over the last n rows.
// Missing or unreadable log yields an empty map.
func (l *Log) CountBySource(n int) map[string]int {
	counts := make(map[string]int)
	rows, err := l.Tail(n)
	if err != nil {
		l.logger.Warn("Decoy log read failed", "error", err)
		return counts
	}
	for _, r := range rows {
		if r.SourceIP != "" {
			counts[r.SourceIP]++
		}
	}
	return counts
}
