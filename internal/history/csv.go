// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/warden/internal/errors"
)

// behavior.csv column contract. External consumers parse by position.
var behaviorHeader = []string{
	"timestamp", "ip", "mac", "packet_rate", "packets", "unique_ports", "score", "label",
}

// CSVLog appends observations to the contracted behavior.csv.
type CSVLog struct {
	mu   sync.Mutex
	path string
}

// NewCSVLog creates an appender for path.
func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

// Append writes one row, creating the file with its header on first use.
func (l *CSVLog) Append(o Observation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.Wrap(err, errors.KindInternal, "creating data dir")
	}

	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "opening behavior log")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(behaviorHeader); err != nil {
			return errors.Wrap(err, errors.KindInternal, "writing behavior header")
		}
	}
	row := []string{
		o.Timestamp.Format(time.DateTime),
		o.IP,
		o.MAC,
		fmt.Sprintf("%.2f", o.PacketRate),
		fmt.Sprintf("%d", o.Packets),
		fmt.Sprintf("%d", o.UniquePorts),
		fmt.Sprintf("%d", o.Score),
		o.Label,
	}
	if err := w.Write(row); err != nil {
		return errors.Wrap(err, errors.KindInternal, "writing behavior row")
	}
	w.Flush()
	return w.Error()
}
