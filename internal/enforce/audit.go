// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package enforce

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"grimm.is/warden/internal/errors"
)

// AuditLog appends one line per enforcement action in the contracted
// `[timestamp] ACTION: detail` form.
type AuditLog struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path, now: time.Now}
}

// Record appends one action line.
func (a *AuditLog) Record(action, detail string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return errors.Wrap(err, errors.KindInternal, "creating data dir")
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "opening audit log")
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s: %s\n", a.now().Format(time.DateTime), action, detail)
	if _, err := f.WriteString(line); err != nil {
		return errors.Wrap(err, errors.KindInternal, "writing audit line")
	}
	return nil
}
