// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package enforce

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"grimm.is/warden/internal/errors"
	"grimm.is/warden/internal/logging"
)

// Archiver snapshots the forensic state files into a timestamped zip when a
// device is contained.
type Archiver struct {
	dataDir string
	files   []string
	logger  *logging.Logger
	now     func() time.Time
}

// NewArchiver archives the named files (absolute paths) into dataDir.
func NewArchiver(dataDir string, files []string) *Archiver {
	return &Archiver{
		dataDir: dataDir,
		files:   files,
		logger:  logging.WithComponent("evidence"),
		now:     time.Now,
	}
}

// Archive writes evidence_<unix-ts>.zip and returns its path. Files that do
// not exist yet are skipped; an isolate must never fail on missing evidence.
func (a *Archiver) Archive() (string, error) {
	if err := os.MkdirAll(a.dataDir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "creating data dir")
	}

	path := filepath.Join(a.dataDir, fmt.Sprintf("evidence_%d.zip", a.now().Unix()))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "creating evidence archive")
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, src := range a.files {
		if err := a.addFile(zw, src); err != nil {
			a.logger.Warn("Skipping evidence file", "file", src, "error", err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "finalizing evidence archive")
	}
	a.logger.Info("Evidence archived", "path", path)
	return path, nil
}

func (a *Archiver) addFile(zw *zip.Writer, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := zw.Create(filepath.Base(src))
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	return err
}
