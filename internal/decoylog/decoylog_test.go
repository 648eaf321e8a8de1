// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package decoylog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "honeypot.csv")
	log := New(path)

	for i := 0; i < 5; i++ {
		err := log.Append(Interaction{
			Timestamp: time.Now(),
			SourceIP:  "192.168.1.50",
			Service:   "ssh",
			Username:  "admin",
			Password:  "hunter2",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rows, err := log.Tail(3)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].SourceIP != "192.168.1.50" || rows[0].Service != "ssh" || rows[0].Username != "admin" {
		t.Errorf("row = %+v", rows[0])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "timestamp,source_ip,service,username,password,metadata") {
		t.Errorf("missing header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestTailMissingFile(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "missing.csv"))
	rows, err := log.Tail(10)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if rows != nil {
		t.Errorf("rows = %+v, want nil", rows)
	}
}

func TestTailSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "honeypot.csv")
	content := `timestamp,source_ip,service,username,password,metadata
2026-01-01 10:00:00,192.168.1.5,ssh,root,toor,
garbage
2026-01-01 10:00:05,192.168.1.6,http,,,scan
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := New(path).Tail(10)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].SourceIP != "192.168.1.6" || rows[1].Metadata != "scan" {
		t.Errorf("row = %+v", rows[1])
	}
}

func TestCountBySource(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "honeypot.csv"))
	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		if err := log.Append(Interaction{Timestamp: time.Now(), SourceIP: ip, Service: "smb"}); err != nil {
			t.Fatal(err)
		}
	}

	counts := log.CountBySource(50)
	if counts["10.0.0.1"] != 2 || counts["10.0.0.2"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestCountBySourceWindowed(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "honeypot.csv"))
	for i := 0; i < 10; i++ {
		if err := log.Append(Interaction{Timestamp: time.Now(), SourceIP: "10.0.0.1", Service: "ssh"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := log.Append(Interaction{Timestamp: time.Now(), SourceIP: "10.0.0.9", Service: "ssh"}); err != nil {
		t.Fatal(err)
	}

	// Only the newest rows are in the window.
	counts := log.CountBySource(2)
	if counts["10.0.0.1"] != 1 || counts["10.0.0.9"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
