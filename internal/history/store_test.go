// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndCount(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		err := s.Append(Observation{
			Timestamp:   time.Now(),
			IP:          "192.168.1.10",
			MAC:         "aa:bb:cc:dd:ee:ff",
			PacketRate:  12.5,
			Packets:     60,
			UniquePorts: 3,
			Label:       "normal",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Errorf("count = %d, want 5", n)
	}
}

func TestTrainingRowsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 10; i++ {
		err := s.Append(Observation{
			Timestamp:   time.Now(),
			MAC:         "aa:bb:cc:dd:ee:ff",
			PacketRate:  float64(i),
			UniquePorts: i,
			Label:       "normal",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.TrainingRows(4)
	if err != nil {
		t.Fatalf("training rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	// Newest four, oldest first: rates 6,7,8,9.
	for i, want := range []float64{6, 7, 8, 9} {
		if rows[i][0] != want {
			t.Errorf("rows[%d] rate = %v, want %v", i, rows[i][0], want)
		}
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Append(Observation{Timestamp: time.Now(), MAC: "aa:bb:cc:dd:ee:ff", Packets: int64(i), Label: "normal"}); err != nil {
			t.Fatal(err)
		}
	}

	obs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(obs) != 2 || obs[0].Packets != 2 || obs[1].Packets != 1 {
		t.Errorf("recent = %+v", obs)
	}
}

func TestCSVLogWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behavior.csv")
	log := NewCSVLog(path)

	o := Observation{
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local),
		IP:          "192.168.1.10",
		MAC:         "aa:bb:cc:dd:ee:ff",
		PacketRate:  12.5,
		Packets:     60,
		UniquePorts: 3,
		Score:       50,
		Label:       "suspicious",
	}
	if err := log.Append(o); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := log.Append(o); err != nil {
		t.Fatalf("second append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if lines[0] != "timestamp,ip,mac,packet_rate,packets,unique_ports,score,label" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "12.50") {
		t.Errorf("rate not formatted to two decimals: %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], "suspicious") {
		t.Errorf("row = %q", lines[1])
	}
}
