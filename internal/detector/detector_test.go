// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detector

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/history"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(config.Default().Defense, store, nil)
}

func TestScoreRuleStage(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name      string
		rate      float64
		ports     int
		wantScore int
		wantAnom  bool
		reasons   []string
	}{
		{"benign", 10, 3, 0, false, nil},
		{"flood only", 150, 3, 50, true, []string{ReasonHighRate}},
		{"scan only", 10, 25, 50, true, []string{ReasonPortScan}},
		{"flood and scan", 150, 25, 100, true, []string{ReasonHighRate, ReasonPortScan}},
		{"at thresholds, not over", 100, 20, 0, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := d.Score(tt.rate, tt.ports)
			if v.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", v.Score, tt.wantScore)
			}
			if v.Anomalous != tt.wantAnom {
				t.Errorf("anomalous = %v, want %v", v.Anomalous, tt.wantAnom)
			}
			if !reflect.DeepEqual(v.Reasons, tt.reasons) {
				t.Errorf("reasons = %v, want %v", v.Reasons, tt.reasons)
			}
		})
	}
}

func TestScoreRuleOnlyBeforeTraining(t *testing.T) {
	d := newTestDetector(t)
	if d.Fitted() {
		t.Fatal("detector should start unfitted")
	}
	v := d.Score(10, 3)
	for _, r := range v.Reasons {
		if r == ReasonML {
			t.Error("learned stage fired without a fitted model")
		}
	}
}

func TestObserveRequestsRetrainProbabilistically(t *testing.T) {
	d := newTestDetector(t)

	obs := history.Observation{Timestamp: time.Now(), MAC: "aa:bb:cc:dd:ee:ff", Label: "normal"}

	d.randFloat = func() float64 { return 0.99 } // above probability: no request
	d.Observe(obs)
	select {
	case <-d.retrainCh:
		t.Fatal("retrain requested despite losing the coin flip")
	default:
	}

	d.randFloat = func() float64 { return 0.0 } // below probability: request
	d.Observe(obs)
	select {
	case <-d.retrainCh:
	default:
		t.Fatal("retrain not requested")
	}

	// The queue is one slot with drop-on-full; a burst must not block.
	for i := 0; i < 10; i++ {
		d.Observe(obs)
	}
}

func TestRetrainRequiresMinimumRows(t *testing.T) {
	d := newTestDetector(t)

	for i := 0; i < 3; i++ {
		d.Observe(history.Observation{Timestamp: time.Now(), MAC: "aa:bb:cc:dd:ee:ff", PacketRate: 10, UniquePorts: 2, Label: "normal"})
	}
	d.retrain()
	if d.Fitted() {
		t.Error("model fitted below the minimum row count")
	}
}

func TestRetrainFitsAboveMinimumRows(t *testing.T) {
	d := newTestDetector(t)

	for i := 0; i < 40; i++ {
		d.Observe(history.Observation{
			Timestamp:   time.Now(),
			MAC:         "aa:bb:cc:dd:ee:ff",
			PacketRate:  float64(5 + i%10),
			UniquePorts: 1 + i%4,
			Label:       "normal",
		})
	}
	d.retrain()
	if !d.Fitted() {
		t.Fatal("model not fitted with sufficient history")
	}

	// With a live model, scoring still returns a verdict without blocking.
	v := d.Score(8, 2)
	if v.Score > 100 {
		t.Errorf("score above cap: %d", v.Score)
	}
}

func TestInstancesFromRows(t *testing.T) {
	grid, err := instancesFromRows([][2]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("instancesFromRows: %v", err)
	}
	_, rows := grid.Size()
	if rows != 3 {
		t.Errorf("rows = %d, want 3", rows)
	}
	// Fit refuses a grid that does not carry exactly one class attribute.
	if n := len(grid.AllClassAttributes()); n != 1 {
		t.Errorf("class attributes = %d, want 1", n)
	}
}
