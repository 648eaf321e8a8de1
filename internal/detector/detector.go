// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package detector implements the hybrid anomaly detector: threshold rules
// over (packet_rate, unique_ports) plus an isolation-forest outlier stage
// trained on the behavior history.
package detector

import (
	"context"
	"math/rand"
	"sync"

	"github.com/sjwhitworth/golearn/trees"

	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/history"
	"grimm.is/warden/internal/logging"
)

// Stable reason strings, enumerated in this order in every verdict.
const (
	ReasonHighRate = "High Packet Rate"
	ReasonPortScan = "Port Scan Detected"
	ReasonML       = "ML Anomaly Detected"
)

// Scoring constants. The rule stage alone can cross the anomaly bar.
const (
	ruleRateScore    = 50
	rulePortScore    = 50
	mlScore          = 30
	anomalyBar       = 50
	scoreCap         = 100
	outlierThreshold = 0.6 // isolation-forest anomaly score above this is an outlier

	forestTrees    = 100
	forestDepth    = 8
	forestSubSpace = 256
	trainingWindow = 500 // most recent rows considered per fit
)

// Verdict is the detector's judgment for one device-cycle.
type Verdict struct {
	Score     int
	Anomalous bool
	Reasons   []string
}

// Detector scores feature pairs and opportunistically retrains its model.
//
// The model mutex makes fit and predict mutually exclusive. Predict uses
// TryLock: if a fit is in flight the learned stage is skipped and the
// verdict is rule-only, so scoring never blocks the loop.
type Detector struct {
	cfg    *config.DefenseConfig
	store  *history.Store
	csv    *history.CSVLog
	logger *logging.Logger

	modelMu sync.Mutex
	forest  trees.IsolationForest
	fitted  bool

	// retrainCh is a 1-slot queue with drop-on-full semantics: at most one
	// retrain pending, at most one running.
	retrainCh chan struct{}

	// OnRetrain, if set, is called after each successful fit.
	OnRetrain func()

	randFloat func() float64
}

// New creates a detector over the history store. csv may be nil in tests.
func New(cfg *config.DefenseConfig, store *history.Store, csv *history.CSVLog) *Detector {
	return &Detector{
		cfg:       cfg,
		store:     store,
		csv:       csv,
		logger:    logging.WithComponent("detector"),
		retrainCh: make(chan struct{}, 1),
		randFloat: rand.Float64,
	}
}

// Start launches the retrain worker. It exits when ctx is cancelled.
func (d *Detector) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.retrainCh:
				d.retrain()
			}
		}
	}()
}

// Score evaluates one feature pair. Pure with respect to the inputs and the
// current model state; the only side effect anywhere in the detector is the
// training coin-flip in Observe.
func (d *Detector) Score(packetRate float64, uniquePorts int) Verdict {
	var v Verdict

	if packetRate > d.cfg.RateRuleThreshold {
		v.Score += ruleRateScore
		v.Reasons = append(v.Reasons, ReasonHighRate)
	}
	if uniquePorts > d.cfg.PortRuleThreshold {
		v.Score += rulePortScore
		v.Reasons = append(v.Reasons, ReasonPortScan)
	}

	if d.predictOutlier(packetRate, uniquePorts) {
		v.Score += mlScore
		v.Reasons = append(v.Reasons, ReasonML)
	}

	if v.Score > scoreCap {
		v.Score = scoreCap
	}
	v.Anomalous = v.Score >= anomalyBar
	return v
}

// predictOutlier runs the learned stage. Returns false whenever the model
// is unavailable: not yet fitted, fit in flight, or predict failure.
func (d *Detector) predictOutlier(packetRate float64, uniquePorts int) (outlier bool) {
	if !d.modelMu.TryLock() {
		return false
	}
	defer d.modelMu.Unlock()

	if !d.fitted {
		return false
	}

	// golearn panics rather than returning errors; a predict failure
	// degrades this verdict to rule-only.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("Model predict failed, rule-only verdict", "panic", r)
			outlier = false
		}
	}()

	grid, err := instancesFromRows([][2]float64{{packetRate, float64(uniquePorts)}})
	if err != nil {
		return false
	}
	scores := d.forest.Predict(grid)
	return len(scores) == 1 && scores[0] >= outlierThreshold
}

// Observe logs one behavior row and, with the configured probability,
// requests a retrain. A pending request already in the queue absorbs the
// new one.
func (d *Detector) Observe(o history.Observation) {
	if err := d.store.Append(o); err != nil {
		d.logger.Warn("History append failed", "error", err)
	}
	if d.csv != nil {
		if err := d.csv.Append(o); err != nil {
			d.logger.Warn("Behavior log append failed", "error", err)
		}
	}

	if d.randFloat() < d.cfg.RetrainProbability {
		select {
		case d.retrainCh <- struct{}{}:
		default:
		}
	}
}

// retrain refits the isolation forest from recent history. Below the
// minimum row count the learned stage stays disabled and verdicts remain
// rule-only.
func (d *Detector) retrain() {
	rows, err := d.store.TrainingRows(trainingWindow)
	if err != nil {
		d.logger.Warn("Training query failed", "error", err)
		return
	}
	if len(rows) < d.cfg.MinTrainingRows {
		d.logger.Debug("Insufficient history for training", "rows", len(rows), "need", d.cfg.MinTrainingRows)
		return
	}

	grid, err := instancesFromRows(rows)
	if err != nil {
		d.logger.Warn("Training grid build failed", "error", err)
		return
	}

	subSpace := forestSubSpace
	if len(rows) < subSpace {
		subSpace = len(rows)
	}

	d.modelMu.Lock()
	defer d.modelMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			// A failed fit must not leave a half-updated model live.
			d.fitted = false
			d.logger.Warn("Model fit failed", "panic", r)
		}
	}()

	forest := trees.NewIsolationForest(forestTrees, forestDepth, subSpace)
	forest.Fit(grid)
	d.forest = forest
	d.fitted = true
	d.logger.Info("Model retrained", "rows", len(rows))
	if d.OnRetrain != nil {
		d.OnRetrain()
	}
}

// Fitted reports whether the learned stage is live.
func (d *Detector) Fitted() bool {
	d.modelMu.Lock()
	defer d.modelMu.Unlock()
	return d.fitted
}
