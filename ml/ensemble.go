package ml

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Registered model names.
const (
	ModelIsolationForest = "isolation_forest"
	ModelZScore          = "zscore"
)

// MinRetrainRows is the minimum number of real transactions required for a
// retrain.
const MinRetrainRows = 50

// trainingAnomalyRate is the anomalous share of the synthetic bootstrap
// mixture, used as the label-drift reference for bootstrap snapshots.
const trainingAnomalyRate = 0.10

// Model is the capability interface every detector in the ensemble
// implements. Implementations are fitted once per snapshot and must not be
// mutated afterwards.
type Model interface {
	Name() string
	Fit(X [][]float64) error
	Predict(x []float64) (ModelResult, error)
}

// ModelFactory builds a fresh, unfitted model instance for the next
// snapshot.
type ModelFactory func() Model

// ModelResult is one detector's verdict for one feature vector.
type ModelResult struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Score     float64 `json:"score"`
}

// EnsembleResult maps model names to their results and designates the
// primary model whose verdict is promoted for downstream consumers.
type EnsembleResult struct {
	Primary string                 `json:"primary"`
	Results map[string]ModelResult `json:"results"`
}

// PrimaryResult returns the designated primary model's result.
func (r EnsembleResult) PrimaryResult() ModelResult {
	return r.Results[r.Primary]
}

// TransactionRecord is the plain record shape the engine consumes from its
// collaborators, for retraining and drift detection.
type TransactionRecord struct {
	Amount       float64                `json:"amount"`
	Location     string                 `json:"location"`
	Timestamp    time.Time              `json:"timestamp"`
	IsAnomaly    bool                   `json:"is_anomaly"`  // prediction stored at scoring time
	TrueLabel    bool                   `json:"true_label"`  // ground truth
	ModelResults map[string]ModelResult `json:"model_results,omitempty"`
}

// Snapshot is an immutable bundle of fitted models plus training-time
// reference statistics. A retrain builds a new snapshot off to the side and
// swaps it in atomically; nothing mutates a snapshot after publication.
type Snapshot struct {
	NumSamples  int
	FittedAt    time.Time
	Bootstrap   bool
	Mean        [NumFeatures]float64
	Std         [NumFeatures]float64
	Reference   [NumFeatures][]float64
	AnomalyRate float64 // reference label rate for label-drift

	models []Model
}

// AmountMean returns the trained mean of the amount feature.
func (s *Snapshot) AmountMean() float64 { return s.Mean[FeatAmount] }

// AmountStd returns the trained standard deviation of the amount feature.
func (s *Snapshot) AmountStd() float64 { return s.Std[FeatAmount] }

// Config holds the engine's tunable parameters.
type Config struct {
	NumTrees   int
	SampleSize int
	Seed       int64
}

// DefaultConfig mirrors the parameters the detector was tuned with.
func DefaultConfig() Config {
	return Config{
		NumTrees:   100,
		SampleSize: 256,
		Seed:       42,
	}
}

// Engine is the scoring-and-drift core: a registry of detectors, the live
// training snapshot, and the operations exposed to collaborators. Scoring
// calls are lock-free against the current snapshot; Fit builds a new
// snapshot and publishes it with a single atomic swap, so overlapping calls
// see either the old or the new snapshot in full.
type Engine struct {
	cfg Config

	mu        sync.Mutex // serializes Fit and registry changes
	factories map[string]ModelFactory
	order     []string

	primary  atomic.Value // string
	snapshot atomic.Pointer[Snapshot]
}

// NewEngine creates an engine with the default detectors registered:
// the isolation forest (primary) and the z-score baseline.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cfg:       cfg,
		factories: make(map[string]ModelFactory),
	}
	e.register(ModelIsolationForest, func() Model {
		return NewIsolationForest(cfg.NumTrees, cfg.SampleSize, cfg.Seed)
	})
	e.register(ModelZScore, func() Model {
		return NewStatisticalBaseline()
	})
	e.primary.Store(ModelIsolationForest)
	return e
}

func (e *Engine) register(name string, factory ModelFactory) {
	e.factories[name] = factory
	e.order = append(e.order, name)
}

// Register adds a detector to the registry. It takes effect on the next
// Fit; the live snapshot is not touched.
func (e *Engine) Register(name string, factory ModelFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.factories[name]; !exists {
		e.order = append(e.order, name)
	}
	e.factories[name] = factory
}

// Models returns the registered model names in registration order.
func (e *Engine) Models() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Primary returns the current primary model name.
func (e *Engine) Primary() string {
	return e.primary.Load().(string)
}

// SetPrimary designates the model whose verdict is promoted for simple
// downstream consumers.
func (e *Engine) SetPrimary(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.factories[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	e.primary.Store(name)
	return nil
}

// Fitted reports whether a training snapshot exists.
func (e *Engine) Fitted() bool {
	return e.snapshot.Load() != nil
}

// Snapshot returns the live training snapshot, or nil before the first fit.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// currentSnapshot returns the live snapshot, bootstrapping lazily from
// synthetic data on the first call.
func (e *Engine) currentSnapshot() (*Snapshot, error) {
	if snap := e.snapshot.Load(); snap != nil {
		return snap, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if snap := e.snapshot.Load(); snap != nil {
		return snap, nil
	}
	if err := e.fitLocked(nil); err != nil {
		return nil, err
	}
	return e.snapshot.Load(), nil
}

// Fit builds or replaces the training snapshot. A nil records slice
// triggers the synthetic bootstrap; otherwise at least MinRetrainRows real
// transactions are required. Safe to call while scoring calls are in
// flight: those complete against the snapshot they started with.
func (e *Engine) Fit(records []TransactionRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fitLocked(records)
}

func (e *Engine) fitLocked(records []TransactionRecord) error {
	var (
		X         [][]float64
		rate      float64
		bootstrap bool
	)

	if records == nil {
		X = synthesizeTrainingData(rand.New(rand.NewSource(e.cfg.Seed)))
		rate = trainingAnomalyRate
		bootstrap = true
	} else {
		if len(records) < MinRetrainRows {
			return fmt.Errorf("%w: need at least %d transactions, got %d",
				ErrInsufficientData, MinRetrainRows, len(records))
		}
		X = make([][]float64, len(records))
		anomalies := 0
		for i, rec := range records {
			// The per-user average is not retained on stored rows, so the
			// diff feature is neutral on retrain.
			X[i] = ExtractFeatures(rec.Amount, rec.Amount, rec.Location, rec.Timestamp)
			if rec.IsAnomaly {
				anomalies++
			}
		}
		rate = float64(anomalies) / float64(len(records))
	}

	snap := &Snapshot{
		NumSamples:  len(X),
		FittedAt:    time.Now().UTC(),
		Bootstrap:   bootstrap,
		AnomalyRate: rate,
	}

	for feat := 0; feat < NumFeatures; feat++ {
		col := make([]float64, len(X))
		for i, row := range X {
			col[i] = row[feat]
		}
		snap.Mean[feat], snap.Std[feat] = meanStd(col)
		snap.Reference[feat] = col
	}

	snap.models = make([]Model, 0, len(e.order))
	for _, name := range e.order {
		model := e.factories[name]()
		if err := model.Fit(X); err != nil {
			return fmt.Errorf("fitting %s: %w", name, err)
		}
		snap.models = append(snap.models, model)
	}

	e.snapshot.Store(snap)
	return nil
}

// PredictAll runs every fitted model against one feature vector. A failing
// model degrades to a neutral result for that model only; it never aborts
// the ensemble.
func (e *Engine) PredictAll(x []float64) (EnsembleResult, error) {
	snap, err := e.currentSnapshot()
	if err != nil {
		return EnsembleResult{}, err
	}
	return e.predictAgainst(snap, x), nil
}

func (e *Engine) predictAgainst(snap *Snapshot, x []float64) EnsembleResult {
	results := make(map[string]ModelResult, len(snap.models))
	for _, model := range snap.models {
		res, err := model.Predict(x)
		if err != nil {
			// One failing detector must not take down the ensemble.
			res = ModelResult{IsAnomaly: false, Score: 0}
		}
		results[model.Name()] = res
	}
	return EnsembleResult{Primary: e.Primary(), Results: results}
}

// ScoreTransaction is the full scoring path: extract features, run every
// model, and attach the feature-attribution map for the primary verdict.
func (e *Engine) ScoreTransaction(amount, userAvg float64, location string, timestamp time.Time) (EnsembleResult, Explanation, error) {
	snap, err := e.currentSnapshot()
	if err != nil {
		return EnsembleResult{}, nil, err
	}

	x := ExtractFeatures(amount, userAvg, location, timestamp)
	result := e.predictAgainst(snap, x)
	explanation := Explain(x, result.PrimaryResult().IsAnomaly, snap)
	return result, explanation, nil
}

// ComputeDrift produces the four-signal drift report for a recent window of
// transactions against the live snapshot.
func (e *Engine) ComputeDrift(records []TransactionRecord) (DriftReport, error) {
	snap, err := e.currentSnapshot()
	if err != nil {
		return DriftReport{}, err
	}
	return computeDrift(snap, records, e.Primary()), nil
}

// synthesizeTrainingData generates the 1000-row bootstrap mixture: 90%
// normal profile, 10% anomalous profile. The mixture only gives the
// detector a non-degenerate initial partitioning; it is not a labeled
// supervised training set.
func synthesizeTrainingData(rng *rand.Rand) [][]float64 {
	const (
		nSamples = 1000
		nNormal  = 900
	)

	X := make([][]float64, 0, nSamples)

	for i := 0; i < nNormal; i++ {
		foreign := 0.0
		if rng.Float64() < 0.1 {
			foreign = 1.0
		}
		X = append(X, []float64{
			rng.NormFloat64()*20 + 100,    // amount
			rng.NormFloat64() * 10,        // diff from user average
			float64(8 + rng.Intn(14)),     // business hours
			foreign,
		})
	}

	for i := nNormal; i < nSamples; i++ {
		X = append(X, []float64{
			rng.NormFloat64()*100 + 500,   // high amount
			rng.NormFloat64()*50 + 400,    // high diff
			float64(rng.Intn(24)),         // any hour
			1.0,                           // foreign
		})
	}

	return X
}
