package ml

import (
	"math/rand"
	"testing"
	"time"
)

func driftSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	e := NewEngine(Config{NumTrees: 20, SampleSize: 64, Seed: 42})
	if err := e.Fit(nil); err != nil {
		t.Fatalf("bootstrap fit failed: %v", err)
	}
	return e.Snapshot()
}

func TestComputeDriftEmptyWindow(t *testing.T) {
	snap := driftSnapshot(t)

	report := computeDrift(snap, nil, ModelIsolationForest)

	if report.ValueDrift != 0 {
		t.Errorf("expected neutral value drift, got %v", report.ValueDrift)
	}
	if cov := report.Covariate[FeatureNames[FeatAmount]]; cov.Drift || cov.PValue != 1.0 {
		t.Errorf("expected neutral covariate result, got %+v", cov)
	}
	if report.Label.Drift {
		t.Error("expected no label drift on empty window")
	}
	if report.Concept.Status != ConceptStable || report.Concept.ErrorRate != 0 {
		t.Errorf("expected Stable concept on empty window, got %+v", report.Concept)
	}
}

func TestCovariateDriftSelfConsistency(t *testing.T) {
	snap := driftSnapshot(t)

	// The recent window is the reference sample itself: the KS statistic
	// is 0 and the p-value must be 1.
	results := covariateDrift(snap, snap.Reference[FeatAmount])

	cov := results[FeatureNames[FeatAmount]]
	if cov.Drift {
		t.Error("identical samples should not report drift")
	}
	if cov.PValue < 0.99 {
		t.Errorf("identical samples should give p-value near 1.0, got %v", cov.PValue)
	}
}

func TestCovariateDriftShiftedSample(t *testing.T) {
	snap := driftSnapshot(t)

	rng := rand.New(rand.NewSource(9))
	shifted := make([]float64, 200)
	for i := range shifted {
		shifted[i] = rng.NormFloat64()*20 + 900
	}

	cov := covariateDrift(snap, shifted)[FeatureNames[FeatAmount]]
	if !cov.Drift {
		t.Errorf("strongly shifted sample should report drift, p=%v", cov.PValue)
	}
}

func TestCovariateDriftShortWindow(t *testing.T) {
	snap := driftSnapshot(t)

	cov := covariateDrift(snap, []float64{1, 2, 3})[FeatureNames[FeatAmount]]
	if cov.Drift || cov.PValue != 1.0 {
		t.Errorf("short window should degrade to neutral, got %+v", cov)
	}
}

func TestLabelDriftBoundary(t *testing.T) {
	snap := driftSnapshot(t) // reference rate 0.10

	tests := []struct {
		name      string
		rate      float64
		wantDrift bool
	}{
		{"15 percent drifts", 0.15, true},
		{"12 percent does not", 0.12, false},
		{"10 percent does not", 0.10, false},
		{"2 percent drifts", 0.02, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const window = 100
			records := make([]TransactionRecord, window)
			for i := range records {
				records[i].IsAnomaly = i < int(tt.rate*window)
			}

			result := labelDrift(snap, records)
			if result.Drift != tt.wantDrift {
				t.Errorf("rate %v: drift = %v, want %v", tt.rate, result.Drift, tt.wantDrift)
			}
			if result.CurrentRate != tt.rate {
				t.Errorf("rate %v: current_rate = %v", tt.rate, result.CurrentRate)
			}
		})
	}
}

func TestConceptDrift(t *testing.T) {
	tests := []struct {
		name         string
		mismatchRate float64
		wantStatus   string
	}{
		{"5 percent errors is stable", 0.05, ConceptStable},
		{"30 percent errors is drift", 0.30, ConceptDriftDetected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const window = 200
			records := make([]TransactionRecord, window)
			mismatches := int(tt.mismatchRate * window)
			for i := range records {
				pred := i < mismatches // mismatched predictions first
				records[i] = TransactionRecord{
					TrueLabel: false,
					ModelResults: map[string]ModelResult{
						ModelIsolationForest: {IsAnomaly: pred},
					},
				}
			}

			result := conceptDrift(records, ModelIsolationForest)
			if result.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s (error rate %v)", result.Status, tt.wantStatus, result.ErrorRate)
			}
			if result.ErrorRate != tt.mismatchRate {
				t.Errorf("error_rate = %v, want %v", result.ErrorRate, tt.mismatchRate)
			}
		})
	}
}

func TestConceptDriftMissingModelResults(t *testing.T) {
	// Records without stored model results count the prediction as false.
	records := []TransactionRecord{
		{TrueLabel: true},
		{TrueLabel: false},
	}

	result := conceptDrift(records, ModelIsolationForest)
	if result.ErrorRate != 0.5 {
		t.Errorf("error_rate = %v, want 0.5", result.ErrorRate)
	}
}

func TestValueDrift(t *testing.T) {
	snap := driftSnapshot(t)

	// A window at the trained mean has near-zero value drift.
	centered := make([]float64, 50)
	for i := range centered {
		centered[i] = snap.AmountMean()
	}
	if z := valueDrift(snap, centered); z != 0 {
		t.Errorf("centered window should have zero drift, got %v", z)
	}

	// A window far above it does not.
	high := make([]float64, 50)
	for i := range high {
		high[i] = snap.AmountMean() + 10*snap.AmountStd()
	}
	if z := valueDrift(snap, high); z < 5 {
		t.Errorf("shifted window should have large drift, got %v", z)
	}
}

func TestEngineComputeDrift(t *testing.T) {
	e := NewEngine(Config{NumTrees: 20, SampleSize: 64, Seed: 42})

	records := make([]TransactionRecord, 30)
	for i := range records {
		records[i] = TransactionRecord{
			Amount:    100,
			Location:  "NY",
			Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	// ComputeDrift bootstraps lazily like scoring does.
	report, err := e.ComputeDrift(records)
	if err != nil {
		t.Fatalf("compute drift failed: %v", err)
	}
	if !e.Fitted() {
		t.Error("drift computation should bootstrap a snapshot")
	}
	if report.Concept.Status != ConceptStable {
		t.Errorf("all-correct window should be stable, got %s", report.Concept.Status)
	}
}
