package ml

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// failingModel always errors on Predict, to exercise ensemble degradation.
type failingModel struct{}

func (failingModel) Name() string                { return "broken" }
func (failingModel) Fit(X [][]float64) error     { return nil }
func (failingModel) Predict(x []float64) (ModelResult, error) {
	return ModelResult{}, errors.New("boom")
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(Config{NumTrees: 30, SampleSize: 128, Seed: 42})
	if err := e.Fit(nil); err != nil {
		t.Fatalf("bootstrap fit failed: %v", err)
	}
	return e
}

func TestEngineLazyBootstrap(t *testing.T) {
	e := NewEngine(Config{NumTrees: 20, SampleSize: 64, Seed: 42})
	if e.Fitted() {
		t.Fatal("engine should not be fitted before first use")
	}

	result, explanation, err := e.ScoreTransaction(120, 100, "NY", time.Now())
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if !e.Fitted() {
		t.Error("first scoring call should bootstrap a snapshot")
	}
	if len(result.Results) != 2 {
		t.Errorf("expected 2 model results, got %d", len(result.Results))
	}
	if result.Primary != ModelIsolationForest {
		t.Errorf("expected primary %s, got %s", ModelIsolationForest, result.Primary)
	}
	if len(explanation) != NumFeatures {
		t.Errorf("expected %d explanation entries, got %d", NumFeatures, len(explanation))
	}
}

func TestEngineResilience(t *testing.T) {
	e := NewEngine(Config{NumTrees: 20, SampleSize: 64, Seed: 42})
	e.Register("broken", func() Model { return failingModel{} })
	if err := e.Fit(nil); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	result, err := e.PredictAll([]float64{100, 0, 12, 0})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}

	degraded, ok := result.Results["broken"]
	if !ok {
		t.Fatal("failing model should still appear in results")
	}
	if degraded.IsAnomaly || degraded.Score != 0 {
		t.Errorf("failing model should degrade to neutral result, got %+v", degraded)
	}

	if _, ok := result.Results[ModelIsolationForest]; !ok {
		t.Error("healthy models should still report results")
	}
	if _, ok := result.Results[ModelZScore]; !ok {
		t.Error("healthy models should still report results")
	}
}

func TestEngineSetPrimary(t *testing.T) {
	e := testEngine(t)

	if err := e.SetPrimary(ModelZScore); err != nil {
		t.Fatalf("set primary failed: %v", err)
	}
	if e.Primary() != ModelZScore {
		t.Errorf("expected primary %s, got %s", ModelZScore, e.Primary())
	}

	err := e.SetPrimary("nope")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
	if e.Primary() != ModelZScore {
		t.Error("failed selection should not change the primary")
	}
}

func TestEngineRetrainValidation(t *testing.T) {
	e := testEngine(t)

	few := make([]TransactionRecord, 10)
	err := e.Fit(few)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for 10 rows, got %v", err)
	}
}

func TestEngineRetrainReplacesSnapshot(t *testing.T) {
	e := testEngine(t)
	before := e.Snapshot()

	records := make([]TransactionRecord, 100)
	for i := range records {
		records[i] = TransactionRecord{
			Amount:    200 + float64(i),
			Location:  "NY",
			Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			IsAnomaly: i%5 == 0, // 20% stored predictions
		}
	}
	if err := e.Fit(records); err != nil {
		t.Fatalf("retrain failed: %v", err)
	}

	after := e.Snapshot()
	if before == after {
		t.Fatal("retrain should publish a new snapshot")
	}
	if after.Bootstrap {
		t.Error("retrained snapshot should not be marked bootstrap")
	}
	if after.NumSamples != 100 {
		t.Errorf("expected 100 samples, got %d", after.NumSamples)
	}
	if after.AnomalyRate != 0.2 {
		t.Errorf("expected empirical anomaly rate 0.2, got %v", after.AnomalyRate)
	}
	if before.NumSamples != 1000 {
		t.Errorf("old snapshot mutated: NumSamples = %d", before.NumSamples)
	}
}

func TestEngineSnapshotAtomicity(t *testing.T) {
	e := testEngine(t)

	records := make([]TransactionRecord, 200)
	for i := range records {
		records[i] = TransactionRecord{
			Amount:    500 + float64(i),
			Location:  "JP",
			Timestamp: time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
		}
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Retrain in a loop while scoring calls are in flight. Every scoring
	// call must see a fully built snapshot: a 2-model result and an
	// in-range primary score.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if err := e.Fit(records); err != nil {
				t.Errorf("concurrent fit failed: %v", err)
			}
			if err := e.Fit(nil); err != nil {
				t.Errorf("concurrent bootstrap failed: %v", err)
			}
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			result, _, err := e.ScoreTransaction(150, 100, "CA", time.Now())
			if err != nil {
				t.Errorf("concurrent score failed: %v", err)
				return
			}
			if len(result.Results) != 2 {
				t.Errorf("partial snapshot observed: %d results", len(result.Results))
				return
			}
			score := result.PrimaryResult().Score
			if score < 0 || score > 1 {
				t.Errorf("score %v out of range", score)
				return
			}
		}
	}()

	wg.Wait()
}
