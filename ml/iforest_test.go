package ml

import (
	"math"
	"math/rand"
	"testing"
)

func TestIsolationForestDeterminism(t *testing.T) {
	X := synthesizeTrainingData(rand.New(rand.NewSource(7)))
	query := []float64{480, 390, 3, 1}

	f1 := NewIsolationForest(50, 128, 42)
	if err := f1.Fit(X); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	s1, err := f1.Score(query)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	f2 := NewIsolationForest(50, 128, 42)
	if err := f2.Fit(X); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	s2, err := f2.Score(query)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	if s1 != s2 {
		t.Errorf("same seed and data produced different scores: %v vs %v", s1, s2)
	}
}

func TestIsolationForestMonotonicity(t *testing.T) {
	X := synthesizeTrainingData(rand.New(rand.NewSource(1)))

	forest := NewIsolationForest(100, 256, 42)
	if err := forest.Fit(X); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	// Average over several draws from each generative profile.
	rng := rand.New(rand.NewSource(2))
	var normalSum, anomalousSum float64
	const trials = 50
	for i := 0; i < trials; i++ {
		normal := []float64{
			rng.NormFloat64()*20 + 100,
			rng.NormFloat64() * 10,
			float64(8 + rng.Intn(14)),
			0,
		}
		anomalous := []float64{
			rng.NormFloat64()*100 + 500,
			rng.NormFloat64()*50 + 400,
			float64(rng.Intn(24)),
			1,
		}

		sn, err := forest.Score(normal)
		if err != nil {
			t.Fatalf("score failed: %v", err)
		}
		sa, err := forest.Score(anomalous)
		if err != nil {
			t.Fatalf("score failed: %v", err)
		}
		normalSum += sn
		anomalousSum += sa
	}

	if anomalousSum/trials <= normalSum/trials {
		t.Errorf("anomalous profile should score higher: anomalous avg %.4f, normal avg %.4f",
			anomalousSum/trials, normalSum/trials)
	}
}

func TestIsolationForestScoreRange(t *testing.T) {
	X := synthesizeTrainingData(rand.New(rand.NewSource(3)))

	forest := NewIsolationForest(50, 128, 42)
	if err := forest.Fit(X); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	for _, x := range X {
		score, err := forest.Score(x)
		if err != nil {
			t.Fatalf("score failed: %v", err)
		}
		if score < 0 || score > 1 {
			t.Fatalf("score %v out of [0,1] for %v", score, x)
		}
	}
}

func TestIsolationForestErrors(t *testing.T) {
	forest := NewIsolationForest(10, 64, 42)

	if _, err := forest.Score([]float64{1, 2, 3, 4}); err != ErrNotFitted {
		t.Errorf("score before fit: expected ErrNotFitted, got %v", err)
	}

	if err := forest.Fit(nil); err != ErrInvalidInput {
		t.Errorf("fit on empty data: expected ErrInvalidInput, got %v", err)
	}

	X := synthesizeTrainingData(rand.New(rand.NewSource(4)))
	if err := forest.Fit(X); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if _, err := forest.Score([]float64{1, 2}); err != ErrInvalidInput {
		t.Errorf("score on short vector: expected ErrInvalidInput, got %v", err)
	}
}

func TestExpectedPathLength(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 2*1.0 - 2*1.0/2.0},                 // 2H(1) - 2(1)/2 = 1
		{4, 2*(1.0+0.5+1.0/3.0) - 2*3.0/4.0},   // 2H(3) - 2(3)/4
	}

	for _, tt := range tests {
		got := expectedPathLength(tt.n)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("c(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
