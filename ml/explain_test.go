package ml

import (
	"math"
	"testing"
)

func explainSnapshot() *Snapshot {
	snap := &Snapshot{}
	snap.Mean = [NumFeatures]float64{100, 0, 12, 0.1}
	snap.Std = [NumFeatures]float64{20, 10, 4, 0.3}
	return snap
}

func TestExplainSignConvention(t *testing.T) {
	snap := explainSnapshot()
	x := []float64{500, 400, 2, 1}

	anomalous := Explain(x, true, snap)
	normal := Explain(x, false, snap)

	for _, name := range FeatureNames {
		if anomalous[name] < 0 {
			t.Errorf("anomalous contribution for %s should be positive, got %v", name, anomalous[name])
		}
		if normal[name] > 0 {
			t.Errorf("normal contribution for %s should be negative, got %v", name, normal[name])
		}
		if anomalous[name] != -normal[name] {
			t.Errorf("contributions for %s should mirror: %v vs %v", name, anomalous[name], normal[name])
		}
	}

	// Amount deviates by (500-100)/20 = 20 standard deviations.
	if math.Abs(anomalous["Amount"]-20) > 1e-12 {
		t.Errorf("Amount contribution = %v, want 20", anomalous["Amount"])
	}

	// The larger deviation dominates the attribution.
	if anomalous["UserAvgDiff"] <= anomalous["Hour"] {
		t.Errorf("UserAvgDiff (%v) should outweigh Hour (%v)", anomalous["UserAvgDiff"], anomalous["Hour"])
	}
}

func TestExplainZeroStdGuard(t *testing.T) {
	snap := explainSnapshot()
	snap.Std[FeatIsForeign] = 0

	got := Explain([]float64{100, 0, 12, 1}, true, snap)
	if got["IsForeign"] != 0 {
		t.Errorf("zero-std feature should contribute 0, got %v", got["IsForeign"])
	}
}
