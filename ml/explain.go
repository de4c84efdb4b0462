package ml

import "math"

// Explanation maps feature names to signed contributions. Larger absolute
// value means larger contribution to the verdict; positive pushes toward
// "anomalous".
type Explanation map[string]float64

// Explain produces a per-feature contribution map from feature-wise
// training statistics: each feature's absolute z-deviation from the
// training mean, signed by the verdict.
//
// This is a deliberately cheap, model-agnostic approximation of feature
// attribution. It is not a faithful per-model attribution and makes no
// attempt at exact Shapley values.
func Explain(x []float64, isAnomaly bool, snap *Snapshot) Explanation {
	contributions := make(Explanation, NumFeatures)

	for i := 0; i < NumFeatures && i < len(x); i++ {
		var deviation float64
		if snap.Std[i] > 0 {
			deviation = math.Abs(x[i]-snap.Mean[i]) / snap.Std[i]
		}
		if !isAnomaly {
			deviation = -deviation
		}
		contributions[FeatureNames[i]] = deviation
	}

	return contributions
}
