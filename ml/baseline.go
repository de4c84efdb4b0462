package ml

import "math"

// StatisticalBaseline is a cheap redundant detector: the z-score of the
// transaction amount against the trained amount distribution, with the
// 3-sigma rule as the verdict.
type StatisticalBaseline struct {
	mean   float64
	std    float64
	fitted bool
}

// NewStatisticalBaseline creates an unfitted baseline detector.
func NewStatisticalBaseline() *StatisticalBaseline {
	return &StatisticalBaseline{}
}

// Name implements Model.
func (b *StatisticalBaseline) Name() string { return ModelZScore }

// Fit derives the amount mean and standard deviation from the feature
// matrix.
func (b *StatisticalBaseline) Fit(X [][]float64) error {
	if len(X) == 0 {
		return ErrInvalidInput
	}

	amounts := make([]float64, len(X))
	for i, row := range X {
		amounts[i] = row[FeatAmount]
	}
	b.mean, b.std = meanStd(amounts)
	b.fitted = true
	return nil
}

// Score returns |amount - mean| / std, or 0 when the trained distribution
// is degenerate (std == 0).
func (b *StatisticalBaseline) Score(x []float64) (float64, error) {
	if !b.fitted {
		return 0, ErrNotFitted
	}
	if len(x) != NumFeatures {
		return 0, ErrInvalidInput
	}
	if b.std == 0 {
		return 0, nil
	}
	return math.Abs(x[FeatAmount]-b.mean) / b.std, nil
}

// Predict implements Model: anomaly iff the amount is more than 3 standard
// deviations from the trained mean.
func (b *StatisticalBaseline) Predict(x []float64) (ModelResult, error) {
	z, err := b.Score(x)
	if err != nil {
		return ModelResult{}, err
	}
	return ModelResult{IsAnomaly: z > 3, Score: z}, nil
}

// meanStd returns the mean and population standard deviation of values.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
