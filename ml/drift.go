package ml

import (
	"math"
	"sort"
)

// Concept-drift statuses from the error-rate control chart.
const (
	ConceptStable        = "Stable"
	ConceptWarning       = "Warning"
	ConceptDriftDetected = "DriftDetected"
)

// Drift detection parameters.
const (
	ksMinSamples       = 20   // covariate test needs this many recent points
	ksAlpha            = 0.05 // p-value cutoff for covariate drift
	labelDriftDelta    = 0.05 // allowed deviation from the reference label rate
	conceptBaselineErr = 0.05 // DDM baseline error rate p0
)

// CovariateResult is the two-sample KS verdict for one feature.
type CovariateResult struct {
	PValue float64 `json:"p_value"`
	Drift  bool    `json:"drift"`
}

// LabelResult compares the recent anomaly rate to the training-time
// reference rate.
type LabelResult struct {
	Drift       bool    `json:"drift"`
	CurrentRate float64 `json:"current_rate"`
}

// ConceptResult is the DDM-style control-chart classification of the
// primary model's error rate against ground truth.
type ConceptResult struct {
	Status    string  `json:"status"`
	ErrorRate float64 `json:"error_rate"`
}

// DriftReport bundles the four independent drift signals.
type DriftReport struct {
	ValueDrift float64                    `json:"value_drift"`
	Covariate  map[string]CovariateResult `json:"covariate"`
	Label      LabelResult                `json:"label"`
	Concept    ConceptResult              `json:"concept"`
}

// neutralReport is what an empty or missing window degrades to; drift
// checks never fail on short data.
func neutralReport() DriftReport {
	return DriftReport{
		Covariate: map[string]CovariateResult{
			FeatureNames[FeatAmount]: {PValue: 1.0, Drift: false},
		},
		Label:   LabelResult{Drift: false, CurrentRate: 0},
		Concept: ConceptResult{Status: ConceptStable, ErrorRate: 0},
	}
}

// computeDrift evaluates all four drift signals for a recent transaction
// window against the training snapshot.
func computeDrift(snap *Snapshot, records []TransactionRecord, primary string) DriftReport {
	if len(records) == 0 {
		return neutralReport()
	}

	amounts := make([]float64, len(records))
	for i, rec := range records {
		amounts[i] = rec.Amount
	}

	return DriftReport{
		ValueDrift: valueDrift(snap, amounts),
		Covariate:  covariateDrift(snap, amounts),
		Label:      labelDrift(snap, records),
		Concept:    conceptDrift(records, primary),
	}
}

// valueDrift is the z-score of the recent mean amount against the trained
// amount distribution. Magnitude only, no verdict.
func valueDrift(snap *Snapshot, amounts []float64) float64 {
	if snap.AmountStd() == 0 {
		return 0
	}
	mean, _ := meanStd(amounts)
	return math.Abs(mean-snap.AmountMean()) / snap.AmountStd()
}

// covariateDrift runs the two-sample KS test between the training reference
// amounts and the recent window. Below ksMinSamples recent points it
// reports no drift rather than failing.
func covariateDrift(snap *Snapshot, amounts []float64) map[string]CovariateResult {
	name := FeatureNames[FeatAmount]
	if len(amounts) < ksMinSamples {
		return map[string]CovariateResult{name: {PValue: 1.0, Drift: false}}
	}

	_, p := ksTest(snap.Reference[FeatAmount], amounts)
	return map[string]CovariateResult{name: {PValue: p, Drift: p < ksAlpha}}
}

// ksTest computes the two-sample Kolmogorov-Smirnov statistic (the maximum
// absolute difference between the empirical CDFs evaluated at the union of
// sample points) and its asymptotic p-value
// p = min(1, 2*exp(-2*en^2*D^2)) with en = sqrt(n1*n2/(n1+n2)).
func ksTest(sample1, sample2 []float64) (stat, pValue float64) {
	n1, n2 := len(sample1), len(sample2)
	if n1 == 0 || n2 == 0 {
		return 0, 1
	}

	a := append([]float64(nil), sample1...)
	b := append([]float64(nil), sample2...)
	sort.Float64s(a)
	sort.Float64s(b)

	union := make([]float64, 0, n1+n2)
	union = append(union, a...)
	union = append(union, b...)
	sort.Float64s(union)

	for _, v := range union {
		cdf1 := float64(upperBound(a, v)) / float64(n1)
		cdf2 := float64(upperBound(b, v)) / float64(n2)
		if d := math.Abs(cdf1 - cdf2); d > stat {
			stat = d
		}
	}

	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	pValue = 2 * math.Exp(-2*en*en*stat*stat)
	if pValue > 1 {
		pValue = 1
	}
	return stat, pValue
}

// upperBound returns the number of elements in sorted that are <= v.
func upperBound(sorted []float64, v float64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
}

// labelDrift compares the recent anomaly rate against the snapshot's
// reference rate; a deviation of labelDriftDelta or more is drift. The
// epsilon keeps the inclusive boundary (e.g. 0.15 vs 0.10) from being lost
// to float rounding.
func labelDrift(snap *Snapshot, records []TransactionRecord) LabelResult {
	const eps = 1e-9

	anomalies := 0
	for _, rec := range records {
		if rec.IsAnomaly {
			anomalies++
		}
	}
	rate := float64(anomalies) / float64(len(records))

	return LabelResult{
		Drift:       math.Abs(rate-snap.AnomalyRate) >= labelDriftDelta-eps,
		CurrentRate: rate,
	}
}

// conceptDrift is a DDM-style control chart over the primary model's error
// rate against ground truth: Stable within p0 + 2 std, Warning within
// p0 + 3 std, DriftDetected beyond.
func conceptDrift(records []TransactionRecord, primary string) ConceptResult {
	errors := 0
	for _, rec := range records {
		pred := false
		if res, ok := rec.ModelResults[primary]; ok {
			pred = res.IsAnomaly
		}
		if pred != rec.TrueLabel {
			errors++
		}
	}
	errorRate := float64(errors) / float64(len(records))

	p0 := conceptBaselineErr
	std := math.Sqrt(p0 * (1 - p0) / float64(len(records)))

	status := ConceptStable
	switch {
	case errorRate > p0+3*std:
		status = ConceptDriftDetected
	case errorRate > p0+2*std:
		status = ConceptWarning
	}

	return ConceptResult{Status: status, ErrorRate: errorRate}
}
