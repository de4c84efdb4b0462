package ml

import "time"

// NumFeatures is the fixed length of every feature vector. All models and
// the explainer share the same feature order.
const NumFeatures = 4

// Feature indices into a feature vector.
const (
	FeatAmount = iota
	FeatUserAvgDiff
	FeatHour
	FeatIsForeign
)

// FeatureNames maps feature indices to the names used in explanations and
// drift reports.
var FeatureNames = [NumFeatures]string{"Amount", "UserAvgDiff", "Hour", "IsForeign"}

// domesticLocations is the allow-list of location codes treated as domestic.
// Anything else sets the IsForeign flag.
var domesticLocations = map[string]bool{
	"NY": true,
	"CA": true,
	"TX": true,
	"FL": true,
}

// ExtractFeatures maps raw transaction attributes to the fixed 4-feature
// vector: [amount, amount - user average, hour of day, is foreign].
// The hour is taken in UTC so that training-data synthesis and live scoring
// agree on the reference clock.
func ExtractFeatures(amount, userAvg float64, location string, timestamp time.Time) []float64 {
	isForeign := 1.0
	if domesticLocations[location] {
		isForeign = 0.0
	}

	return []float64{
		amount,
		amount - userAvg,
		float64(timestamp.UTC().Hour()),
		isForeign,
	}
}

// IsDomesticLocation reports whether a location code is on the domestic
// allow-list.
func IsDomesticLocation(location string) bool {
	return domesticLocations[location]
}
