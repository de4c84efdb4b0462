package ml

import (
	"testing"
	"time"
)

func TestExtractFeatures(t *testing.T) {
	ts := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		amount   float64
		userAvg  float64
		location string
		want     []float64
	}{
		{"domestic normal", 120, 100, "NY", []float64{120, 20, 14, 0}},
		{"foreign location", 120, 100, "JP", []float64{120, 20, 14, 1}},
		{"below average", 80, 100, "TX", []float64{80, -20, 14, 0}},
		{"unknown code is foreign", 100, 100, "ZZ", []float64{100, 0, 14, 1}},
		{"empty location is foreign", 100, 100, "", []float64{100, 0, 14, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFeatures(tt.amount, tt.userAvg, tt.location, ts)
			if len(got) != NumFeatures {
				t.Fatalf("expected %d features, got %d", NumFeatures, len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("feature %s = %v, want %v", FeatureNames[i], got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractFeaturesHourIsUTC(t *testing.T) {
	// 23:30 in UTC+7 is 16:30 UTC; the hour feature must use UTC.
	loc := time.FixedZone("UTC+7", 7*3600)
	ts := time.Date(2024, 3, 15, 23, 30, 0, 0, loc)

	got := ExtractFeatures(100, 100, "NY", ts)
	if got[FeatHour] != 16 {
		t.Errorf("hour = %v, want 16 (UTC)", got[FeatHour])
	}
}
