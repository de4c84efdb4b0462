package ml

import "errors"

// Sentinel errors returned by the scoring engine.
var (
	// ErrNotFitted is returned when scoring or drift detection is requested
	// before any training snapshot exists.
	ErrNotFitted = errors.New("model not fitted")

	// ErrInvalidInput is returned for malformed inputs, e.g. fitting on an
	// empty feature matrix or scoring a vector of the wrong length.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when a retrain is requested with fewer
	// rows than the minimum required.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUnknownModel is returned when selecting a primary model that is not
	// registered.
	ErrUnknownModel = errors.New("unknown model")
)
