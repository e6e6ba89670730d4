// Package ml holds the typed model bundle, its estimators, training,
// persistence and the Model Store that guards inference.
package ml

import "errors"

var (
	// ErrModelsUnavailable indicates no bundle could be loaded from any source
	ErrModelsUnavailable = errors.New("models unavailable")

	// ErrBundleNotFound indicates a bundle source holds no bundle
	ErrBundleNotFound = errors.New("model bundle not found")

	// ErrNoRegressorOutput indicates every regressor failed for an input row
	ErrNoRegressorOutput = errors.New("no regressor produced an estimate")

	// ErrInsufficientData indicates too few rows to train
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrUnknownModelKind indicates a serialized model of an unregistered kind
	ErrUnknownModelKind = errors.New("unknown model kind")

	// ErrFeatureMismatch indicates an input row does not match the fitted width
	ErrFeatureMismatch = errors.New("feature count mismatch")

	// ErrNotFitted indicates a model was used before Fit
	ErrNotFitted = errors.New("model not fitted")

	// ErrUnknownModel indicates a model name the bundle does not hold
	ErrUnknownModel = errors.New("unknown model")

	// ErrNotExplainable indicates a model without per-feature coefficients
	ErrNotExplainable = errors.New("model has no feature coefficients")
)
