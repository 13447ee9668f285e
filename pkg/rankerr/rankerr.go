// Package rankerr defines the error taxonomy shared by the normalizer, scorer
// and calibrator. Callers wrap these sentinels with context and test them with
// errors.Is.
package rankerr

import "errors"

var (
	// ErrInvalidInput reports a nil or absent required argument. It is fatal to
	// the single call, never to a batch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration reports a weight vector or threshold setup that
	// cannot be used. It is raised at construction time.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInsufficientData reports a calibration run left with no usable samples.
	ErrInsufficientData = errors.New("insufficient data")
)
