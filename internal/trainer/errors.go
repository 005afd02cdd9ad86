package trainer

import "errors"

// Sentinel errors for the trainer package.
var (
	ErrStale      = errors.New("trainer: question already resolved or superseded")
	ErrPriming    = errors.New("trainer: priming stage has no questions")
	ErrNotPriming = errors.New("trainer: current stage is not priming")
)
