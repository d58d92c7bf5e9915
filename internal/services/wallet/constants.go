package wallet

import "time"

const (
	// Bounded retry for serialization/deadlock failures. Nothing is
	// committed when those fire, so retrying from the top is safe.
	MaxRetries   = 3
	RetryBackoff = 25 * time.Millisecond

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)
