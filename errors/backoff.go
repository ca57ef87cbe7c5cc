package errors

import (
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RetryConfig defines bounded exponential backoff for retry loops.
// The broker reconnect loop uses this to avoid hot-looping connect attempts.
type RetryConfig struct {
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Upper bound for the delay
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% randomness to prevent thundering herd
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 2 * time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// BackoffDelay calculates the delay for a retry attempt.
// Attempt 0 returns InitialDelay; the delay grows by Multiplier per attempt
// and is capped at MaxDelay.
func (rc RetryConfig) BackoffDelay(attempt int) time.Duration {
	delay := rc.InitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	multiplier := rc.Multiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}

	for i := 0; i < attempt; i++ {
		next := time.Duration(float64(delay) * multiplier)
		if rc.MaxDelay > 0 && next > rc.MaxDelay {
			delay = rc.MaxDelay
			break
		}
		delay = next
	}
	if rc.MaxDelay > 0 && delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}

	if rc.AddJitter && delay > 4 {
		randMu.Lock()
		jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
		randMu.Unlock()
		delay += jitter
	}

	return delay
}
