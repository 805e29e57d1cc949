package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random delay range in milliseconds
}

// TimingDelay pads failure responses so that "user not found", "wrong
// password", and "not locked" all take approximately the same time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// cryptoRandIntn returns a secure random number in [0, max). crypto/rand, not
// math/rand: the jitter exists to defeat timing measurement.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	baseDelay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	var randomDelay time.Duration
	if td.config.RandomDelayMs > 0 {
		if randomValue, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			randomDelay = time.Duration(randomValue) * time.Millisecond
		}
	}
	return baseDelay + randomDelay
}

// Wait sleeps for the configured base plus jitter. Called on failure paths.
func (td *TimingDelay) Wait() {
	time.Sleep(td.target())
}

// WaitFrom sleeps until at least the target delay has elapsed since start,
// accounting for time the operation already consumed.
func (td *TimingDelay) WaitFrom(start time.Time) {
	targetDelay := td.target()
	if elapsed := time.Since(start); elapsed < targetDelay {
		time.Sleep(targetDelay - elapsed)
	}
}
