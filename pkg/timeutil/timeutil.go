package timeutil

import (
	"math/rand"
	"time"
)

// DurationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// ExponentialBackoffDelay computes the delay before the next retry attempt,
// applying the backoff curve described by param and adding up to jitter of
// random noise. attempt is 1-based (the attempt that just failed).
func ExponentialBackoffDelay(attempt int, jitter time.Duration, rng rand.Rand, param BackoffParam) time.Duration {
	delay := float64(param.InitialDuration())
	for i := 1; i < attempt; i++ {
		delay *= param.Multiplier()
		if time.Duration(delay) > param.MaxDuration() {
			delay = float64(param.MaxDuration())
			break
		}
	}

	result := time.Duration(delay)
	if result > param.MaxDuration() {
		result = param.MaxDuration()
	}

	if jitter > 0 {
		result += time.Duration(rng.Int63n(int64(jitter)))
	}
	return result
}

// MaxDuration returns the largest of durations, or 0 when durations is
// empty. The slice is not modified.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	max := durations[0]
	for _, d := range durations[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a pseudo-random duration in [0, max), or 0 when
// max is not positive.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// RandomDuration returns a pseudo-random duration uniformly distributed in
// [min, max). Used for the Dispatcher's WAITING-state sleep.
func RandomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}

// Sleeper abstracts time.Sleep so tests can substitute a no-op or recording
// implementation instead of actually blocking.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

// NewRealSleeper returns a Sleeper backed by time.Sleep.
func NewRealSleeper() Sleeper {
	return realSleeper{}
}

func (realSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}
