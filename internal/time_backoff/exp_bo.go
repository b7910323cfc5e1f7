package timebackoff

import (
	"math"
	"time"
)

const DefaultExponentialCap = 5 * time.Minute

// Exponential doubles the base delay per retry: base, 2*base, 4*base ...
// Cap bounds the result, zero means unbounded.
type Exponential struct {
	Cap time.Duration
}

func (e Exponential) Delay(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	if retry < 1 {
		retry = 1
	}
	f := float64(base) * math.Pow(2, float64(retry-1))
	d := time.Duration(math.MaxInt64)
	if f < float64(math.MaxInt64) {
		d = time.Duration(f)
	}
	if e.Cap > 0 {
		d = Min(d, e.Cap)
	}
	return d
}
