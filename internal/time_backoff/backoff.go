package timebackoff

import (
	"fmt"
	"strings"
	"time"
)

// Strategy computes how long a failed job waits before it is queued again.
// base is the job's configured retry delay, retry the 1-based retry number.
type Strategy interface {
	Delay(base time.Duration, retry int) time.Duration
}

// Fixed waits exactly the base delay on every retry.
type Fixed struct{}

func (Fixed) Delay(base time.Duration, _ int) time.Duration {
	return Max(base, 0)
}

// Parse maps a config value to a Strategy. The empty string means fixed.
func Parse(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "fixed":
		return Fixed{}, nil
	case "exponential", "exp":
		return Exponential{Cap: DefaultExponentialCap}, nil
	case "sinus", "sin":
		return Sinus{}, nil
	default:
		return nil, fmt.Errorf("unbekannte Backoff-Strategie: %s", name)
	}
}
