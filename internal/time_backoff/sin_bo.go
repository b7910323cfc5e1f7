package timebackoff

import (
	"math"
	"math/rand"
	"time"
)

// Konstanten für die Oszillation
const (
	Oscillation  = 10   // Anzahl der Schritte innerhalb einer Sinuswelle
	PhaseShift   = 1.0  // Phasenverschiebung (0 - 2*Pi)
	JitterFactor = 0.1  // Jitter (10% der Verzögerung)
	SinusSpread  = 10.0 // MaxDelay = base * SinusSpread
)

// Sinus oscillates between base and base*SinusSpread with up to 10% jitter.
type Sinus struct {
	// Rand liefert Werte in [0,1), nil heißt math/rand.
	Rand func() float64
}

func (s Sinus) Delay(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	maxDelay := time.Duration(float64(base) * SinusSpread)

	// Sinuswert mit Phasenverschiebung
	sinFactor := math.Sin((float64(retry%Oscillation) + PhaseShift) * (math.Pi / float64(Oscillation)))

	// sin(x) liegt zwischen -1 und 1 → skaliere auf [base, maxDelay]
	delay := base + time.Duration((sinFactor+1.0)*float64(maxDelay-base)/2.0)

	r := rand.Float64
	if s.Rand != nil {
		r = s.Rand
	}
	jitter := time.Duration(r() * JitterFactor * float64(delay))
	return delay + jitter
}
