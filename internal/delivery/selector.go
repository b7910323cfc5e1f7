package delivery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/external"
)

var ErrNoReachableTier = errors.New("no delivery tier passed the startup check")

// Selector decides once at startup which tier chain the orchestrator uses.
type Selector int

const (
	// Primary tries the primary tier, then the fallback.
	Primary Selector = iota
	// Fallback is chosen when the primary failed its startup check. The
	// fallback is tried first, the primary stays in the chain behind it.
	Fallback
	// Simulated appends the no-op tier after both real tiers.
	Simulated
)

func (s Selector) String() string {
	switch s {
	case Primary:
		return "primary"
	case Fallback:
		return "fallback"
	case Simulated:
		return "simulated"
	default:
		return fmt.Sprintf("selector(%d)", int(s))
	}
}

func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SelectTier verifies the real tiers and picks the selector. When neither is
// reachable and the simulated tier is not allowed it still returns Primary,
// together with ErrNoReachableTier, so the queue keeps retrying.
func SelectTier(ctx context.Context, primary, fallback external.Sender, allowSimulated bool, logger *zap.Logger) (Selector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	primaryErr := verify(ctx, primary)
	if primaryErr == nil {
		logger.Info("Primärer Versandweg erreichbar:", zap.String("tier", primary.Name()))
		return Primary, nil
	}
	logger.Warn("Primärer Versandweg nicht erreichbar:", zap.Error(primaryErr))

	fallbackErr := verify(ctx, fallback)
	if fallbackErr == nil {
		logger.Warn("Verwende Ausweich-Versandweg:", zap.String("tier", fallback.Name()))
		return Fallback, nil
	}
	logger.Warn("Ausweich-Versandweg nicht erreichbar:", zap.Error(fallbackErr))

	if allowSimulated {
		logger.Warn("Kein Versandweg erreichbar, E-Mails werden nur simuliert")
		return Simulated, nil
	}
	return Primary, fmt.Errorf("%w: %w", ErrNoReachableTier, errors.Join(primaryErr, fallbackErr))
}

func verify(ctx context.Context, s external.Sender) error {
	if s == nil {
		return errors.New("tier not configured")
	}
	if err := s.Verify(ctx); err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	return nil
}
