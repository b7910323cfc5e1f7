package external

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/data"
)

// Sender is one delivery tier.
type Sender interface {
	Name() string
	// Send delivers msg and returns the message id assigned by the tier.
	Send(ctx context.Context, msg data.Message) (string, error)
	// Verify checks connectivity without sending anything.
	Verify(ctx context.Context) error
}

// NewSender builds the tier described by cfg. An empty kind yields nil, nil
// so an unconfigured fallback tier simply drops out of the chain.
func NewSender(name string, cfg data.TierConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("tier", name))

	switch cfg.Kind {
	case "smtp":
		return NewSMTPSender(name, cfg, logger)
	case "http":
		return NewRelaySender(name, cfg, logger)
	case "simulated":
		return NewSimulatedSender(name, logger), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown tier kind %q for tier %s", cfg.Kind, name)
	}
}
