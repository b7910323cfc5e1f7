package external

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/data"
)

const SimulatedTierName = "simulated"

// SimulatedSender never touches the network. It keeps the shop usable when no
// real tier is reachable, e.g. on a developer machine.
type SimulatedSender struct {
	name   string
	logger *zap.Logger
}

func NewSimulatedSender(name string, logger *zap.Logger) *SimulatedSender {
	if name == "" {
		name = SimulatedTierName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedSender{name: name, logger: logger}
}

func (s *SimulatedSender) Name() string {
	return s.name
}

func (s *SimulatedSender) Send(_ context.Context, msg data.Message) (string, error) {
	id := "simulated-" + uuid.NewString()
	s.logger.Info("E-Mail simuliert, nicht versendet:",
		zap.String("message_id", id),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("type", string(msg.Kind)))
	return id, nil
}

func (s *SimulatedSender) Verify(context.Context) error {
	return nil
}

var _ Sender = (*SimulatedSender)(nil)
