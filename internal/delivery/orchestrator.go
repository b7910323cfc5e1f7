package delivery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/attemptlog"
	"storefront.chapter42.de/mailer/internal/data"
	"storefront.chapter42.de/mailer/internal/external"
	"storefront.chapter42.de/mailer/internal/processor"
)

var (
	ErrNoTiers        = errors.New("no delivery tier configured")
	ErrAllTiersFailed = errors.New("all delivery tiers failed")
	ErrBadJobArgs     = errors.New("delivery job expects a data.Message argument")
)

// Outcome is the result of one pass over the tier chain.
type Outcome struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Err       error  `json:"-"`
}

type TierStats struct {
	Name        string  `json:"name"`
	Attempts    int64   `json:"attempts"`
	Successes   int64   `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
	MeanLatency float64 `json:"mean_latency_ms"`
}

type tier struct {
	sender    external.Sender
	attempts  metrics.Counter
	successes metrics.Counter
	latency   metrics.Timer
}

type Orchestrator struct {
	selector Selector
	chain    []*tier
	attempts *attemptlog.Logger
	logger   *zap.Logger
}

type Option func(*options)

type options struct {
	simulated external.Sender
	registry  metrics.Registry
}

// WithSimulated replaces the default simulated tier.
func WithSimulated(s external.Sender) Option {
	return func(o *options) { o.simulated = s }
}

func WithRegistry(r metrics.Registry) Option {
	return func(o *options) { o.registry = r }
}

// New builds the tier chain for selector. Nil senders are skipped.
func New(selector Selector, primary, fallback external.Sender, attempts *attemptlog.Logger, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{registry: metrics.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	var senders []external.Sender
	switch selector {
	case Fallback:
		senders = []external.Sender{fallback, primary}
	case Simulated:
		sim := o.simulated
		if sim == nil {
			sim = external.NewSimulatedSender(external.SimulatedTierName, logger)
		}
		senders = []external.Sender{primary, fallback, sim}
	default:
		senders = []external.Sender{primary, fallback}
	}

	orch := &Orchestrator{selector: selector, attempts: attempts, logger: logger}
	for _, s := range senders {
		if s == nil {
			continue
		}
		name := s.Name()
		orch.chain = append(orch.chain, &tier{
			sender:    s,
			attempts:  metrics.GetOrRegisterCounter("delivery."+name+".attempts", o.registry),
			successes: metrics.GetOrRegisterCounter("delivery."+name+".successes", o.registry),
			latency:   metrics.GetOrRegisterTimer("delivery."+name+".latency", o.registry),
		})
	}
	if len(orch.chain) == 0 {
		return nil, ErrNoTiers
	}
	return orch, nil
}

func (o *Orchestrator) Selector() Selector {
	return o.selector
}

// Deliver tries each tier once, in chain order, and stops at the first
// success. Every attempt is recorded in the attempt log.
func (o *Orchestrator) Deliver(ctx context.Context, msg data.Message) Outcome {
	retry := processor.RetryCount(ctx)
	var errs []error

	for _, t := range o.chain {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name := t.sender.Name()
		start := time.Now()
		id, err := t.sender.Send(ctx, msg)
		t.latency.UpdateSince(start)
		t.attempts.Inc(1)

		entry := attemptlog.Entry{
			Type:       string(msg.Kind),
			Recipient:  msg.To,
			Subject:    msg.Subject,
			OrderID:    msg.OrderID,
			RetryCount: retry,
			Tier:       name,
		}

		if err != nil {
			entry.Status = attemptlog.StatusFailed
			entry.Error = err.Error()
			o.record(ctx, entry)
			o.logger.Warn("Versand über Versandweg fehlgeschlagen:",
				zap.String("tier", name),
				zap.String("to", msg.To),
				zap.Int("retry", retry),
				zap.String("job", processor.JobName(ctx)),
				zap.String("job_id", processor.JobID(ctx)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		t.successes.Inc(1)
		entry.Status = attemptlog.StatusSuccess
		entry.MessageID = id
		o.record(ctx, entry)
		o.logger.Info("E-Mail versendet:",
			zap.String("tier", name),
			zap.String("to", msg.To),
			zap.String("message_id", id),
			zap.String("job_id", processor.JobID(ctx)))
		return Outcome{Success: true, MessageID: id, Tier: name}
	}

	return Outcome{Err: fmt.Errorf("%w: %w", ErrAllTiersFailed, errors.Join(errs...))}
}

// DeliverJob is the queue job body. Its single argument is a data.Message; tier
// exhaustion is returned as an error so the queue retries the whole pass.
func (o *Orchestrator) DeliverJob(ctx context.Context, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, ErrBadJobArgs
	}
	msg, ok := args[0].(data.Message)
	if !ok {
		return nil, ErrBadJobArgs
	}

	out := o.Deliver(ctx, msg)
	if !out.Success {
		return out, out.Err
	}
	return out, nil
}

func (o *Orchestrator) Tiers() []TierStats {
	stats := make([]TierStats, 0, len(o.chain))
	for _, t := range o.chain {
		s := TierStats{
			Name:        t.sender.Name(),
			Attempts:    t.attempts.Count(),
			Successes:   t.successes.Count(),
			MeanLatency: math.Round(t.latency.Mean()/float64(time.Millisecond)*10) / 10,
		}
		if s.Attempts > 0 {
			s.SuccessRate = math.Round(float64(s.Successes)/float64(s.Attempts)*1000) / 10
		}
		stats = append(stats, s)
	}
	return stats
}

func (o *Orchestrator) record(ctx context.Context, e attemptlog.Entry) {
	if o.attempts == nil {
		return
	}
	// A stopped queue cancels ctx; the attempt still has to be written.
	o.attempts.Record(context.WithoutCancel(ctx), e)
}
