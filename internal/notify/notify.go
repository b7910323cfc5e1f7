package notify

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/data"
	"storefront.chapter42.de/mailer/internal/processor"
	"storefront.chapter42.de/mailer/internal/tmpl"
)

var (
	ErrUnknownKind    = errors.New("unknown notification kind")
	ErrNoAdminAddress = errors.New("no admin address configured")
	ErrNoRecipient    = errors.New("order has no customer email")
)

type Config struct {
	StoreName  string
	AdminEmail string
	Options    processor.Options
}

// Notifier turns orders into messages and hands them to the queue.
type Notifier struct {
	queue     *processor.Queue
	deliver   processor.Func
	templates *tmpl.Set
	cfg       Config
	now       func() time.Time
	logger    *zap.Logger
}

// New wires the adapters. deliver is the job body, normally
// delivery.Orchestrator.DeliverJob.
func New(queue *processor.Queue, deliver processor.Func, templates *tmpl.Set, cfg Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		queue:     queue,
		deliver:   deliver,
		templates: templates,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

func (n *Notifier) SendCustomerConfirmation(order data.Order) (*processor.Handle, error) {
	if order.CustomerEmail == "" {
		return nil, ErrNoRecipient
	}
	return n.submit(data.KindCustomerConfirmation, order.CustomerEmail, n.cfg.AdminEmail, tmpl.View{Order: order})
}

func (n *Notifier) SendAdminNotification(order data.Order) (*processor.Handle, error) {
	if n.cfg.AdminEmail == "" {
		return nil, ErrNoAdminAddress
	}
	return n.submit(data.KindAdminNotification, n.cfg.AdminEmail, order.CustomerEmail, tmpl.View{Order: order})
}

func (n *Notifier) SendStatusUpdate(order data.Order) (*processor.Handle, error) {
	if order.CustomerEmail == "" {
		return nil, ErrNoRecipient
	}
	return n.submit(data.KindStatusUpdate, order.CustomerEmail, n.cfg.AdminEmail, tmpl.View{Order: order})
}

// SendAlert mails an operational alert to the shop admin.
func (n *Notifier) SendAlert(subject, details string) (*processor.Handle, error) {
	if n.cfg.AdminEmail == "" {
		return nil, ErrNoAdminAddress
	}
	return n.submit(data.KindAlert, n.cfg.AdminEmail, "", tmpl.View{Subject: subject, Details: details})
}

// SendOrder dispatches the order based adapters by kind.
func (n *Notifier) SendOrder(kind data.Kind, order data.Order) (*processor.Handle, error) {
	switch kind {
	case data.KindCustomerConfirmation:
		return n.SendCustomerConfirmation(order)
	case data.KindAdminNotification:
		return n.SendAdminNotification(order)
	case data.KindStatusUpdate:
		return n.SendStatusUpdate(order)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func (n *Notifier) submit(kind data.Kind, to, replyTo string, view tmpl.View) (*processor.Handle, error) {
	view.StoreName = n.cfg.StoreName
	view.Now = n.now()

	rendered, err := n.templates.Render(kind, view)
	if err != nil {
		n.logger.Error("Fehler beim Rendern der E-Mail:", zap.String("type", string(kind)), zap.Error(err))
		return nil, err
	}

	msg := data.Message{
		Kind:    kind,
		To:      to,
		ReplyTo: replyTo,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
		OrderID: view.Order.ID,
	}

	h := n.queue.Submit(n.deliver, string(kind), []any{msg}, n.cfg.Options)
	n.logger.Debug("E-Mail eingereiht:",
		zap.String("type", string(kind)),
		zap.String("job_id", h.JobID()),
		zap.String("order_id", msg.OrderID))
	return h, nil
}
