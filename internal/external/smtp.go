package external

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/data"
)

var ErrMissingHost = errors.New("smtp tier has no host")

type SMTPSender struct {
	name   string
	cfg    data.TierConfig
	logger *zap.Logger
}

func NewSMTPSender(name string, cfg data.TierConfig, logger *zap.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHost, name)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp tier %s has no sender address", name)
	}
	return &SMTPSender{name: name, cfg: cfg, logger: logger}, nil
}

func (s *SMTPSender) Name() string {
	return s.name
}

func (s *SMTPSender) Send(ctx context.Context, msg data.Message) (string, error) {
	m, err := s.buildMsg(msg)
	if err != nil {
		return "", err
	}

	client, err := s.client()
	if err != nil {
		return "", err
	}

	ctx, cancel := s.dialContext(ctx)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Warn("SMTP-Versand fehlgeschlagen:", zap.String("host", s.cfg.Host), zap.Error(err))
		return "", fmt.Errorf("smtp send via %s: %w", s.cfg.Host, err)
	}
	return m.GetMessageID(), nil
}

// Verify opens a connection, runs the greeting and authentication, then closes.
func (s *SMTPSender) Verify(ctx context.Context) error {
	client, err := s.client()
	if err != nil {
		return err
	}

	ctx, cancel := s.dialContext(ctx)
	defer cancel()

	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp verify %s: %w", s.cfg.Host, err)
	}
	return client.Close()
}

func (s *SMTPSender) buildMsg(msg data.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	m.SetDate()
	if msg.OrderID != "" {
		m.SetGenHeader(mail.Header("X-Order-ID"), msg.OrderID)
	}

	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (s *SMTPSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPolicy(tlsPolicy(s.cfg.TLS)),
	}
	if s.cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if s.cfg.SocketTimeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.SocketTimeout))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", s.cfg.Host, err)
	}
	return client, nil
}

// dialContext bounds the session by the connection and greeting timeouts plus
// one socket timeout. go-mail applies the socket timeout per command as well.
func (s *SMTPSender) dialContext(ctx context.Context) (context.Context, context.CancelFunc) {
	limit := s.cfg.ConnectionTimeout + s.cfg.GreetingTimeout
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	if s.cfg.SocketTimeout > 0 {
		limit += s.cfg.SocketTimeout
	}
	return context.WithTimeout(ctx, limit)
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

var _ Sender = (*SMTPSender)(nil)
