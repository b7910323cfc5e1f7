package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/auth"
	"storefront.chapter42.de/mailer/internal/convert"
	"storefront.chapter42.de/mailer/internal/data"
	"storefront.chapter42.de/mailer/internal/tmpl"
)

const userAgent = "Storefront-Mailer/1.0"

var ErrMissingBaseURL = errors.New("http tier has no base_url")

// RelaySender posts messages as JSON to an HTTP mail relay.
type RelaySender struct {
	name        string
	from        string
	baseURL     string
	endpoint    *template.Template
	contentType string
	auth        auth.AuthProvider
	client      *http.Client
	logger      *zap.Logger
}

type relayPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
	Type    string `json:"type"`
	OrderID string `json:"order_id,omitempty"`
}

type relayResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
}

func NewRelaySender(name string, cfg data.TierConfig, logger *zap.Logger) (*RelaySender, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingBaseURL, name)
	}

	endpoint, err := tmpl.ParseEndpoint(name, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	provider, err := auth.BuildAuthProvider(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("tier %s: %w", name, err)
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	timeout := cfg.ConnectionTimeout + cfg.SocketTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &RelaySender{
		name:        name,
		from:        cfg.From,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		endpoint:    endpoint,
		contentType: contentType,
		auth:        provider,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

func (r *RelaySender) Name() string {
	return r.name
}

func (r *RelaySender) Send(ctx context.Context, msg data.Message) (string, error) {
	sendURL, err := r.urlBuilder(msg)
	if err != nil {
		return "", err
	}

	payload, err := r.encode(msg)
	if err != nil {
		r.logger.Error("Error while serializing the message:", zap.Error(err))
		return "", err
	}

	req, err := r.newRequest(ctx, http.MethodPost, sendURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", r.contentType)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Error while calling the relay api:", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("Relay hat die Nachricht abgelehnt:", zap.String("status", resp.Status), zap.String("body", string(body)))
		return "", fmt.Errorf("relay rejected message %s, Body: %s", resp.Status, string(body))
	}

	var parsed relayResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			r.logger.Debug("Relay-Antwort ist kein JSON:", zap.String("body", string(body)))
		}
	}
	switch {
	case parsed.MessageID != "":
		return parsed.MessageID, nil
	case parsed.ID != "":
		return parsed.ID, nil
	default:
		return r.name + "-" + uuid.NewString(), nil
	}
}

// Verify treats any answer below 500 as reachable; the base URL is not
// expected to serve anything meaningful.
func (r *RelaySender) Verify(ctx context.Context) error {
	req, err := r.newRequest(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay verify %s: %w", r.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("relay verify %s: %s", r.baseURL, resp.Status)
	}
	return nil
}

// encode follows the configured content type: xml relays get an XML document,
// everything else JSON.
func (r *RelaySender) encode(msg data.Message) ([]byte, error) {
	p := relayPayload{
		From:    r.from,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
		Type:    string(msg.Kind),
		OrderID: msg.OrderID,
	}
	if !strings.Contains(r.contentType, "xml") {
		return json.Marshal(p)
	}
	return convert.MapToXML("message", map[string]any{
		"from":     p.From,
		"to":       p.To,
		"reply_to": p.ReplyTo,
		"subject":  p.Subject,
		"text":     p.Text,
		"html":     p.HTML,
		"type":     p.Type,
		"order_id": p.OrderID,
	})
}

func (r *RelaySender) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		r.logger.Warn("Error while generating request:", zap.Error(err))
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	if r.auth != nil {
		authHeader, err := r.auth.GetAuthHeader(ctx)
		if err != nil {
			r.logger.Warn("Error while generating AuthHeaders:", zap.Error(err))
			return nil, err
		}
		req.Header.Set("Authorization", authHeader)
	}
	return req, nil
}

func (r *RelaySender) urlBuilder(msg data.Message) (string, error) {
	endpoint, err := tmpl.RenderEndpoint(r.endpoint, msg)
	if err != nil {
		r.logger.Warn("Fehler beim Rendern des Endpunktes:", zap.Error(err))
		return "", err
	}
	return r.baseURL + endpoint, nil
}

var _ Sender = (*RelaySender)(nil)
