package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"storefront.chapter42.de/mailer/internal/data"
	"storefront.chapter42.de/mailer/internal/processor"
	"storefront.chapter42.de/mailer/internal/tmpl"
)

type captured struct {
	mu   sync.Mutex
	msgs []data.Message
}

func (c *captured) deliver(_ context.Context, args ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, args[0].(data.Message))
	return "ok", nil
}

func newTestNotifier(t *testing.T, adminEmail string) (*Notifier, *captured) {
	t.Helper()
	templates, err := tmpl.PrepareTemplates()
	require.NoError(t, err)

	q := processor.New(zaptest.NewLogger(t))
	t.Cleanup(q.Stop)

	c := &captured{}
	n := New(q, c.deliver, templates, Config{
		StoreName:  "Kaffeerösterei",
		AdminEmail: adminEmail,
		Options:    processor.Options{MaxRetries: 1},
	}, zaptest.NewLogger(t))
	return n, c
}

func order() data.Order {
	return data.Order{
		ID:            "A-1001",
		CustomerName:  "Erika Mustermann",
		CustomerEmail: "erika@example.com",
		Items:         []data.OrderItem{{Name: "Bohnen 500g", Quantity: 1, UnitPrice: 9.9}},
		Total:         9.9,
		Status:        "versendet",
	}
}

func settle(t *testing.T, h *processor.Handle) processor.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestAdaptersAddressMessages(t *testing.T) {
	n, c := newTestNotifier(t, "admin@example.com")

	tests := []struct {
		send    func() (*processor.Handle, error)
		kind    data.Kind
		to      string
		replyTo string
	}{
		{func() (*processor.Handle, error) { return n.SendCustomerConfirmation(order()) }, data.KindCustomerConfirmation, "erika@example.com", "admin@example.com"},
		{func() (*processor.Handle, error) { return n.SendAdminNotification(order()) }, data.KindAdminNotification, "admin@example.com", "erika@example.com"},
		{func() (*processor.Handle, error) { return n.SendStatusUpdate(order()) }, data.KindStatusUpdate, "erika@example.com", "admin@example.com"},
		{func() (*processor.Handle, error) { return n.SendAlert("Queue hängt", "3 Jobs fehlgeschlagen") }, data.KindAlert, "admin@example.com", ""},
	}

	for _, tt := range tests {
		h, err := tt.send()
		require.NoError(t, err)
		assert.False(t, settle(t, h).Failed)

		c.mu.Lock()
		msg := c.msgs[len(c.msgs)-1]
		c.mu.Unlock()

		assert.Equal(t, tt.kind, msg.Kind)
		assert.Equal(t, tt.to, msg.To)
		assert.Equal(t, tt.replyTo, msg.ReplyTo)
		assert.NotEmpty(t, msg.Subject)
		assert.NotEmpty(t, msg.Text)
	}
}

func TestAlertCarriesNoOrder(t *testing.T) {
	n, c := newTestNotifier(t, "admin@example.com")
	h, err := n.SendAlert("SMTP down", "primary tier refused connections")
	require.NoError(t, err)
	settle(t, h)

	require.Len(t, c.msgs, 1)
	assert.Empty(t, c.msgs[0].OrderID)
	assert.Contains(t, c.msgs[0].Subject, "SMTP down")
	assert.Contains(t, c.msgs[0].Text, "primary tier refused connections")
}

func TestSendOrder(t *testing.T) {
	n, c := newTestNotifier(t, "admin@example.com")

	h, err := n.SendOrder(data.KindStatusUpdate, order())
	require.NoError(t, err)
	settle(t, h)
	require.Len(t, c.msgs, 1)
	assert.Equal(t, "A-1001", c.msgs[0].OrderID)

	_, err = n.SendOrder(data.KindAlert, order())
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = n.SendOrder(data.Kind("newsletter"), order())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMissingAddresses(t *testing.T) {
	n, _ := newTestNotifier(t, "")

	_, err := n.SendAdminNotification(order())
	assert.ErrorIs(t, err, ErrNoAdminAddress)
	_, err = n.SendAlert("x", "y")
	assert.ErrorIs(t, err, ErrNoAdminAddress)

	o := order()
	o.CustomerEmail = ""
	_, err = n.SendCustomerConfirmation(o)
	assert.ErrorIs(t, err, ErrNoRecipient)
}
