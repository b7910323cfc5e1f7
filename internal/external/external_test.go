package external

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"storefront.chapter42.de/mailer/internal/data"
)

func testMessage() data.Message {
	return data.Message{
		Kind:    data.KindCustomerConfirmation,
		To:      "kunde@example.com",
		Subject: "Bestellbestätigung A-1001",
		Text:    "Danke!",
		HTML:    "<p>Danke!</p>",
		OrderID: "A-1001",
	}
}

func TestNewSender(t *testing.T) {
	log := zaptest.NewLogger(t)

	s, err := NewSender("primary", data.TierConfig{Kind: "smtp", Host: "mail.example.com", From: "shop@example.com", SMTPPort: 587}, log)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)
	assert.Equal(t, "primary", s.Name())

	s, err = NewSender("fallback", data.TierConfig{Kind: "http", BaseURL: "https://relay.example.com", Endpoint: "/send"}, log)
	require.NoError(t, err)
	assert.IsType(t, &RelaySender{}, s)

	s, err = NewSender("dev", data.TierConfig{Kind: "simulated"}, log)
	require.NoError(t, err)
	assert.IsType(t, &SimulatedSender{}, s)

	s, err = NewSender("fallback", data.TierConfig{}, log)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewSender("primary", data.TierConfig{Kind: "pigeon"}, log)
	assert.Error(t, err)

	_, err = NewSender("primary", data.TierConfig{Kind: "smtp", From: "shop@example.com"}, log)
	assert.ErrorIs(t, err, ErrMissingHost)

	_, err = NewSender("primary", data.TierConfig{Kind: "http"}, log)
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestSimulatedSender(t *testing.T) {
	s := NewSimulatedSender("", nil)
	assert.Equal(t, SimulatedTierName, s.Name())
	assert.NoError(t, s.Verify(context.Background()))

	id1, err := s.Send(context.Background(), testMessage())
	require.NoError(t, err)
	id2, err := s.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id1, "simulated-"))
	assert.NotEqual(t, id1, id2)
}

func TestRelaySend(t *testing.T) {
	var got relayPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages/customer_confirmation", r.URL.Path)
		assert.Equal(t, "Bearer relay-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"relay-42"}`))
	}))
	defer srv.Close()

	s, err := NewRelaySender("fallback", data.TierConfig{
		From:     "shop@example.com",
		BaseURL:  srv.URL + "/",
		Endpoint: "/v1/messages/{{.Kind}}",
		Auth:     data.AuthConfig{Type: "bearer", Token: "relay-token"},
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	id, err := s.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "relay-42", id)
	assert.Equal(t, "shop@example.com", got.From)
	assert.Equal(t, "kunde@example.com", got.To)
	assert.Equal(t, "customer_confirmation", got.Type)
	assert.Equal(t, "A-1001", got.OrderID)
}

func TestRelaySendXML(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = w.Write([]byte(`{"message_id":"<x-1@relay>"}`))
	}))
	defer srv.Close()

	s, err := NewRelaySender("fallback", data.TierConfig{BaseURL: srv.URL, Endpoint: "/send", ContentType: "application/xml"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	id, err := s.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.Equal(t, "<x-1@relay>", id)
	assert.Contains(t, body, "<to>kunde@example.com</to>")
	assert.Contains(t, body, "<html>&lt;p&gt;Danke!&lt;/p&gt;</html>")
}

func TestRelaySendGeneratesIDWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, err := NewRelaySender("fallback", data.TierConfig{BaseURL: srv.URL, Endpoint: "/send"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	id, err := s.Send(context.Background(), testMessage())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "fallback-"))
}

func TestRelaySendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s, err := NewRelaySender("fallback", data.TierConfig{BaseURL: srv.URL, Endpoint: "/send"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "mailbox full")
}

func TestRelayVerify(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	s, err := NewRelaySender("fallback", data.TierConfig{BaseURL: srv.URL, Endpoint: "/send"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NoError(t, s.Verify(context.Background()))

	status.Store(http.StatusBadGateway)
	assert.Error(t, s.Verify(context.Background()))

	srv.Close()
	assert.Error(t, s.Verify(context.Background()))
}

// fakeSMTP accepts every command and records the DATA section.
type fakeSMTP struct {
	ln   net.Listener
	mu   sync.Mutex
	data []string
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeSMTP{ln: ln}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f
}

func (f *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	reply("220 localhost ESMTP fake")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case cmd == "DATA":
			reply("354 go ahead")
			var body strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				body.WriteString(l)
			}
			f.mu.Lock()
			f.data = append(f.data, body.String())
			f.mu.Unlock()
			reply("250 queued")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (f *fakeSMTP) tier() data.TierConfig {
	return data.TierConfig{
		Kind:              "smtp",
		From:              "shop@example.com",
		Host:              "127.0.0.1",
		SMTPPort:          f.ln.Addr().(*net.TCPAddr).Port,
		TLS:               "none",
		ConnectionTimeout: time.Second,
		GreetingTimeout:   time.Second,
		SocketTimeout:     time.Second,
	}
}

func (f *fakeSMTP) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.data...)
}

func TestSMTPSend(t *testing.T) {
	srv := startFakeSMTP(t)
	s, err := NewSMTPSender("primary", srv.tier(), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, s.Verify(context.Background()))

	id, err := s.Send(context.Background(), testMessage())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], id)
	assert.Contains(t, msgs[0], "X-Order-ID: A-1001")
	assert.Contains(t, msgs[0], "kunde@example.com")
	assert.Contains(t, msgs[0], "text/html")
}

func TestSMTPUnreachable(t *testing.T) {
	s, err := NewSMTPSender("primary", data.TierConfig{
		From:              "shop@example.com",
		Host:              "127.0.0.1",
		SMTPPort:          1,
		TLS:               "none",
		ConnectionTimeout: 200 * time.Millisecond,
		GreetingTimeout:   200 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Error(t, s.Verify(context.Background()))
	_, err = s.Send(context.Background(), testMessage())
	assert.Error(t, err)
}

func TestSMTPRejectsBadRecipient(t *testing.T) {
	s, err := NewSMTPSender("primary", data.TierConfig{From: "shop@example.com", Host: "127.0.0.1", SMTPPort: 1}, zaptest.NewLogger(t))
	require.NoError(t, err)

	msg := testMessage()
	msg.To = "not an address"
	_, err = s.Send(context.Background(), msg)
	assert.ErrorContains(t, err, "invalid recipient")
}
