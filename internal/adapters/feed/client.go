// Package feed connects to the auction websocket and turns frames into
// validated domain events.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/autobid/internal/domain"
)

const (
	defaultReadTimeout    = 60 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
	messageBuffer         = 256
)

// Config for the feed client.
type Config struct {
	URL            string
	Header         http.Header
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	ReconnectDelay time.Duration
}

// Client implementa ports.FeedSource sobre un websocket con reconexión.
type Client struct {
	cfg    Config
	dialer websocket.Dialer
}

// NewClient crea un cliente del feed. No conecta hasta Messages.
func NewClient(cfg Config) *Client {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.Dialer{HandshakeTimeout: 15 * time.Second},
	}
}

// Messages connects and streams validated messages until ctx is cancelled.
// Dropped connections are retried with exponential backoff; malformed frames are
// logged and skipped. The channel is closed on exit.
func (c *Client) Messages(ctx context.Context) <-chan domain.FeedMessage {
	out := make(chan domain.FeedMessage, messageBuffer)
	go func() {
		defer close(out)
		delay := c.cfg.ReconnectDelay
		for {
			received, err := c.session(ctx, out)
			if ctx.Err() != nil {
				return
			}
			if received > 0 {
				delay = c.cfg.ReconnectDelay
			}
			slog.Warn("feed: disconnected, reconnecting", "err", err, "delay", delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
		}
	}()
	return out
}

// session runs one connection until it fails. Returns how many messages it delivered.
func (c *Client) session(ctx context.Context, out chan<- domain.FeedMessage) (int, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return 0, fmt.Errorf("feed.session: dial %s: %w", c.cfg.URL, err)
	}
	defer conn.Close()
	slog.Info("feed: connected", "url", c.cfg.URL)

	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})

	received := 0
	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return received, fmt.Errorf("feed.session: deadline: %w", err)
		}
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("feed.session: read: %w", err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}

		msg, err := ParseMessage(raw)
		if err != nil {
			slog.Warn("feed: rejected message", "err", err)
			continue
		}
		select {
		case out <- msg:
			received++
		case <-ctx.Done():
			return received, ctx.Err()
		}
	}
}

// keepalive pings the server and closes the connection when ctx is cancelled,
// which unblocks the pending read.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				slog.Debug("feed: ping failed", "err", err)
			}
		}
	}
}
