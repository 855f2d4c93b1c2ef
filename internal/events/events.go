// Package events publishes meeting lifecycle events over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/hyperjump/gijiroku/internal/config"
)

// Event types.
const (
	MeetingCreated = "meeting.created"
	MeetingUpdated = "meeting.updated"
	MeetingDeleted = "meeting.deleted"
	MeetingEmailed = "meeting.emailed"
)

// Event is one meeting lifecycle notification.
type Event struct {
	Type      string    `json:"type"`
	MeetingID string    `json:"meetingId"`
	At        time.Time `json:"at"`
}

// Publisher sends events. Implementations are best-effort: a failed publish is
// logged by the caller and never fails the operation that triggered it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSPublisher publishes each event as JSON on <prefix>.<type>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	owned  bool
}

// NewNATSPublisher wraps an existing connection. The caller keeps ownership of nc.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Connect dials url and returns a publisher that closes the connection on Close.
func Connect(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("gijiroku"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, prefix: prefix, owned: true}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish injects the trace context of ctx into the message headers and publishes.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: p.Subject(e.Type), Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return p.nc.PublishMsg(msg)
}

// Close drains the connection when the publisher opened it.
func (p *NATSPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.nc.Drain()
}

// New returns a NATS publisher when cfg names a server, Nop otherwise.
func New(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Nop{}, nil
	}
	return Connect(cfg.NATSURL, cfg.SubjectPrefix, logger)
}
