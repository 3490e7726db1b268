// Package natsbus publishes committed ledger events to NATS JetStream.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"sweeper/core/events"
	"sweeper/core/types"
)

const (
	// StreamName is the JetStream stream holding sweeper events.
	StreamName = "SWEEPER_EVENTS"

	// DefaultSubjectPrefix is used when no prefix is configured.
	DefaultSubjectPrefix = "sweeper.events"

	// StreamRetention is how long events are retained.
	StreamRetention = 30 * 24 * time.Hour

	publishTimeout = 5 * time.Second
)

// Message is the JSON body published for each event.
type Message struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	EmittedAt  time.Time         `json:"emittedAt"`
}

// publisher is the slice of JetStream the emitter needs.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

type jetStreamPublisher struct {
	js jetstream.JetStream
}

func (p jetStreamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := p.js.Publish(ctx, subject, data)
	return err
}

// Emitter implements events.Emitter by publishing every canonical event to
// "<prefix>.<event type>".
type Emitter struct {
	nc     *nats.Conn
	pub    publisher
	prefix string
	logger *slog.Logger
	nowFn  func() time.Time
}

// Connect dials natsURL, ensures the stream exists and returns an emitter.
func Connect(natsURL, prefix string, logger *slog.Logger) (*Emitter, error) {
	if strings.TrimSpace(natsURL) == "" {
		return nil, errors.New("natsbus: url required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(natsURL,
		nats.Name("sweeperd"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("natsbus: connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natsbus: jetstream: %w", err)
	}
	prefix = normalizePrefix(prefix)
	if err := ensureStream(js, prefix, logger); err != nil {
		nc.Close()
		return nil, err
	}
	emitter := newEmitter(jetStreamPublisher{js: js}, prefix, logger)
	emitter.nc = nc
	logger.Info("nats event publisher initialised", slog.String("stream", StreamName), slog.String("subject", prefix+".>"))
	return emitter, nil
}

func newEmitter(pub publisher, prefix string, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		pub:    pub,
		prefix: normalizePrefix(prefix),
		logger: logger.With(slog.String("component", "natsbus")),
		nowFn:  time.Now,
	}
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return DefaultSubjectPrefix
	}
	return prefix
}

func ensureStream(js jetstream.JetStream, prefix string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}
	logger.Info("creating jetstream stream", slog.String("stream", StreamName))
	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Committed forwarder, token and transfer events",
		Subjects:    []string{prefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("natsbus: create stream: %w", err)
	}
	return nil
}

// Subject returns the subject an event type is published on.
func (e *Emitter) Subject(eventType string) string {
	return e.prefix + "." + eventType
}

// Emit implements events.Emitter. Publish failures are logged; the ledger
// has already committed and is the source of truth.
func (e *Emitter) Emit(evt events.Event) {
	if e == nil || evt == nil {
		return
	}
	payload := events.Canonical(evt)
	if payload == nil {
		return
	}
	if err := e.publish(payload); err != nil {
		e.logger.Error("publish event",
			slog.String("reason", payload.Type),
			slog.String("error", err.Error()))
	}
}

func (e *Emitter) publish(payload *types.Event) error {
	data, err := json.Marshal(Message{Type: payload.Type, Attributes: payload.Attributes, EmittedAt: e.nowFn().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	subject := e.Subject(payload.Type)
	if err := e.pub.Publish(ctx, subject, data); err != nil {
		return err
	}
	e.logger.Debug("published event", slog.String("subject", subject))
	return nil
}

// Close drains the NATS connection.
func (e *Emitter) Close() error {
	if e == nil || e.nc == nil {
		return nil
	}
	return e.nc.Drain()
}
