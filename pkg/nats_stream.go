package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/dawatapp/dawat/pkg/event"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	DefaultStreamName   = "DAWAT_EVENTS"
	DefaultStreamMaxAge = 72 * time.Hour
)

// NATSStreamConfig configures a NATSStreamPublisher.
type NATSStreamConfig struct {
	URL        string
	StreamName string
	Subjects   []string
	MaxAge     time.Duration
	MaxMsgs    int64 // 0 keeps every message until MaxAge
}

// NATSStreamPublisher publishes into a JetStream stream so marketplace events
// survive subscriber restarts. Publish waits for the server ack.
type NATSStreamPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
}

// StreamConfigFor fills in defaults: both marketplace topics and three days of retention.
func StreamConfigFor(url string) NATSStreamConfig {
	return NATSStreamConfig{
		URL:        url,
		StreamName: DefaultStreamName,
		Subjects:   []string{event.PostsTopic, event.OrdersTopic},
		MaxAge:     DefaultStreamMaxAge,
	}
}

// NewNATSStreamPublisher connects and creates or updates the stream.
func NewNATSStreamPublisher(ctx context.Context, cfg NATSStreamConfig) (*NATSStreamPublisher, error) {
	if len(cfg.Subjects) == 0 {
		return nil, fmt.Errorf("stream %s needs at least one subject", cfg.StreamName)
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("dawat-marketplace-stream"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: cfg.Subjects,
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	if _, err := js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &NATSStreamPublisher{
		conn:   conn,
		js:     js,
		stream: cfg.StreamName,
	}, nil
}

func (p *NATSStreamPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := p.js.Publish(ctx, topic, msg, jetstream.WithExpectStream(p.stream)); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}

func (p *NATSStreamPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("cannot drain NATS connection: %w", err)
	}
	return nil
}
