package deploy

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

type jsPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSNotifier publishes publish events to a JetStream subject.
type NATSNotifier struct {
	conn    *nats.Conn
	js      jsPublisher
	subject string
}

// NATSConfig identifies the server, stream and subject.
type NATSConfig struct {
	URL     string
	Stream  string
	Subject string
}

// NewNATSNotifier connects to NATS and makes sure the stream capturing the subject exists.
func NewNATSNotifier(ctx context.Context, cfg NATSConfig) (*NATSNotifier, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("sitepublisher"))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").WithCause(err).WithContext("url", cfg.URL).Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to create JetStream context").WithCause(err).Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Site content publish events",
		Subjects:    []string{cfg.Subject},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.NetworkError("failed to ensure JetStream stream").
			WithCause(err).
			WithContext("stream", cfg.Stream).
			Build()
	}

	slog.Info("NATS deploy notifier initialized", "url", cfg.URL, "stream", cfg.Stream, "subject", cfg.Subject)
	return &NATSNotifier{conn: conn, js: js, subject: cfg.Subject}, nil
}

func (n *NATSNotifier) Name() string { return "nats" }

// Fire implements Trigger. The publish id is used as the message id so JetStream drops
// duplicates.
func (n *NATSNotifier) Fire(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.DeployError("failed to marshal deploy event").WithCause(err).Build()
	}
	if _, err := n.js.Publish(ctx, n.subject, data, jetstream.WithMsgID(ev.PublishID)); err != nil {
		return errors.DeployError("failed to publish deploy event").
			WithCause(err).
			WithContext("trigger", n.Name()).
			WithContext("subject", n.subject).
			Build()
	}
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
