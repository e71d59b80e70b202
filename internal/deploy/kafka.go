package deploy

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes publish events to a Kafka topic keyed by publish id.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier builds a synchronous writer for brokers/topic.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.ConfigError("kafka: at least one broker required").Build()
	}
	if topic == "" {
		return nil, errors.ConfigError("kafka: topic required").Build()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w, topic: topic}, nil
}

func (k *KafkaNotifier) Name() string { return "kafka" }

// Fire implements Trigger.
func (k *KafkaNotifier) Fire(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.DeployError("failed to marshal deploy event").WithCause(err).Build()
	}
	msg := kafka.Message{Key: []byte(ev.PublishID), Value: data, Time: ev.Time}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errors.DeployError("failed to write deploy event").
			WithCause(err).
			WithContext("trigger", k.Name()).
			WithContext("topic", k.topic).
			Build()
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaNotifier) Close() error { return k.writer.Close() }
