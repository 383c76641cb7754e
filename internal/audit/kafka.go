package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"signoff/pkg/platform/circuit"
)

// KafkaPublisher streams events to a Kafka topic for deployments that feed
// the trail into downstream compliance tooling.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	log     *slog.Logger
	breaker *circuit.Breaker
}

// NewKafkaPublisher connects to the brokers and makes sure the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, log *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}
	return &KafkaPublisher{
		client:  client,
		topic:   topic,
		log:     log,
		breaker: circuit.New("kafka-audit"),
	}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, -1, nil, topic)
	if err != nil {
		return err
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return res.Err
		}
	}
	return nil
}

// Publish produces synchronously so delivery failures surface to the caller.
// Events with a subject are keyed by it to keep per-signatory order. While
// the breaker is open, delivery failures are swallowed; the local audit
// store remains the source of truth and the stream catches up once the
// brokers recover.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	event = stamp(event)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	key := event.Subject
	if key == "" {
		key = string(event.Action)
	}
	rec := &kgo.Record{Topic: p.topic, Key: []byte(key), Value: payload}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		useFallback, change := p.breaker.RecordFailure()
		if change.Opened {
			p.log.ErrorContext(ctx, "audit stream circuit opened",
				"topic", p.topic,
				"error", err,
			)
		}
		if useFallback {
			return nil
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.log.InfoContext(ctx, "audit stream circuit closed", "topic", p.topic)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
