package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes trade events to a Kafka topic, keyed by account id
// so per-account ordering is preserved within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
	return &KafkaPublisher{writer: w}
}

var _ Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) Publish(ctx context.Context, ev TradeExecuted) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal trade event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AccountID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write trade event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
