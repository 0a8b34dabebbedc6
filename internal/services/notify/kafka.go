package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink exports events to a topic, keyed by user id so that one user's
// events stay on one partition and keep their order.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				slog.Warn("export notifications to kafka", "count", len(messages), "error", err)
			}
		},
	}}
}

func (k *KafkaSink) Publish(ctx context.Context, events ...Event) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			slog.Warn("encode notification", "type", e.Type, "error", err)
			continue
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.UserID),
			Value: value,
			Time:  e.At,
		})
	}

	if len(msgs) == 0 {
		return
	}

	err := k.writer.WriteMessages(ctx, msgs...)
	if err != nil {
		slog.Warn("queue notifications for kafka", "count", len(msgs), "error", err)
	}
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
