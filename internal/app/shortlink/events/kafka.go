package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"shortlink.local/internal/platform/metrics"
)

const headerType = "event-type"

type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 异步写入：WriteMessages 立即返回，失败在 Completion 中统计
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // 同一短码落到同一分区，保证顺序
			Async:        true,
			BatchTimeout: 50 * time.Millisecond,
			Completion:   onCompletion,
		},
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := toMessage(e)
	if err != nil {
		metrics.EventsDropped.WithLabelValues(e.Type).Inc()
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsDropped.WithLabelValues(e.Type).Inc()
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func toMessage(e Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:     []byte(e.Code),
		Value:   data,
		Headers: []kafka.Header{{Key: headerType, Value: []byte(e.Type)}},
		Time:    e.At,
	}, nil
}

func onCompletion(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	slog.Error("kafka write failed", "err", err, "count", len(msgs))
	for _, m := range msgs {
		metrics.EventsDropped.WithLabelValues(messageType(m)).Inc()
	}
}

func messageType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == headerType {
			return string(h.Value)
		}
	}
	return "unknown"
}
