package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a synchronous writer for topic. Messages with the same key land
// on the same partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// KafkaNotifier publishes messages for a downstream mailer, keyed by booking id.
type KafkaNotifier struct {
	w   messageWriter
	now func() time.Time
}

func NewKafkaNotifier(w messageWriter) *KafkaNotifier {
	return &KafkaNotifier{w: w, now: time.Now}
}

type notificationEvent struct {
	Kind      Kind      `json:"kind"`
	BookingID string    `json:"booking_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, m Message) error {
	now := n.now().UTC()
	data, err := json.Marshal(notificationEvent{
		Kind:      m.Kind,
		BookingID: m.BookingID.String(),
		To:        m.To,
		Subject:   m.Subject,
		Body:      m.Body,
		SentAt:    now,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := n.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.BookingID.String()),
		Value: data,
		Time:  now,
	}); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}
