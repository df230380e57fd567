package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"subroflow/contexts/subrogation/demand-service/ports"
)

// Kafka carries the queues over a broker, one topic per queue. Consumers
// run in a consumer group; a message is committed only after the handler
// finishes, successful or dead-lettered.
type Kafka struct {
	brokers         []string
	maxRedeliveries int
	logger          *slog.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

var (
	_ ports.QueuePublisher  = (*Kafka)(nil)
	_ ports.QueueSubscriber = (*Kafka)(nil)
)

func NewKafka(brokers []string, maxRedeliveries int, logger *slog.Logger) (*Kafka, error) {
	if maxRedeliveries <= 0 {
		maxRedeliveries = 5
	}
	return &Kafka{
		brokers:         brokers,
		maxRedeliveries: maxRedeliveries,
		logger:          logger,
		writers:         make(map[string]*kafka.Writer),
	}, nil
}

func (k *Kafka) writer(queue string) *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()
	w, exists := k.writers[queue]
	if !exists {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(k.brokers...),
			Topic:                  queue,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
		}
		k.writers[queue] = w
	}
	return w
}

func (k *Kafka) Send(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	messageID := uuid.NewString()
	err = k.writer(queue).WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(messageID)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		return err
	}
	if k.logger != nil {
		k.logger.Info("queue message sent",
			"event", "queue_message_sent",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"queue", queue,
			"message_id", messageID,
		)
	}
	return nil
}

// SendDelayed holds the message in-process until readyAt. Kafka has no
// native delayed delivery; a scheduled send that outlives the process is
// lost, which is acceptable for the retry cushioning this serves.
func (k *Kafka) SendDelayed(ctx context.Context, queue string, payload any, readyAt time.Time) error {
	delay := time.Until(readyAt)
	if delay <= 0 {
		return k.Send(ctx, queue, payload)
	}
	time.AfterFunc(delay, func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := k.Send(sendCtx, queue, payload); err != nil && k.logger != nil {
			k.logger.Error("delayed queue send failed",
				"event", "queue_delayed_send_failed",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"queue", queue,
				"error", err.Error(),
			)
		}
	})
	return nil
}

func (k *Kafka) Subscribe(ctx context.Context, queue, group string, handler func(context.Context, ports.QueueMessage) error) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		GroupID:  group,
		Topic:    queue,
		MinBytes: 1,
		MaxBytes: 10 << 20,
	})

	go func() {
		defer reader.Close()
		for {
			fetched, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if k.logger != nil {
					k.logger.Error("queue fetch failed",
						"event", "queue_fetch_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"queue", queue,
						"consumer_group", group,
						"error", err.Error(),
					)
				}
				continue
			}

			message := ports.QueueMessage{
				MessageID:     headerValue(fetched.Headers, "message-id"),
				ContentType:   headerValue(fetched.Headers, "content-type"),
				Body:          fetched.Value,
				DeliveryCount: 1,
			}
			if message.MessageID == "" {
				message.MessageID = string(fetched.Key)
			}

			// Retry in place, then give up and commit so the partition
			// does not wedge on a poison message.
			for {
				err := handler(ctx, message)
				if err == nil {
					break
				}
				if message.DeliveryCount >= k.maxRedeliveries {
					if k.logger != nil {
						k.logger.Error("queue message dead-lettered",
							"event", "queue_message_dead_lettered",
							"module", "internal/platform/messaging",
							"layer", "platform",
							"queue", queue,
							"consumer_group", group,
							"message_id", message.MessageID,
							"delivery_count", message.DeliveryCount,
							"error", err.Error(),
						)
					}
					break
				}
				message.DeliveryCount++
				if k.logger != nil {
					k.logger.Warn("queue message redelivery scheduled",
						"event", "queue_message_redelivery",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"queue", queue,
						"consumer_group", group,
						"message_id", message.MessageID,
						"delivery_count", message.DeliveryCount,
						"error", err.Error(),
					)
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff(message.DeliveryCount)):
				}
			}

			if err := reader.CommitMessages(ctx, fetched); err != nil && ctx.Err() == nil && k.logger != nil {
				k.logger.Error("queue commit failed",
					"event", "queue_commit_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"queue", queue,
					"consumer_group", group,
					"message_id", message.MessageID,
					"error", err.Error(),
				)
			}
		}
	}()
	return nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, w := range k.writers {
		_ = w.Close()
	}
	return nil
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
