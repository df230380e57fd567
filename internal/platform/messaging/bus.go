package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"subroflow/contexts/subrogation/demand-service/ports"
)

// Bus is the in-process queue used by the memory transport and tests. It is
// at-least-once: a failed handler gets the message redelivered until the
// redelivery cap, after which the message is dead-lettered to the log.
type Bus struct {
	mu              sync.Mutex
	queues          map[string]chan ports.QueueMessage
	maxRedeliveries int
	logger          *slog.Logger
}

var (
	_ ports.QueuePublisher  = (*Bus)(nil)
	_ ports.QueueSubscriber = (*Bus)(nil)
)

func NewBus(maxRedeliveries int, logger *slog.Logger) *Bus {
	if maxRedeliveries <= 0 {
		maxRedeliveries = 5
	}
	return &Bus{
		queues:          make(map[string]chan ports.QueueMessage),
		maxRedeliveries: maxRedeliveries,
		logger:          logger,
	}
}

func (b *Bus) queue(name string) chan ports.QueueMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, exists := b.queues[name]
	if !exists {
		ch = make(chan ports.QueueMessage, 1024)
		b.queues[name] = ch
	}
	return ch
}

func (b *Bus) Send(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	message := ports.QueueMessage{
		MessageID:     uuid.NewString(),
		ContentType:   "application/json",
		Body:          body,
		DeliveryCount: 1,
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.queue(queue) <- message:
	}
	if b.logger != nil {
		b.logger.Info("queue message sent",
			"event", "queue_message_sent",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"queue", queue,
			"message_id", message.MessageID,
		)
	}
	return nil
}

func (b *Bus) SendDelayed(ctx context.Context, queue string, payload any, readyAt time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	delay := time.Until(readyAt)
	if delay <= 0 {
		return b.Send(ctx, queue, payload)
	}
	messageID := uuid.NewString()
	time.AfterFunc(delay, func() {
		message := ports.QueueMessage{
			MessageID:     messageID,
			ContentType:   "application/json",
			Body:          body,
			DeliveryCount: 1,
		}
		// The timer goroutine must never park on a full queue; the caller's
		// context is long gone by the time it fires.
		select {
		case b.queue(queue) <- message:
		default:
			if b.logger != nil {
				b.logger.Error("queue message dead-lettered",
					"event", "queue_message_dead_lettered",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"queue", queue,
					"message_id", messageID,
					"error", "queue full at readiness",
				)
			}
		}
	})
	return nil
}

// Subscribe attaches a competing consumer to the queue. Redeliveries go to
// the back of the queue.
func (b *Bus) Subscribe(ctx context.Context, queue, group string, handler func(context.Context, ports.QueueMessage) error) error {
	ch := b.queue(queue)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case message := <-ch:
				err := handler(ctx, message)
				if err == nil {
					continue
				}
				if message.DeliveryCount >= b.maxRedeliveries {
					if b.logger != nil {
						b.logger.Error("queue message dead-lettered",
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
					continue
				}
				message.DeliveryCount++
				if b.logger != nil {
					b.logger.Warn("queue message redelivery scheduled",
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
				case ch <- message:
				}
			}
		}
	}()
	return nil
}

// DisabledPublisher accepts sends without a broker. Requests succeed and the
// drop is logged, so the synchronous API keeps working in environments with
// no queue configured.
type DisabledPublisher struct {
	Logger *slog.Logger
}

var _ ports.QueuePublisher = DisabledPublisher{}

func (p DisabledPublisher) Send(_ context.Context, queue string, _ any) error {
	if p.Logger != nil {
		p.Logger.Warn("queue transport disabled, message dropped",
			"event", "queue_send_skipped",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"queue", queue,
		)
	}
	return nil
}

func (p DisabledPublisher) SendDelayed(ctx context.Context, queue string, payload any, _ time.Time) error {
	return p.Send(ctx, queue, payload)
}
