package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Eursukkul/attendance-service/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// EventStore is the part of the event repository the consumer writes to.
type EventStore interface {
	Upsert(ctx context.Context, event *models.Event) error
}

type EventConsumer struct {
	events EventStore
	log    *logrus.Entry
}

func NewEventConsumer(events EventStore) *EventConsumer {
	return &EventConsumer{events: events, log: logrus.WithField("component", "event-consumer")}
}

// Start listens for messages and upserts events and their ticket categories
// into the local database.
func (ec *EventConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			ec.handleMessage(msg)
		}
		ec.log.Info("channel closed, stopping consumer")
	}()
}

func (ec *EventConsumer) handleMessage(msg amqp.Delivery) {
	var event models.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.ID == 0 {
		ec.log.WithError(err).WithField("routing_key", msg.RoutingKey).Warn("dropping malformed event message")
		msg.Nack(false, false)
		return
	}
	if event.Type == "" {
		event.Type = models.EventTypeRegistration
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := ec.log.WithFields(logrus.Fields{"event_id": event.ID, "routing_key": msg.RoutingKey})
	if err := ec.events.Upsert(ctx, &event); err != nil {
		logger.WithError(err).Error("failed to upsert event")
		msg.Nack(false, true) // requeue
		return
	}

	logger.WithField("categories", len(event.TicketCategories)).Info("synced event")
	msg.Ack(false)
}
