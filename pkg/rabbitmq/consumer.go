package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ConsumerConfig names the exchange the event service publishes to and the
// durable queue this service reads from.
type ConsumerConfig struct {
	Exchange string
	Queue    string
	Bindings []string
	Prefetch int
}

// EventSyncConfig subscribes to event.created and event.updated, which carry
// the full event with its ticket categories.
func EventSyncConfig() ConsumerConfig {
	return ConsumerConfig{
		Exchange: "events",
		Queue:    "attendance-service.events",
		Bindings: []string{"event.*"},
		Prefetch: 10,
	}
}

type Consumer struct {
	*session
	cfg ConsumerConfig
}

func NewConsumer(url string, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.Queue == "" || len(cfg.Bindings) == 0 {
		return nil, fmt.Errorf("rabbitmq consumer: queue and bindings are required")
	}

	s, err := openSession(url, cfg.Exchange)
	if err != nil {
		return nil, err
	}

	q, err := s.channel.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if cfg.Prefetch > 0 {
		if err := s.channel.Qos(cfg.Prefetch, 0, false); err != nil {
			s.close()
			return nil, fmt.Errorf("rabbitmq qos: %w", err)
		}
	}

	for _, key := range cfg.Bindings {
		if err := s.channel.QueueBind(q.Name, key, cfg.Exchange, false, nil); err != nil {
			s.close()
			return nil, fmt.Errorf("rabbitmq queue bind %q: %w", key, err)
		}
	}

	return &Consumer{session: s, cfg: cfg}, nil
}

// Consume starts delivery with manual acks; handlers ack after processing.
func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"queue":    c.cfg.Queue,
		"exchange": c.cfg.Exchange,
		"bindings": c.cfg.Bindings,
	}).Info("consuming from rabbitmq")
	return msgs, nil
}

func (c *Consumer) Close() {
	c.session.close()
}
