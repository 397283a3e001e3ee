package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange      = "printer.events"
	DefaultJobRoutingKey = "print.job"
	DefaultIntakeQueue   = "print.requests.q"
	IntakeRoutingKey     = "print.request"
)

// JobEvent is the body published for every finished print job.
type JobEvent struct {
	Event      string          `json:"event"`
	Job        entity.PrintJob `json:"job"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitJobPublisher implements usecase.JobPublisher. Jobs are published to
// the topic exchange as <prefix>.<status>, e.g. print.job.failed.
type RabbitJobPublisher struct {
	ch       publisher
	exchange string
	prefix   string
	now      func() time.Time
}

// DeclareTopology sets up the exchange and the intake queue bound to it once
// at startup.
func DeclareTopology(ch *amqp.Channel, exchange, intakeQueue string) error {
	// 1. declare exchange (topic type, durable)
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// 2. declare intake queue
	q, err := ch.QueueDeclare(
		intakeQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// 3. bind queue → exchange
	if err := ch.QueueBind(q.Name, IntakeRoutingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	return nil
}

func NewRabbitJobPublisher(ch *amqp.Channel, exchange, routingPrefix string) *RabbitJobPublisher {
	return newRabbitJobPublisher(ch, exchange, routingPrefix)
}

func newRabbitJobPublisher(ch publisher, exchange, routingPrefix string) *RabbitJobPublisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if routingPrefix == "" {
		routingPrefix = DefaultJobRoutingKey
	}
	return &RabbitJobPublisher{ch: ch, exchange: exchange, prefix: routingPrefix, now: time.Now}
}

func (p *RabbitJobPublisher) PublishJob(ctx context.Context, job entity.PrintJob) error {
	key := p.prefix + "." + string(job.Status)
	body, err := json.Marshal(JobEvent{Event: key, Job: job, OccurredAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    p.now(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

var _ usecase.JobPublisher = (*RabbitJobPublisher)(nil)
