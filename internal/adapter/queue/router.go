package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            *amqp.Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	log           *slog.Logger
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }
func WithLogger(l *slog.Logger) RouterOption   { return func(r *Router) { r.log = l } }

// NewRouter constructs a Router. Defaults: prefetch=1, timeout=15s, requeueOnErr=true.
// One printer prints one ticket at a time, so there is no point prefetching more.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     1,
		callTimeout:  15 * time.Second,
		requeueOnErr: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.New("rabbitmq")
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "printer-helper_" + queueName,
	})
}

// Start begins consuming; non-blocking (spawns one goroutine per queue).
// Handler contexts derive from ctx; consumers stop when the channel closes.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		go func(reg registration, msgs <-chan amqp.Delivery) {
			l := r.log.With("queue", reg.queueName, "tag", reg.consumerTag)
			for d := range msgs {
				r.dispatch(ctx, l, reg.handler, d)
			}
			l.Info("consumer stopped")
		}(reg, deliveries)
	}

	return nil
}

func (r *Router) dispatch(ctx context.Context, l *slog.Logger, h Handler, d amqp.Delivery) {
	callCtx, cancel := context.WithTimeout(logging.WithCtx(ctx, l), r.callTimeout)
	err := h.Handle(callCtx, d)
	cancel()

	if err != nil {
		requeue := r.requeueOnErr && !errors.Is(err, ErrDrop)
		l.Error("handler error", "routing_key", d.RoutingKey, "error", err, "requeue", requeue)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
