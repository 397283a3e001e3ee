package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/IBM/sarama"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev OrderPlacedMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
	// RetryBackoff is the pause before a failed message is redelivered.
	RetryBackoff time.Duration
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka"),

		RetryBackoff: 2 * time.Second,
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &cgHandler{handle: c.Handle, logger: c.Logger, backoff: c.RetryBackoff}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type cgHandler struct {
	handle  HandlerFunc
	logger  *slog.Logger
	backoff time.Duration
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		l := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		var ev OrderPlacedMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			l.Error("kafka decode error", "error", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}
		if ev.EventID == "" {
			ev.EventID = string(msg.Key)
		}
		if err := h.handle(logging.WithCtx(sess.Context(), l), ev); err != nil {
			l.Error("handler error", "key", string(msg.Key), "error", err)
			// ending the claim ends the session before anything later is
			// marked; the next session resumes from this offset
			h.pause(sess.Context())
			return fmt.Errorf("offset %d: %w", msg.Offset, err)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (h *cgHandler) pause(ctx context.Context) {
	if h.backoff <= 0 {
		return
	}
	t := time.NewTimer(h.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
