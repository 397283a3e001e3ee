package kafka

import (
	"context"
	"errors"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// OrderPlacedMsg is the POS backend's order-placed event.
type OrderPlacedMsg struct {
	EventID      string       `json:"event_id"`
	Order        entity.Order `json:"order"`
	PrintReceipt bool         `json:"print_receipt"`
}

type OrderPrinter interface {
	PrintKitchen(ctx context.Context, o entity.Order, idemKey string) (entity.PrintJob, error)
	PrintCustomer(ctx context.Context, o entity.Order, idemKey string) (entity.PrintJob, error)
}

// OrderPlacedHandler prints the kitchen ticket for every placed order, and
// the customer receipt when the event asks for one.
type OrderPlacedHandler struct {
	printer OrderPrinter
}

func NewOrderPlacedHandler(p OrderPrinter) *OrderPlacedHandler {
	return &OrderPlacedHandler{printer: p}
}

func (h *OrderPlacedHandler) Handle(ctx context.Context, ev OrderPlacedMsg) error {
	key := "kafka:" + ev.EventID
	if ev.EventID == "" {
		key = "kafka:order:" + ev.Order.OrderID.String()
	}

	if _, err := h.printer.PrintKitchen(ctx, ev.Order, key); settled(ctx, err) != nil {
		return err
	}
	if !ev.PrintReceipt {
		return nil
	}
	if _, err := h.printer.PrintCustomer(ctx, ev.Order, key); settled(ctx, err) != nil {
		return err
	}
	return nil
}

// settled treats duplicates and invalid orders as done: neither improves on redelivery.
func settled(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, usecase.ErrDuplicate):
		return nil
	case errors.Is(err, entity.ErrValidation):
		logging.FromCtx(ctx).Warn("skipping invalid order event", "error", err)
		return nil
	default:
		return err
	}
}
