package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// PrintRequestMsg is a print request queued by the POS backend. Type and
// Data follow the POST /print body.
type PrintRequestMsg struct {
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type GenericPrinter interface {
	PrintGeneric(ctx context.Context, req usecase.GenericRequest, idemKey string) (entity.PrintJob, error)
}

// PrintRequestHandler prints queued requests. Bad payloads are dropped and
// duplicates acked; printer failures go back to the broker.
type PrintRequestHandler struct {
	printer GenericPrinter
}

func NewPrintRequestHandler(p GenericPrinter) *PrintRequestHandler {
	return &PrintRequestHandler{printer: p}
}

// HandlePrintRequest is intended to be used with queue.JSONHandler[PrintRequestMsg].
func (h *PrintRequestHandler) HandlePrintRequest(ctx context.Context, msg PrintRequestMsg) error {
	job, err := h.printer.PrintGeneric(ctx, usecase.GenericRequest{Type: msg.Type, Data: msg.Data}, msg.IdempotencyKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, usecase.ErrDuplicate):
		logging.FromCtx(ctx).Info("duplicate print request acked", "idempotency_key", msg.IdempotencyKey, "job_id", job.ID)
		return nil
	case errors.Is(err, entity.ErrValidation):
		return fmt.Errorf("%w: %v", ErrDrop, err)
	default:
		return err
	}
}
