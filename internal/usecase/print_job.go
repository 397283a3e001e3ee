package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/escpos"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/google/uuid"
)

type SubmitInput struct {
	Type           entity.JobType
	Content        []byte
	OrderID        string
	IdempotencyKey string
}

// PrintService formats tickets and runs them through the job log to the
// connected printer. It never retries; the POS owns retries.
type PrintService struct {
	sender     Sender
	jobs       *JobLog
	formatter  *escpos.Formatter
	idem       IdempotencyStore
	publishers []JobPublisher
	archive    JobArchive
	log        *slog.Logger
	now        func() time.Time
	newID      func(time.Time) string
	fanout     time.Duration
}

type ServiceOption func(*PrintService)

func WithIdempotency(s IdempotencyStore) ServiceOption {
	return func(p *PrintService) { p.idem = s }
}

func WithPublishers(pubs ...JobPublisher) ServiceOption {
	return func(p *PrintService) { p.publishers = append(p.publishers, pubs...) }
}

func WithArchive(a JobArchive) ServiceOption {
	return func(p *PrintService) { p.archive = a }
}

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(p *PrintService) { p.now = now }
}

func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(p *PrintService) { p.log = l }
}

// WithFanoutTimeout bounds each publisher and archive call. Default 2s.
func WithFanoutTimeout(d time.Duration) ServiceOption {
	return func(p *PrintService) { p.fanout = d }
}

func NewPrintService(sender Sender, jobs *JobLog, f *escpos.Formatter, opts ...ServiceOption) *PrintService {
	s := &PrintService{
		sender:    sender,
		jobs:      jobs,
		formatter: f,
		now:       time.Now,
		newID:     newJobID,
		fanout:    2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.New("print")
	}
	return s
}

func newJobID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("job_%d_%s", now.UnixMilli(), suffix)
}

// Submit records a job and sends it. The returned job is always populated
// once it has been logged, even when err is non-nil.
func (s *PrintService) Submit(ctx context.Context, in SubmitInput) (entity.PrintJob, error) {
	scope := string(in.Type)
	locked := false
	if in.IdempotencyKey != "" && s.idem != nil {
		if id, ok, err := s.idem.Recall(ctx, scope, in.IdempotencyKey); err == nil && ok {
			if job, found := s.jobs.Get(id); found {
				return job, nil
			}
			return entity.PrintJob{ID: id, Type: in.Type, OrderID: in.OrderID}, fmt.Errorf("%w: job %s already printed", ErrDuplicate, id)
		}
		ok, err := s.idem.TryLock(ctx, scope, in.IdempotencyKey)
		switch {
		case err != nil:
			// a broken store must not stop the kitchen printing
			logging.FromCtx(ctx).Warn("idempotency store unavailable", "error", err)
		case !ok:
			return entity.PrintJob{}, ErrDuplicate
		default:
			locked = true
		}
	}

	now := s.now()
	job := entity.PrintJob{
		ID:        s.newID(now),
		Type:      in.Type,
		OrderID:   in.OrderID,
		Status:    entity.JobQueued,
		Bytes:     len(in.Content),
		CreatedAt: now,
		Content:   in.Content,
	}
	s.jobs.Append(job)

	printerID, err := s.sender.Send(ctx, in.Content)
	job.PrinterID = printerID
	if err != nil {
		job.Status = entity.JobFailed
		job.Error = err.Error()
	} else {
		done := s.now()
		job.Status = entity.JobCompleted
		job.CompletedAt = &done
	}
	s.jobs.Update(job)

	if locked {
		if err != nil {
			_ = s.idem.Release(ctx, scope, in.IdempotencyKey)
		} else {
			_ = s.idem.Remember(ctx, scope, in.IdempotencyKey, job.ID)
		}
	}

	s.finish(ctx, job)

	l := logging.FromCtx(ctx).With("job_id", job.ID, "job_type", job.Type, "order_id", job.OrderID, "bytes", job.Bytes)
	if err != nil {
		l.Error("print job failed", "error", err)
		return job, err
	}
	l.Info("print job completed", "printer_id", printerID)
	return job, nil
}

func (s *PrintService) finish(ctx context.Context, job entity.PrintJob) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fanout)
	defer cancel()

	for _, p := range s.publishers {
		if err := p.PublishJob(ctx, job); err != nil {
			s.log.Warn("publish job event", "job_id", job.ID, "publisher", fmt.Sprintf("%T", p), "error", err)
		}
	}
	if s.archive != nil {
		if err := s.archive.SaveJob(ctx, job); err != nil {
			s.log.Warn("archive job", "job_id", job.ID, "error", err)
		}
	}
}

func (s *PrintService) PrintKitchen(ctx context.Context, o entity.Order, idemKey string) (entity.PrintJob, error) {
	if err := o.Validate(); err != nil {
		return entity.PrintJob{}, err
	}
	return s.Submit(ctx, SubmitInput{
		Type:           entity.JobKitchen,
		Content:        s.formatter.Kitchen(o),
		OrderID:        o.OrderID.String(),
		IdempotencyKey: idemKey,
	})
}

func (s *PrintService) PrintCustomer(ctx context.Context, o entity.Order, idemKey string) (entity.PrintJob, error) {
	if err := o.Validate(); err != nil {
		return entity.PrintJob{}, err
	}
	return s.Submit(ctx, SubmitInput{
		Type:           entity.JobCustomer,
		Content:        s.formatter.Customer(o),
		OrderID:        o.OrderID.String(),
		IdempotencyKey: idemKey,
	})
}

func (s *PrintService) PrintTest(ctx context.Context) (entity.PrintJob, error) {
	return s.Submit(ctx, SubmitInput{Type: entity.JobTest, Content: s.formatter.Test()})
}

// GenericRequest is the {type, data} body of the catch-all print endpoint.
type GenericRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textPayload struct {
	Text  string   `json:"text"`
	Lines []string `json:"lines"`
}

// PrintGeneric dispatches on req.Type: kitchen, customer and test reuse the
// templates; text (or raw, or empty) prints data.text / data.lines as-is.
func (s *PrintService) PrintGeneric(ctx context.Context, req GenericRequest, idemKey string) (entity.PrintJob, error) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "kitchen":
		o, err := decodeOrder(req.Data)
		if err != nil {
			return entity.PrintJob{}, err
		}
		return s.PrintKitchen(ctx, o, idemKey)
	case "customer", "receipt":
		o, err := decodeOrder(req.Data)
		if err != nil {
			return entity.PrintJob{}, err
		}
		return s.PrintCustomer(ctx, o, idemKey)
	case "test":
		return s.PrintTest(ctx)
	case "", "text", "raw", "generic":
		var p textPayload
		if len(req.Data) > 0 {
			if err := json.Unmarshal(req.Data, &p); err != nil {
				return entity.PrintJob{}, entity.NewValidationError("data", "must be an object with text or lines")
			}
		}
		lines := p.Lines
		if p.Text != "" {
			lines = append(strings.Split(p.Text, "\n"), lines...)
		}
		if len(lines) == 0 {
			return entity.PrintJob{}, entity.NewValidationError("data", "text or lines is required")
		}
		return s.Submit(ctx, SubmitInput{
			Type:           entity.JobGeneric,
			Content:        s.formatter.Text(lines),
			IdempotencyKey: idemKey,
		})
	default:
		return entity.PrintJob{}, entity.NewValidationError("type", fmt.Sprintf("unsupported print type %q", req.Type))
	}
}

func decodeOrder(raw json.RawMessage) (entity.Order, error) {
	var o entity.Order
	if len(raw) == 0 {
		return o, entity.NewValidationError("data", "order payload is required")
	}
	if err := json.Unmarshal(raw, &o); err != nil {
		return o, entity.NewValidationError("data", "malformed order: "+err.Error())
	}
	return o, nil
}

func (s *PrintService) Jobs() *JobLog { return s.jobs }
