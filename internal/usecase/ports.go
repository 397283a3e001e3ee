package usecase

import (
	"context"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
)

// DeviceDescriptor is one device reported by a transport's enumeration.
// VendorID and Manufacturer are left zero when the transport cannot see them.
type DeviceDescriptor struct {
	ID           string
	Name         string
	Model        string
	Type         entity.PrinterType
	Address      string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
}

// Handle is an open device connection, owned by the transport that opened it.
type Handle interface {
	Address() string
}

// Transport performs the device I/O. Open and Write failures are *TransportError.
type Transport interface {
	Enumerate(ctx context.Context) ([]DeviceDescriptor, error)
	Open(ctx context.Context, address string) (Handle, error)
	Write(ctx context.Context, h Handle, data []byte) error
	Close(h Handle) error
}

// Sender is the part of the registry the print flow depends on.
type Sender interface {
	Send(ctx context.Context, data []byte) (printerID string, err error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// JobPublisher is told about every job that reaches a terminal status.
type JobPublisher interface {
	PublishJob(ctx context.Context, job entity.PrintJob) error
}

// JobArchive keeps finished jobs beyond the in-memory retention window.
type JobArchive interface {
	SaveJob(ctx context.Context, job entity.PrintJob) error
}
