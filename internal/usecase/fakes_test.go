package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
)

type fakeHandle struct{ addr string }

func (h *fakeHandle) Address() string { return h.addr }

type fakeTransport struct {
	mu       sync.Mutex
	devices  []DeviceDescriptor
	openErr  error
	writeErr error
	opened   []string
	closed   []string
	written  [][]byte
	openHook func()
}

func (f *fakeTransport) Enumerate(context.Context) ([]DeviceDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DeviceDescriptor, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeTransport) Open(_ context.Context, addr string) (Handle, error) {
	if f.openHook != nil {
		f.openHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened = append(f.opened, addr)
	return &fakeHandle{addr: addr}, nil
}

func (f *fakeTransport) Write(_ context.Context, _ Handle, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeTransport) Close(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, h.Address())
	return nil
}

func twoPrinters() *fakeTransport {
	return &fakeTransport{devices: []DeviceDescriptor{
		{ID: "usb-1", Name: "Epson TM-T20III", Type: entity.PrinterUSB, Address: "04b8:0e28", VendorID: 0x04b8},
		{ID: "net-1", Name: "Star TSP143", Type: entity.PrinterNetwork, Address: "192.168.1.50:9100"},
	}}
}

var errDevice = errors.New("device busy")

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []entity.PrintJob
	err  error
}

func (p *recordingPublisher) PublishJob(_ context.Context, j entity.PrintJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, j)
	return p.err
}

func (p *recordingPublisher) SaveJob(ctx context.Context, j entity.PrintJob) error {
	return p.PublishJob(ctx, j)
}

// memIdem is a minimal IdempotencyStore for service tests.
type memIdem struct {
	mu    sync.Mutex
	locks map[string]bool
	vals  map[string]string
	err   error
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, vals: map[string]string{}}
}

func (m *memIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memIdem) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

func (m *memIdem) Remember(_ context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[scope+key] = value
	return nil
}

func (m *memIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.vals[scope+key]
	return v, ok, nil
}
