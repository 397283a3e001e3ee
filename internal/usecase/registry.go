package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
)

type RegistryConfig struct {
	DiscoveryTimeout time.Duration
	OpenTimeout      time.Duration
	WriteTimeout     time.Duration

	// Vendor filter, applied only to descriptors that report the field.
	VendorID   uint16
	VendorName string
}

// Status is the registry snapshot reported by health endpoints.
type Status struct {
	Connected bool            `json:"connected"`
	Printer   *entity.Printer `json:"printer,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	LastPrint *time.Time      `json:"last_print,omitempty"`
}

// Registry tracks discovered printers and owns the single open transport handle.
//
// ioMu serializes everything that touches the handle (connect, disconnect,
// send, discovery swap), so a second connect queues behind the first. mu
// guards the printer list and is never held across device I/O.
type Registry struct {
	transport Transport
	cfg       RegistryConfig
	log       *slog.Logger
	now       func() time.Time

	ioMu   sync.Mutex
	handle Handle

	mu        sync.RWMutex
	printers  []entity.Printer
	current   string
	lastError string
	lastPrint *time.Time
}

func NewRegistry(t Transport, cfg RegistryConfig, l *slog.Logger) *Registry {
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = 5 * time.Second
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if l == nil {
		l = logging.New("registry")
	}
	return &Registry{transport: t, cfg: cfg, log: l, now: time.Now}
}

// Discover enumerates devices and replaces the discovered set. The connected
// printer stays connected if it is still present; otherwise it is closed.
func (r *Registry) Discover(ctx context.Context) ([]entity.Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DiscoveryTimeout)
	defer cancel()

	descs, err := r.transport.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover printers: %w", err)
	}

	found := make([]entity.Printer, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if !r.matchesVendor(d) {
			continue
		}
		p := printerFromDescriptor(d)
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		found = append(found, p)
	}

	r.ioMu.Lock()
	defer r.ioMu.Unlock()

	r.mu.Lock()
	current := r.current
	stillThere := false
	for i := range found {
		if found[i].ID == current {
			found[i].Status = entity.PrinterConnected
			found[i].LastPrint = r.lastPrint
			stillThere = true
		}
	}
	r.printers = found
	if current != "" && !stillThere {
		r.current = ""
	}
	out := r.listLocked()
	r.mu.Unlock()

	if current != "" && !stillThere {
		r.log.Warn("connected printer vanished on rediscovery", "printer_id", current)
		r.closeHandleLocked()
	}

	r.log.Info("discovery complete", "printers_found", len(out))
	return out, nil
}

// matchesVendor accepts a descriptor when any field it reports matches the
// filter. Devices reporting none of the filtered fields pass.
func (r *Registry) matchesVendor(d DeviceDescriptor) bool {
	checked, matched := false, false
	if r.cfg.VendorID != 0 && d.VendorID != 0 {
		checked = true
		matched = d.VendorID == r.cfg.VendorID
	}
	if r.cfg.VendorName != "" && d.Manufacturer != "" {
		checked = true
		matched = matched || strings.Contains(strings.ToLower(d.Manufacturer), strings.ToLower(r.cfg.VendorName))
	}
	return !checked || matched
}

func printerFromDescriptor(d DeviceDescriptor) entity.Printer {
	id := d.ID
	if id == "" {
		id = strings.ToLower(string(d.Type)) + ":" + d.Address
	}
	name := d.Name
	if name == "" {
		name = d.Model
	}
	if name == "" {
		name = string(d.Type) + " printer " + d.Address
	}
	return entity.Printer{
		ID:      id,
		Name:    name,
		Model:   d.Model,
		Type:    d.Type,
		Address: d.Address,
		Status:  entity.PrinterReady,
	}
}

// Connect opens the printer with the given id (or address), closing any
// previous connection first.
func (r *Registry) Connect(ctx context.Context, id string) (entity.Printer, error) {
	if _, ok := r.lookup(id); !ok {
		return entity.Printer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r.ioMu.Lock()
	defer r.ioMu.Unlock()

	// discovery may have replaced the set while we queued
	p, ok := r.lookup(id)
	if !ok {
		return entity.Printer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r.mu.RLock()
	already := r.current == p.ID && r.handle != nil
	r.mu.RUnlock()
	if already {
		return p, nil
	}

	r.closeHandleLocked()

	openCtx, cancel := context.WithTimeout(ctx, r.cfg.OpenTimeout)
	defer cancel()
	h, err := r.transport.Open(openCtx, p.Address)
	if err != nil {
		err = &ConnectionError{PrinterID: p.ID, Err: asTransportError("open", err)}
		r.mu.Lock()
		r.setStatusLocked(p.ID, entity.PrinterError, err.Error())
		r.lastError = err.Error()
		r.mu.Unlock()
		r.log.Error("printer connect failed", "printer_id", p.ID, "address", p.Address, "error", err)
		return entity.Printer{}, err
	}

	r.handle = h
	r.mu.Lock()
	r.current = p.ID
	r.lastError = ""
	r.setStatusLocked(p.ID, entity.PrinterConnected, "")
	p, _ = r.findLocked(p.ID)
	r.mu.Unlock()

	r.log.Info("printer connected", "printer_id", p.ID, "address", p.Address, "type", p.Type)
	return p, nil
}

// Disconnect closes the current connection, if any.
func (r *Registry) Disconnect() {
	r.ioMu.Lock()
	defer r.ioMu.Unlock()
	r.closeHandleLocked()
}

// closeHandleLocked requires ioMu.
func (r *Registry) closeHandleLocked() {
	r.mu.Lock()
	prev := r.current
	r.current = ""
	if prev != "" {
		r.setStatusLocked(prev, entity.PrinterReady, "")
	}
	r.mu.Unlock()

	if r.handle == nil {
		return
	}
	if err := r.transport.Close(r.handle); err != nil {
		r.log.Warn("closing printer handle", "printer_id", prev, "error", err)
	}
	r.handle = nil
}

// Send writes data to the connected printer. It fails fast with
// ErrNotConnected when nothing is connected.
func (r *Registry) Send(ctx context.Context, data []byte) (string, error) {
	r.mu.RLock()
	connected := r.current != ""
	r.mu.RUnlock()
	if !connected {
		return "", ErrNotConnected
	}

	r.ioMu.Lock()
	defer r.ioMu.Unlock()

	r.mu.RLock()
	id, h := r.current, r.handle
	r.mu.RUnlock()
	if id == "" || h == nil {
		return "", ErrNotConnected
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	err := r.transport.Write(writeCtx, h, data)

	if err != nil {
		err = asTransportError("write", err)
		timedOut := errors.Is(err, context.DeadlineExceeded)
		if timedOut {
			// the transport may already have torn the port down
			r.log.Error("printer write timed out, disconnecting", "printer_id", id, "error", err)
			r.closeHandleLocked()
		}
		r.mu.Lock()
		r.lastError = err.Error()
		if i := r.indexLocked(id); i >= 0 {
			r.printers[i].Error = err.Error()
			if timedOut {
				r.printers[i].Status = entity.PrinterError
			}
		}
		r.mu.Unlock()
		return id, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.lastPrint = &now
	r.lastError = ""
	if i := r.indexLocked(id); i >= 0 {
		r.printers[i].Error = ""
		r.printers[i].LastPrint = &now
	}
	return id, nil
}

// AutoConnect discovers printers and connects to preferred, or to the first
// one found when preferred is empty.
func (r *Registry) AutoConnect(ctx context.Context, preferred string) (entity.Printer, error) {
	printers, err := r.Discover(ctx)
	if err != nil {
		return entity.Printer{}, err
	}
	if preferred == "" {
		if len(printers) == 0 {
			return entity.Printer{}, fmt.Errorf("%w: none discovered", ErrNotFound)
		}
		preferred = printers[0].ID
	}
	return r.Connect(ctx, preferred)
}

func (r *Registry) List() []entity.Printer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *Registry) Current() (entity.Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == "" {
		return entity.Printer{}, false
	}
	return r.findLocked(r.current)
}

func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{LastError: r.lastError, LastPrint: r.lastPrint}
	if p, ok := r.findLocked(r.current); ok {
		st.Connected = true
		st.Printer = &p
	}
	return st
}

// lookup resolves a printer by id, falling back to its transport address so
// clients may connect by port name.
func (r *Registry) lookup(idOrAddr string) (entity.Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.findLocked(idOrAddr); ok {
		return p, true
	}
	for _, p := range r.printers {
		if p.Address == idOrAddr {
			return p, true
		}
	}
	return entity.Printer{}, false
}

func (r *Registry) listLocked() []entity.Printer {
	out := make([]entity.Printer, len(r.printers))
	copy(out, r.printers)
	return out
}

func (r *Registry) indexLocked(id string) int {
	for i := range r.printers {
		if r.printers[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) findLocked(id string) (entity.Printer, bool) {
	if i := r.indexLocked(id); i >= 0 {
		return r.printers[i], true
	}
	return entity.Printer{}, false
}

func (r *Registry) setStatusLocked(id string, st entity.PrinterStatus, msg string) {
	if i := r.indexLocked(id); i >= 0 {
		r.printers[i].Status = st
		r.printers[i].Error = msg
	}
}

var _ Sender = (*Registry)(nil)
