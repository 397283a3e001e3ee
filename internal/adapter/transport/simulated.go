// Package transport holds the device drivers behind usecase.Transport.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// Simulated stands in for real hardware: a fixed device list, and writes
// that are logged and kept in memory.
type Simulated struct {
	mu        sync.Mutex
	devices   []usecase.DeviceDescriptor
	openErr   error
	writeErr  error
	printed   [][]byte
	openCount int
	log       *slog.Logger
}

type simHandle struct{ addr string }

func (h *simHandle) Address() string { return h.addr }

// DefaultSimulatedDevices mirrors the printers the restaurant actually runs.
func DefaultSimulatedDevices() []usecase.DeviceDescriptor {
	return []usecase.DeviceDescriptor{
		{ID: "sim-usb-epson", Name: "Epson TM-T20III", Model: "TM-T20III", Type: entity.PrinterUSB, Address: "04b8:0e28", VendorID: 0x04b8, ProductID: 0x0e28, Manufacturer: "EPSON"},
		{ID: "sim-net-star", Name: "Star TSP143IIIU", Model: "TSP143", Type: entity.PrinterNetwork, Address: "192.168.1.100:9100"},
		{ID: "sim-bt-xprinter", Name: "Xprinter XP-P300", Model: "XP-P300", Type: entity.PrinterBluetooth, Address: "00:11:22:33:44:55"},
	}
}

func NewSimulated(devices []usecase.DeviceDescriptor, l *slog.Logger) *Simulated {
	if devices == nil {
		devices = DefaultSimulatedDevices()
	}
	return &Simulated{devices: devices, log: l}
}

func (s *Simulated) Enumerate(ctx context.Context) ([]usecase.DeviceDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]usecase.DeviceDescriptor, len(s.devices))
	copy(out, s.devices)
	return out, nil
}

func (s *Simulated) Open(ctx context.Context, address string) (usecase.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, usecase.NewTransportError("open", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, usecase.NewTransportError("open", s.openErr)
	}
	for _, d := range s.devices {
		if d.Address == address {
			s.openCount++
			return &simHandle{addr: address}, nil
		}
	}
	return nil, usecase.NewTransportError("open", fmt.Errorf("no simulated device at %s", address))
}

func (s *Simulated) Write(ctx context.Context, h usecase.Handle, data []byte) error {
	if err := ctx.Err(); err != nil {
		return usecase.NewTransportError("write", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return usecase.NewTransportError("write", s.writeErr)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.printed = append(s.printed, buf)
	if s.log != nil {
		s.log.Info("simulated print", "address", h.Address(), "bytes", len(data))
	}
	return nil
}

func (s *Simulated) Close(usecase.Handle) error { return nil }

// FailOpen makes subsequent opens fail with err; nil clears it.
func (s *Simulated) FailOpen(err error) {
	s.mu.Lock()
	s.openErr = err
	s.mu.Unlock()
}

// FailWrite makes subsequent writes fail with err; nil clears it.
func (s *Simulated) FailWrite(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Printed returns every payload written so far.
func (s *Simulated) Printed() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.printed))
	copy(out, s.printed)
	return out
}

var _ usecase.Transport = (*Simulated)(nil)
