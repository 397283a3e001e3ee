package transport

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Serial drives printers on COM / tty ports, including USB-serial adapters.
type Serial struct {
	baud    int
	usbOnly bool

	// swapped in tests
	list  func() ([]*enumerator.PortDetails, error)
	names func() ([]string, error)
	open  func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewSerial builds a serial transport. With usbOnly, built-in UARTs that
// cannot report a vendor are skipped during enumeration.
func NewSerial(baud int, usbOnly bool) *Serial {
	if baud <= 0 {
		baud = 9600
	}
	return &Serial{
		baud:    baud,
		usbOnly: usbOnly,
		list:    enumerator.GetDetailedPortsList,
		names:   serial.GetPortsList,
		open:    serial.Open,
	}
}

type serialHandle struct {
	name string
	port serial.Port

	closeOnce sync.Once
	closeErr  error
}

func (h *serialHandle) Address() string { return h.name }

func (h *serialHandle) close() error {
	h.closeOnce.Do(func() { h.closeErr = h.port.Close() })
	return h.closeErr
}

func (s *Serial) Enumerate(ctx context.Context) ([]usecase.DeviceDescriptor, error) {
	ports, err := s.list()
	detailed := err == nil
	if err != nil {
		// detailed listing is missing on some OSes; fall back to names only
		names, nerr := s.names()
		if nerr != nil {
			return nil, fmt.Errorf("list serial ports: %w", err)
		}
		ports = make([]*enumerator.PortDetails, 0, len(names))
		for _, n := range names {
			ports = append(ports, &enumerator.PortDetails{Name: n})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []usecase.DeviceDescriptor
	for _, p := range ports {
		// name-only listings cannot tell USB adapters from built-in UARTs
		if s.usbOnly && detailed && !p.IsUSB {
			continue
		}
		d := usecase.DeviceDescriptor{
			Name:    p.Product,
			Model:   p.Product,
			Type:    entity.PrinterSerial,
			Address: p.Name,
			// the enumerator exposes no manufacturer; USB product strings carry the vendor
			Manufacturer: p.Product,
		}
		if d.Name == "" {
			d.Name = "Serial printer " + p.Name
		}
		if v, err := strconv.ParseUint(p.VID, 16, 16); err == nil {
			d.VendorID = uint16(v)
		}
		if v, err := strconv.ParseUint(p.PID, 16, 16); err == nil {
			d.ProductID = uint16(v)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Serial) Open(ctx context.Context, address string) (usecase.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, usecase.NewTransportError("open", err)
	}
	port, err := s.open(address, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		return nil, usecase.NewTransportError("open", err)
	}
	return &serialHandle{name: address, port: port}, nil
}

// Write blocks until the port accepts data or ctx expires. On expiry the
// port is closed so the stuck write returns.
func (s *Serial) Write(ctx context.Context, h usecase.Handle, data []byte) error {
	sh, ok := h.(*serialHandle)
	if !ok {
		return usecase.NewTransportError("write", fmt.Errorf("foreign handle %T", h))
	}

	done := make(chan error, 1)
	go func() {
		_, err := sh.port.Write(data)
		if err == nil {
			err = sh.port.Drain()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return usecase.NewTransportError("write", err)
		}
		return nil
	case <-ctx.Done():
		_ = sh.close()
		return usecase.NewTransportError("write", ctx.Err())
	}
}

func (s *Serial) Close(h usecase.Handle) error {
	if sh, ok := h.(*serialHandle); ok {
		return sh.close()
	}
	return nil
}

var _ usecase.Transport = (*Serial)(nil)
