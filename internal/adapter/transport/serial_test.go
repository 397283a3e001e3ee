package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

func TestSerialEnumerate(t *testing.T) {
	s := NewSerial(0, true)
	s.list = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "04B8", PID: "0202", Product: "EPSON TM-T88V"},
		}, nil
	}
	devs, err := s.Enumerate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 1 {
		t.Fatalf("devices = %+v", devs)
	}
	d := devs[0]
	if d.Type != entity.PrinterSerial || d.Address != "/dev/ttyUSB0" || d.VendorID != 0x04b8 || d.Manufacturer != "EPSON TM-T88V" {
		t.Errorf("descriptor = %+v", d)
	}
	if s.baud != 9600 {
		t.Errorf("default baud = %d", s.baud)
	}
}

// stuckPort accepts no data until it is closed.
type stuckPort struct {
	serial.Port
	mu     sync.Mutex
	closes int
	gone   chan struct{}
}

func newStuckPort() *stuckPort { return &stuckPort{gone: make(chan struct{})} }

func (p *stuckPort) Write(b []byte) (int, error) {
	<-p.gone
	return 0, errors.New("port closed")
}

func (p *stuckPort) Drain() error { return nil }

func (p *stuckPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	if p.closes == 1 {
		close(p.gone)
	}
	return nil
}

func TestSerialEnumerateFallsBackToNames(t *testing.T) {
	s := NewSerial(0, true)
	s.list = func() ([]*enumerator.PortDetails, error) {
		return nil, &enumerator.PortEnumerationError{}
	}
	s.names = func() ([]string, error) { return []string{"COM3"}, nil }

	devs, err := s.Enumerate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 1 || devs[0].Address != "COM3" || devs[0].Name != "Serial printer COM3" {
		t.Errorf("devices = %+v", devs)
	}
}

func TestSerialWriteTimeoutClosesOnce(t *testing.T) {
	port := newStuckPort()
	s := NewSerial(0, false)
	s.open = func(string, *serial.Mode) (serial.Port, error) { return port, nil }

	h, err := s.Open(context.Background(), "/dev/ttyUSB0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.Write(ctx, h, []byte("hi"))
	var te *usecase.TransportError
	if !errors.As(err, &te) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if err := s.Close(h); err != nil {
		t.Fatal(err)
	}
	if port.closes != 1 {
		t.Errorf("port closed %d times", port.closes)
	}
}

func TestRegistryDropsTimedOutSerialPrinter(t *testing.T) {
	port := newStuckPort()
	s := NewSerial(0, false)
	s.list = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{{Name: "/dev/ttyUSB0", IsUSB: true, Product: "TM-T88V"}}, nil
	}
	s.open = func(string, *serial.Mode) (serial.Port, error) { return port, nil }

	reg := usecase.NewRegistry(s, usecase.RegistryConfig{WriteTimeout: 50 * time.Millisecond}, nil)
	ctx := context.Background()
	if _, err := reg.AutoConnect(ctx, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Send(ctx, []byte("ticket")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("send err = %v", err)
	}
	if _, ok := reg.Current(); ok {
		t.Error("registry still holds a current printer")
	}
	st := reg.Status()
	if st.Connected || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
	if ps := reg.List(); len(ps) != 1 || ps[0].Status != entity.PrinterError {
		t.Errorf("printers = %+v", ps)
	}
	if _, err := reg.Send(ctx, []byte("ticket")); !errors.Is(err, usecase.ErrNotConnected) {
		t.Errorf("second send err = %v, want ErrNotConnected", err)
	}
}
