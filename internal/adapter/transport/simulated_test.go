package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

func TestSimulatedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated(nil, nil)

	devs, err := s.Enumerate(ctx)
	if err != nil || len(devs) != 3 {
		t.Fatalf("enumerate = %d, %v", len(devs), err)
	}
	h, err := s.Open(ctx, devs[1].Address)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, h, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if got := s.Printed(); len(got) != 1 || string(got[0]) != "hello" {
		t.Errorf("printed = %q", got)
	}
}

func TestSimulatedFailures(t *testing.T) {
	ctx := context.Background()
	s := NewSimulated(nil, nil)

	var te *usecase.TransportError
	if _, err := s.Open(ctx, "nowhere"); !errors.As(err, &te) {
		t.Errorf("unknown address err = %v", err)
	}

	boom := errors.New("paper out")
	h, _ := s.Open(ctx, "04b8:0e28")
	s.FailWrite(boom)
	if err := s.Write(ctx, h, []byte("x")); !errors.Is(err, boom) {
		t.Errorf("write err = %v", err)
	}
	s.FailWrite(nil)
	s.FailOpen(boom)
	if _, err := s.Open(ctx, "04b8:0e28"); !errors.Is(err, boom) {
		t.Errorf("open err = %v", err)
	}
}
