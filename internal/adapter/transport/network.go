package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// DefaultRawPort is the JetDirect / raw TCP port ESC/POS network printers listen on.
const DefaultRawPort = "9100"

type NetworkTarget struct {
	Name    string
	Address string
}

// Network talks raw TCP to printers at configured addresses. Enumeration
// probes each target and reports the reachable ones.
type Network struct {
	targets []NetworkTarget
	dialer  net.Dialer
}

func NewNetwork(targets []NetworkTarget) *Network {
	out := make([]NetworkTarget, 0, len(targets))
	for _, t := range targets {
		t.Address = withDefaultPort(t.Address)
		out = append(out, t)
	}
	return &Network{targets: out}
}

func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, DefaultRawPort)
}

type netHandle struct {
	addr string
	conn net.Conn
}

func (h *netHandle) Address() string { return h.addr }

func (n *Network) Enumerate(ctx context.Context) ([]usecase.DeviceDescriptor, error) {
	reachable := make([]bool, len(n.targets))
	var wg sync.WaitGroup
	for i, t := range n.targets {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			conn, err := n.dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return
			}
			_ = conn.Close()
			reachable[i] = true
		}(i, t.Address)
	}
	wg.Wait()

	var out []usecase.DeviceDescriptor
	for i, t := range n.targets {
		if !reachable[i] {
			continue
		}
		name := t.Name
		if name == "" {
			name = "Network printer " + t.Address
		}
		out = append(out, usecase.DeviceDescriptor{
			Name:    name,
			Type:    entity.PrinterNetwork,
			Address: t.Address,
		})
	}
	return out, nil
}

func (n *Network) Open(ctx context.Context, address string) (usecase.Handle, error) {
	address = withDefaultPort(address)
	conn, err := n.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, usecase.NewTransportError("open", err)
	}
	return &netHandle{addr: address, conn: conn}, nil
}

func (n *Network) Write(ctx context.Context, h usecase.Handle, data []byte) error {
	nh, ok := h.(*netHandle)
	if !ok {
		return usecase.NewTransportError("write", fmt.Errorf("foreign handle %T", h))
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	if err := nh.conn.SetWriteDeadline(deadline); err != nil {
		return usecase.NewTransportError("write", err)
	}
	if _, err := nh.conn.Write(data); err != nil {
		return usecase.NewTransportError("write", err)
	}
	return nil
}

func (n *Network) Close(h usecase.Handle) error {
	if nh, ok := h.(*netHandle); ok {
		return nh.conn.Close()
	}
	return nil
}

var _ usecase.Transport = (*Network)(nil)
