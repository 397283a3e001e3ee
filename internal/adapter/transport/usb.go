//go:build usb

package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"github.com/google/gousb"
)

// USB talks to printers over libusb bulk transfers. Build with -tags usb;
// it needs cgo and libusb-1.0.
type USB struct {
	mu       sync.Mutex
	ctx      *gousb.Context
	vendorID gousb.ID
}

func NewUSB(vendorID uint16) (usecase.Transport, error) {
	return &USB{ctx: gousb.NewContext(), vendorID: gousb.ID(vendorID)}, nil
}

type usbHandle struct {
	addr string
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
}

func (h *usbHandle) Address() string { return h.addr }

// Enumerate scans the bus. With a vendor id set only that vendor's devices
// are opened for their strings.
func (u *USB) Enumerate(ctx context.Context) ([]usecase.DeviceDescriptor, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	devs, err := u.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return u.vendorID == 0 || desc.Vendor == u.vendorID
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("enumerate usb devices: %w", err)
	}

	out := make([]usecase.DeviceDescriptor, 0, len(devs))
	for _, dev := range devs {
		desc := dev.Desc
		manufacturer, _ := dev.Manufacturer()
		product, _ := dev.Product()
		_ = dev.Close()

		addr := fmt.Sprintf("%s:%s", desc.Vendor, desc.Product)
		name := product
		if name == "" {
			name = "USB printer " + addr
		}
		out = append(out, usecase.DeviceDescriptor{
			Name:         name,
			Model:        product,
			Type:         entity.PrinterUSB,
			Address:      addr,
			VendorID:     uint16(desc.Vendor),
			ProductID:    uint16(desc.Product),
			Manufacturer: manufacturer,
		})
	}
	return out, ctx.Err()
}

// Open claims the default interface and its first bulk OUT endpoint.
// address is "vvvv:pppp" in hex.
func (u *USB) Open(ctx context.Context, address string) (usecase.Handle, error) {
	var vid, pid uint16
	if _, err := fmt.Sscanf(address, "%04x:%04x", &vid, &pid); err != nil {
		return nil, usecase.NewTransportError("open", fmt.Errorf("bad usb address %q: %w", address, err))
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	dev, err := u.ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, usecase.NewTransportError("open", err)
	}
	if dev == nil {
		return nil, usecase.NewTransportError("open", fmt.Errorf("usb device %s not present", address))
	}
	_ = dev.SetAutoDetach(true)

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		_ = dev.Close()
		return nil, usecase.NewTransportError("open", err)
	}

	var out *gousb.OutEndpoint
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk {
			out, err = intf.OutEndpoint(ep.Number)
			break
		}
	}
	if out == nil {
		if err == nil {
			err = errors.New("no bulk OUT endpoint")
		}
		done()
		_ = dev.Close()
		return nil, usecase.NewTransportError("open", err)
	}
	if err := ctx.Err(); err != nil {
		done()
		_ = dev.Close()
		return nil, usecase.NewTransportError("open", err)
	}
	return &usbHandle{addr: address, dev: dev, done: done, out: out}, nil
}

func (u *USB) Write(ctx context.Context, h usecase.Handle, data []byte) error {
	uh, ok := h.(*usbHandle)
	if !ok {
		return usecase.NewTransportError("write", fmt.Errorf("foreign handle %T", h))
	}
	if _, err := uh.out.WriteContext(ctx, data); err != nil {
		return usecase.NewTransportError("write", err)
	}
	return nil
}

func (u *USB) Close(h usecase.Handle) error {
	uh, ok := h.(*usbHandle)
	if !ok {
		return nil
	}
	uh.done()
	return uh.dev.Close()
}

var _ usecase.Transport = (*USB)(nil)
