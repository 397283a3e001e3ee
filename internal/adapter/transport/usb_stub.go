//go:build !usb

package transport

import (
	"errors"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
)

// ErrUSBUnsupported is returned when the binary was built without -tags usb.
var ErrUSBUnsupported = errors.New("usb transport not compiled in (build with -tags usb)")

func NewUSB(vendorID uint16) (usecase.Transport, error) {
	return nil, ErrUSBUnsupported
}
