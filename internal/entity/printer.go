package entity

import "time"

type PrinterType string

const (
	PrinterUSB       PrinterType = "USB"
	PrinterNetwork   PrinterType = "Network"
	PrinterBluetooth PrinterType = "Bluetooth"
	PrinterSerial    PrinterType = "Serial"
)

type PrinterStatus string

const (
	PrinterReady     PrinterStatus = "ready"
	PrinterConnected PrinterStatus = "connected"
	PrinterError     PrinterStatus = "error"
)

type Printer struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Model   string        `json:"model,omitempty"`
	Type    PrinterType   `json:"type"`
	Address string        `json:"address"`
	Status  PrinterStatus `json:"status"`
	Error   string        `json:"error,omitempty"`

	LastPrint *time.Time `json:"last_print,omitempty"`
}
