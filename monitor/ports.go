package monitor

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

var ErrNoUSBSerial = errors.New("no serial ports found")

// Ports returns the names of the available serial ports
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return nil, ErrNoUSBSerial
	}
	return ports, nil
}
