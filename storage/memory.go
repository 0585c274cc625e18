package storage

import "errors"

var ErrOutOfRange = errors.New("address out of range")

// Memory is an EEPROM held in RAM. It starts erased (0xFF) like a new chip and counts byte writes
type Memory struct {
	data   []byte
	Writes int
}

func NewMemory(size int) *Memory {
	m := &Memory{data: make([]byte, size)}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

func (m *Memory) ReadByte(addr uint16) (uint8, error) {
	if int(addr) >= len(m.data) {
		return 0, ErrOutOfRange
	}
	return m.data[addr], nil
}

func (m *Memory) WriteByte(addr uint16, value uint8) error {
	if int(addr) >= len(m.data) {
		return ErrOutOfRange
	}
	m.data[addr] = value
	m.Writes++
	return nil
}
