// Package storage keeps the persisted values in a byte-addressed EEPROM. Each value is a little-endian
// int32 in tenths at a fixed offset, and a sentinel byte marks the memory as initialized.
package storage

import (
	"errors"
	"strconv"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/brew"
)

// EEPROM is satisfied by *at24cx.Device and *Memory
type EEPROM interface {
	ReadByte(addr uint16) (uint8, error)
	WriteByte(addr uint16, value uint8) error
}

const (
	AddrTarget         uint16 = 0
	AddrPreviousWeight uint16 = 4
	AddrPreviousTime   uint16 = 8
	AddrSentinel       uint16 = 256

	Sentinel uint8 = 0x7B
)

var ErrUninitialized = errors.New("store must be loaded before saving")

type field struct {
	addr  uint16
	wrote uint8
}

var fields = [3]field{
	{AddrTarget, autobrew.WroteTarget},
	{AddrPreviousWeight, autobrew.WrotePreviousWeight},
	{AddrPreviousTime, autobrew.WrotePreviousTime},
}

// Store implements brew.Store. It remembers the last values read or written so unchanged fields, and
// unchanged bytes of changed fields, are never rewritten.
type Store struct {
	eeprom EEPROM
	// WriteCycle is waited after every byte write. The AT24C32 ignores the bus for up to 5ms while it
	// programs a cell
	WriteCycle time.Duration

	stored [3]int32
	loaded bool
}

var _ brew.Store = &Store{}

func New(eeprom EEPROM) *Store {
	return &Store{eeprom: eeprom}
}

// Load reads the values. On first boot it writes zeros and the sentinel instead
func (s *Store) Load() (brew.Values, error) {
	b, err := s.eeprom.ReadByte(AddrSentinel)
	if err != nil {
		return brew.Values{}, errors.New("error reading sentinel: " + err.Error())
	}

	if b != Sentinel {
		for i := range fields {
			err = s.put(i, 0, true)
			if err != nil {
				return brew.Values{}, err
			}
		}
		err = s.write(AddrSentinel, Sentinel)
		if err != nil {
			return brew.Values{}, errors.New("error writing sentinel: " + err.Error())
		}
		s.loaded = true
		return brew.Values{}, nil
	}

	for i, f := range fields {
		v, err := s.get(f.addr)
		if err != nil {
			return brew.Values{}, err
		}
		s.stored[i] = v
	}
	s.loaded = true

	return s.values(), nil
}

// Save writes each field whose value in tenths differs from the stored one and returns the autobrew.Wrote*
// mask of written fields. On error, the mask has the fields written before the failure
func (s *Store) Save(v brew.Values) (uint8, error) {
	if !s.loaded {
		return 0, ErrUninitialized
	}

	var written uint8
	for i, t := range [3]int32{brew.Tenths(v.Target), brew.Tenths(v.PreviousWeight), brew.Tenths(v.PreviousTime)} {
		if t == s.stored[i] {
			continue
		}
		err := s.put(i, t, false)
		if err != nil {
			return written, err
		}
		written |= fields[i].wrote
	}

	return written, nil
}

// Stored returns the values as they are in memory
func (s *Store) Stored() brew.Values {
	return s.values()
}

func (s *Store) values() brew.Values {
	return brew.Values{
		Target:         brew.FromTenths(s.stored[0]),
		PreviousWeight: brew.FromTenths(s.stored[1]),
		PreviousTime:   brew.FromTenths(s.stored[2]),
	}
}

func (s *Store) get(addr uint16) (int32, error) {
	var u uint32
	for i := uint16(0); i < 4; i++ {
		b, err := s.eeprom.ReadByte(addr + i)
		if err != nil {
			return 0, errors.New("error reading address " + strconv.Itoa(int(addr+i)) + ": " + err.Error())
		}
		u |= uint32(b) << (8 * i)
	}
	return int32(u), nil
}

// put writes field i. Unless force is set, bytes that already hold the new value are skipped
func (s *Store) put(i int, v int32, force bool) error {
	addr := fields[i].addr
	old := uint32(s.stored[i])
	u := uint32(v)

	for b := uint16(0); b < 4; b++ {
		nb := uint8(u >> (8 * b))
		if !force && nb == uint8(old>>(8*b)) {
			continue
		}
		err := s.write(addr+b, nb)
		if err != nil {
			return errors.New("error writing address " + strconv.Itoa(int(addr+b)) + ": " + err.Error())
		}
	}

	s.stored[i] = v
	return nil
}

func (s *Store) write(addr uint16, b uint8) error {
	err := s.eeprom.WriteByte(addr, b)
	if err == nil && s.WriteCycle > 0 {
		time.Sleep(s.WriteCycle)
	}
	return err
}
