package storage

import (
	"errors"
	"testing"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/brew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinygo.org/x/drivers/at24cx"
)

// fakeI2C emulates an AT24C32 on the bus: a two byte address followed by data to write, or an empty
// write followed by a read
type fakeI2C struct {
	mem    [4096]byte
	writes int
	err    error
}

func newFakeI2C() *fakeI2C {
	bus := &fakeI2C{}
	for i := range bus.mem {
		bus.mem[i] = 0xFF
	}
	return bus
}

func (b *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if addr != at24cx.Address || len(w) < 2 {
		return errors.New("nack")
	}

	a := int(w[0])<<8 | int(w[1])
	if len(r) > 0 {
		copy(r, b.mem[a:])
		return nil
	}
	for _, v := range w[2:] {
		b.mem[a] = v
		a++
		b.writes++
	}
	return nil
}

func newAT24C32(bus *fakeI2C) EEPROM {
	dev := at24cx.New(bus)
	dev.Configure(at24cx.Config{})
	return &dev
}

func TestFirstBoot(t *testing.T) {
	bus := newFakeI2C()
	s := New(newAT24C32(bus))

	values, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, brew.Values{}, values)

	assert.Equal(t, Sentinel, bus.mem[AddrSentinel])
	assert.Equal(t, make([]byte, 12), bus.mem[0:12])
	assert.Equal(t, 13, bus.writes)

	// the second boot reads what the first one wrote
	bus.writes = 0
	values, err = New(newAT24C32(bus)).Load()
	require.NoError(t, err)
	assert.Equal(t, brew.Values{}, values)
	assert.Zero(t, bus.writes)
}

func TestPowerCycleRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		eeprom func() EEPROM
	}{
		{"AT24C32", func() EEPROM { return newAT24C32(newFakeI2C()) }},
		{"Memory", func() EEPROM { return NewMemory(4096) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eeprom := tt.eeprom()

			s := New(eeprom)
			_, err := s.Load()
			require.NoError(t, err)

			written, err := s.Save(brew.Values{Target: 36.5, PreviousWeight: 35.94, PreviousTime: 28.3})
			require.NoError(t, err)
			assert.Equal(t, autobrew.WroteTarget|autobrew.WrotePreviousWeight|autobrew.WrotePreviousTime, written)

			values, err := New(eeprom).Load()
			require.NoError(t, err)
			assert.InDelta(t, 36.5, values.Target, 1e-5)
			assert.InDelta(t, 35.9, values.PreviousWeight, 1e-5)
			assert.InDelta(t, 28.3, values.PreviousTime, 1e-5)
		})
	}
}

func TestLayout(t *testing.T) {
	m := NewMemory(512)
	s := New(m)
	_, err := s.Load()
	require.NoError(t, err)

	_, err = s.Save(brew.Values{Target: 36.5, PreviousWeight: -0.1, PreviousTime: 300})
	require.NoError(t, err)

	assert.Equal(t, []byte{0x6D, 0x01, 0x00, 0x00}, m.data[0:4])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, m.data[4:8])
	assert.Equal(t, []byte{0xB8, 0x0B, 0x00, 0x00}, m.data[8:12])
	assert.Equal(t, Sentinel, m.data[256])
}

func TestSaveOnlyChangedFields(t *testing.T) {
	m := NewMemory(512)
	s := New(m)
	_, err := s.Load()
	require.NoError(t, err)

	_, err = s.Save(brew.Values{Target: 30, PreviousWeight: 31.2, PreviousTime: 27.5})
	require.NoError(t, err)

	t.Run("Unchanged", func(t *testing.T) {
		m.Writes = 0
		written, err := s.Save(brew.Values{Target: 30, PreviousWeight: 31.2, PreviousTime: 27.5})
		require.NoError(t, err)
		assert.Zero(t, written)
		assert.Zero(t, m.Writes)
	})

	t.Run("SameTenths", func(t *testing.T) {
		m.Writes = 0
		written, err := s.Save(brew.Values{Target: 30.04, PreviousWeight: 31.19, PreviousTime: 27.5})
		require.NoError(t, err)
		assert.Zero(t, written)
		assert.Zero(t, m.Writes)
	})

	t.Run("OneField", func(t *testing.T) {
		m.Writes = 0
		written, err := s.Save(brew.Values{Target: 30, PreviousWeight: 31.5, PreviousTime: 27.5})
		require.NoError(t, err)
		assert.Equal(t, autobrew.WrotePreviousWeight, written)
		// 312 -> 315 only changes the low byte
		assert.Equal(t, 1, m.Writes)
		assert.InDelta(t, 31.5, s.Stored().PreviousWeight, 1e-5)
	})
}

func TestSaveBeforeLoad(t *testing.T) {
	_, err := New(NewMemory(512)).Save(brew.Values{Target: 1})
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestBusErrors(t *testing.T) {
	bus := newFakeI2C()
	bus.err = errors.New("timeout")

	_, err := New(newAT24C32(bus)).Load()
	assert.EqualError(t, err, "error reading sentinel: timeout")

	// memory too small for the sentinel
	_, err = New(NewMemory(64)).Load()
	assert.ErrorContains(t, err, ErrOutOfRange.Error())
}
