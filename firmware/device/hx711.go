package device

import (
	"device/arm"
	"errors"
	"machine"
	"runtime/interrupt"
	"time"
)

var ErrNotReady = errors.New("hx711 not ready")

// HX711 is a bit-banged 24-bit load cell amplifier
type HX711 struct {
	data  machine.Pin
	clock machine.Pin
	// pulses after the 24 data bits select the channel and gain of the next conversion
	pulses uint8
	scale  float32

	offset int32
}

func NewHX711(cfg HX711Config) *HX711 {
	pulses := uint8(cfg.Gain)
	if pulses == 0 {
		pulses = uint8(GainA128)
	}
	scale := cfg.Scale
	if scale == 0 {
		scale = 1
	}
	return &HX711{
		data:   cfg.Data,
		clock:  cfg.Clock,
		pulses: pulses,
		scale:  scale,
	}
}

// Configure sets up the pins and wakes the chip
func (h *HX711) Configure() {
	h.data.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	h.clock.Configure(machine.PinConfig{Mode: machine.PinOutput})
	h.clock.Low()
}

// Ready is true when a conversion is waiting to be read
func (h *HX711) Ready() bool {
	return !h.data.Get()
}

// ReadRaw waits for the next conversion and returns it
func (h *HX711) ReadRaw() (int32, error) {
	deadline := time.Now().Add(readyTimeout)
	for !h.Ready() {
		if time.Now().After(deadline) {
			return 0, ErrNotReady
		}
		time.Sleep(time.Millisecond)
	}

	// holding the clock high for more than 60us powers the chip down
	state := interrupt.Disable()
	var v uint32
	for range 24 {
		h.clock.High()
		delay()
		v = v<<1 | b2u(h.data.Get())
		h.clock.Low()
		delay()
	}
	for range h.pulses {
		h.clock.High()
		delay()
		h.clock.Low()
		delay()
	}
	interrupt.Restore(state)

	// sign-extend 24 bits
	return int32(v<<8) >> 8, nil
}

// Average returns the mean of n conversions
func (h *HX711) Average(n int) (int32, error) {
	if n < 1 {
		n = 1
	}
	var sum int64
	for range n {
		v, err := h.ReadRaw()
		if err != nil {
			return 0, err
		}
		sum += int64(v)
	}
	return int32(sum / int64(n)), nil
}

// Tare makes the current load the zero point
func (h *HX711) Tare(n int) error {
	v, err := h.Average(n)
	if err != nil {
		return err
	}
	h.offset = v
	return nil
}

// Units returns the tared average of n conversions in grams
func (h *HX711) Units(n int) (float32, error) {
	v, err := h.Average(n)
	if err != nil {
		return 0, err
	}
	return float32(v-h.offset) / h.scale, nil
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// delay keeps the clock pulses above the 0.2us minimum
func delay() {
	for range 8 {
		arm.Asm("nop")
	}
}
