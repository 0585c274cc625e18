package device

import (
	"machine"
	"time"

	"github.com/calvinmclean/autobrew/brew"
)

// readyTimeout is a little longer than one conversion at 10 samples per second
const readyTimeout = 150 * time.Millisecond

// Gain is the number of extra clock pulses that select the HX711 input and gain
type Gain uint8

const (
	GainA128 Gain = 1
	GainB32  Gain = 2
	GainA64  Gain = 3
)

// HX711Config has the pins and calibration of one load cell channel
type HX711Config struct {
	Data  machine.Pin
	Clock machine.Pin
	Gain  Gain
	// Scale is raw counts per gram
	Scale float32
}

// ScaleConfig has both load cells under the cup
type ScaleConfig struct {
	Channels    [2]HX711Config
	TareSamples int
}

// EncoderConfig has the rotary encoder channels and its push button. All use the internal pull-ups
type EncoderConfig struct {
	A      machine.Pin
	B      machine.Pin
	Button machine.Pin
}

// BusConfig is the I2C bus shared by the display and the EEPROM
type BusConfig struct {
	I2C            *machine.I2C
	SDA            machine.Pin
	SCL            machine.Pin
	Frequency      uint32
	DisplayAddress uint16
	// EEPROMWriteCycle is waited after each byte written to the EEPROM
	EEPROMWriteCycle time.Duration
}

type Config struct {
	Pump    machine.Pin
	Scale   ScaleConfig
	Encoder EncoderConfig
	Bus     BusConfig
	Brew    brew.Config
}
