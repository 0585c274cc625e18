//go:generate tinygo flash -target=pico

package main

import (
	"machine"
	"time"

	"github.com/calvinmclean/autobrew/brew"
	"github.com/calvinmclean/autobrew/firmware/commands"
	"github.com/calvinmclean/autobrew/firmware/device"
)

func main() {
	cfg := device.Config{
		Pump: PIN_PUMP,
		Scale: device.ScaleConfig{
			Channels: [2]device.HX711Config{
				{Data: PIN_LOADCELL1_DOUT, Clock: PIN_LOADCELL1_SCK, Gain: device.GainA128, Scale: LOADCELL1_SCALE},
				{Data: PIN_LOADCELL2_DOUT, Clock: PIN_LOADCELL2_SCK, Gain: device.GainA128, Scale: LOADCELL2_SCALE},
			},
			TareSamples: 10,
		},
		Encoder: device.EncoderConfig{
			A:      PIN_ENCODER_A,
			B:      PIN_ENCODER_B,
			Button: PIN_ENCODER_BUTTON,
		},
		Bus: device.BusConfig{
			I2C:              machine.I2C0,
			SDA:              PIN_SDA,
			SCL:              PIN_SCL,
			Frequency:        I2C_FREQUENCY,
			DisplayAddress:   DISPLAY_ADDRESS,
			EEPROMWriteCycle: EEPROM_WRITE_CYCLE,
		},
		Brew: brew.DefaultConfig(),
	}

	d, err := device.New(cfg)
	if err != nil {
		println("fatal:", err.Error())
		halt()
	}

	console := commands.NewConsole(d, machine.Serial)
	for {
		err = console.Poll()
		if err != nil {
			println("error:", err.Error())
		}
		d.Tick()
	}
}

// halt leaves the pump off and does nothing else
func halt() {
	PIN_PUMP.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_PUMP.Low()
	for {
		time.Sleep(time.Hour)
	}
}
