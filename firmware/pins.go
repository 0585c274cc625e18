package main

import (
	"machine"
	"time"
)

const (
	// Pump relay, active high
	PIN_PUMP = machine.GP15

	// Rotary encoder and its push button
	PIN_ENCODER_A      = machine.GP5
	PIN_ENCODER_B      = machine.GP4
	PIN_ENCODER_BUTTON = machine.GP6

	// Load cells
	PIN_LOADCELL1_DOUT = machine.GP10
	PIN_LOADCELL1_SCK  = machine.GP11
	PIN_LOADCELL2_DOUT = machine.GP12
	PIN_LOADCELL2_SCK  = machine.GP13

	// I2C0 is shared by the OLED and the EEPROM
	PIN_SDA = machine.GP0
	PIN_SCL = machine.GP1

	I2C_FREQUENCY   = 400 * machine.KHz
	DISPLAY_ADDRESS = 0x3C

	// Raw HX711 counts per gram of each load cell
	LOADCELL1_SCALE = 1091
	LOADCELL2_SCALE = 1091

	EEPROM_WRITE_CYCLE = 5 * time.Millisecond
)
