package device

import (
	"errors"
	"machine"
	"strconv"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/brew"
	"github.com/calvinmclean/autobrew/display"
	"github.com/calvinmclean/autobrew/storage"

	"tinygo.org/x/drivers/at24cx"
	"tinygo.org/x/drivers/ssd1306"
)

// Device is the espresso scale. It owns the hardware and runs the brew.Controller on it
type Device struct {
	ctrl   *brew.Controller
	input  *brew.Input
	scale  *Scale
	pump   machine.Pin
	oled   *ssd1306.Device
	eeprom at24cx.Device

	encoder EncoderConfig

	bootTime time.Time

	verbose bool

	// line is reused for event output
	line [128]byte
}

// New sets up all hardware and draws the first screen. Any error means the device is unusable
func New(cfg Config) (*Device, error) {
	d := &Device{
		pump:     cfg.Pump,
		encoder:  cfg.Encoder,
		bootTime: time.Now(),
	}

	// the pump must be off before anything else can fail
	d.pump.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.pump.Low()

	err := cfg.Bus.I2C.Configure(machine.I2CConfig{
		Frequency: cfg.Bus.Frequency,
		SDA:       cfg.Bus.SDA,
		SCL:       cfg.Bus.SCL,
	})
	if err != nil {
		return nil, errors.New("error configuring i2c: " + err.Error())
	}

	d.oled = ssd1306.NewI2C(cfg.Bus.I2C)
	d.oled.Configure(ssd1306.Config{
		Width:    128,
		Height:   64,
		Address:  cfg.Bus.DisplayAddress,
		VccState: ssd1306.SWITCHCAPVCC,
	})

	d.eeprom = at24cx.New(cfg.Bus.I2C)
	d.eeprom.Configure(at24cx.Config{})
	store := storage.New(&d.eeprom)
	store.WriteCycle = cfg.Bus.EEPROMWriteCycle

	d.scale = NewScale(cfg.Scale)
	d.scale.Configure()
	err = d.scale.Tare()
	if err != nil {
		return nil, errors.New("error creating scale: " + err.Error())
	}

	d.ctrl, err = brew.New(cfg.Brew, brew.Collaborators{
		Sensor:    sensor{d},
		Pump:      d.pump,
		Presenter: display.New(d.oled),
		Store:     store,
		Clock:     d,
		Observer:  d.observe,
	})
	if err != nil {
		return nil, errors.New("error creating controller: " + err.Error())
	}
	d.input = d.ctrl.Input()

	err = d.configureEncoder()
	if err != nil {
		return nil, errors.New("error configuring encoder: " + err.Error())
	}

	return d, nil
}

func (d *Device) configureEncoder() error {
	for _, p := range []machine.Pin{d.encoder.A, d.encoder.B, d.encoder.Button} {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}

	err := d.encoder.A.SetInterrupt(machine.PinToggle, func(machine.Pin) {
		d.input.Rotate(d.encoder.A.Get(), d.encoder.B.Get())
	})
	if err != nil {
		return err
	}

	return d.encoder.Button.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		d.input.Press(d.Now())
	})
}

// Tick runs one iteration of the control loop
func (d *Device) Tick() {
	d.ctrl.Tick()
}

// Now is the time since boot
func (d *Device) Now() time.Duration {
	return time.Since(d.bootTime)
}

// Tare zeroes the scale, unless a shot is running
func (d *Device) Tare() error {
	return d.ctrl.Tare()
}

// sensor is the scale as seen by the controller. In verbose mode every reading is printed
type sensor struct {
	d *Device
}

func (s sensor) Tare() error {
	return s.d.scale.Tare()
}

func (s sensor) ReadWeight(samples int) (float32, error) {
	return s.d.readWeight(samples)
}

func (d *Device) readWeight(samples int) (float32, error) {
	w, err := d.scale.ReadWeight(samples)
	if err == nil && d.verbose {
		c := d.scale.Channels()
		println(d.ts(), "weight", decimal(w), "=", decimal(c[0]), "+", decimal(c[1]))
	}
	return w, err
}

// Press acts like the encoder button
func (d *Device) Press() {
	d.input.Press(d.Now())
}

// Step acts like turning the encoder n detents
func (d *Device) Step(n int32) {
	d.input.Step(n)
}

func (d *Device) SetTarget(grams float32) bool {
	return d.input.SetTarget(grams)
}

// Tune opens the overshoot tuning view
func (d *Device) Tune() bool {
	return d.input.RequestTune()
}

func (d *Device) ApplySuggestedGain() bool {
	ok := d.ctrl.ApplySuggestedGain()
	if ok {
		println(d.ts(), "gain", d.ctrl.Gain().String())
	}
	return ok
}

// Debug prints out details of the Device's state
func (d *Device) Debug() {
	out := d.ts() + " state=" + d.ctrl.State().String()
	out += " weight=" + decimal(d.ctrl.Weight())
	out += " target=" + decimal(d.input.Target())
	out += " predicted=" + decimal(d.ctrl.Predicted())
	out += " gain=" + d.ctrl.Gain().String()

	prev := d.ctrl.Previous()
	out += " previous=" + decimal(prev.PreviousWeight) + "g/" + decimal(prev.PreviousTime) + "s"
	println(out)
}

// Verbose toggles Verbose mode, which prints every weight reading
func (d *Device) Verbose() {
	d.verbose = !d.verbose
	println(d.ts(), "verbose", d.verbose)
}

// observe writes controller events to the serial port for the host
func (d *Device) observe(e autobrew.Event) {
	b := e.AppendText(d.line[:0])
	b = append(b, '\r', '\n')
	_, _ = machine.Serial.Write(b)
}

// ts returns the duration timestamp for logging
func (d *Device) ts() string {
	return "[" + d.Now().String() + "]"
}

func decimal(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 1, 32)
}
