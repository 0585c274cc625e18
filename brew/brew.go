// Package brew implements the extraction state machine and the weight-prediction control loop. It only
// talks to hardware through the small interfaces below so it runs unchanged on the microcontroller
// (TinyGo) and on a host (simulation and tests).
package brew

import (
	"errors"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/chewxy/math32"
)

// WeightSensor reads the scale
type WeightSensor interface {
	// Tare zeroes both load cells
	Tare() error
	// ReadWeight returns the combined weight in grams. samples controls the averaging depth of each channel
	ReadWeight(samples int) (float32, error)
}

// Pump drives the pump relay. It is satisfied by machine.Pin
type Pump interface {
	Set(on bool)
}

// Clock returns the time elapsed since boot. It must be monotonic
type Clock interface {
	Now() time.Duration
}

// Store persists the values that survive a power cycle
type Store interface {
	Load() (Values, error)
	// Save writes the fields that changed since the last Load/Save and returns a mask of
	// autobrew.Wrote* bits for the fields that were written
	Save(Values) (uint8, error)
}

// Presenter renders one view per call
type Presenter interface {
	ShowPreExtraction(PreExtractionView) error
	ShowExtraction(ExtractionView) error
	ShowPostExtraction(PostExtractionView) error
	ShowTuneOvershoot(TuneView) error
}

// Observer receives events from the controller. It is called from the control loop only
type Observer func(autobrew.Event)

// Values are the persisted values
type Values struct {
	Target         float32 // grams
	PreviousWeight float32 // grams
	PreviousTime   float32 // seconds
}

// Record describes a completed shot
type Record struct {
	Target  float32 // grams
	Weight  float32 // final grams, after the drip delay
	Elapsed float32 // seconds the pump was running
}

type PreExtractionView struct {
	Target         float32
	PreviousWeight float32
	PreviousTime   float32
}

type ExtractionView struct {
	Elapsed float32
	Weight  float32
}

type PostExtractionView struct {
	Weight         float32
	Elapsed        float32
	PreviousWeight float32
	PreviousTime   float32
}

type TuneView struct {
	Gain        time.Duration
	StopWeight  float32
	FinalWeight float32
	Overshoot   float32
	Suggested   time.Duration
	// Measured is false until a shot has been completed
	Measured bool
}

// Config has the tunable timing and sampling parameters
type Config struct {
	// MinExtraction guards the stop condition at the start of a shot (adjusting the cup) and decides
	// whether a button press cancels or finishes a shot
	MinExtraction time.Duration
	// MaxExtraction always stops the pump, regardless of weight
	MaxExtraction time.Duration
	// DripDelay is waited after the pump stops before the final weight is taken
	DripDelay time.Duration
	// SampleInterval rate-limits samples accepted by the overshoot estimator
	SampleInterval time.Duration
	// OvershootGain is how far ahead the estimator looks when predicting the overshoot
	OvershootGain time.Duration
	// Debounce ignores button presses this close to the previously accepted press
	Debounce time.Duration

	SampleCount      int
	FinalSampleCount int
}

// DefaultConfig returns the values used on the machine
func DefaultConfig() Config {
	return Config{
		MinExtraction:    10 * time.Second,
		MaxExtraction:    50 * time.Second,
		DripDelay:        3000 * time.Millisecond,
		SampleInterval:   500 * time.Millisecond,
		OvershootGain:    1000 * time.Millisecond,
		Debounce:         300 * time.Millisecond,
		SampleCount:      1,
		FinalSampleCount: 10,
	}
}

// withDefaults fills in zero fields. OvershootGain is left alone since 0 disables prediction
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinExtraction == 0 {
		c.MinExtraction = def.MinExtraction
	}
	if c.MaxExtraction == 0 {
		c.MaxExtraction = def.MaxExtraction
	}
	if c.DripDelay == 0 {
		c.DripDelay = def.DripDelay
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = def.SampleInterval
	}
	if c.Debounce == 0 {
		c.Debounce = def.Debounce
	}
	if c.SampleCount <= 0 {
		c.SampleCount = def.SampleCount
	}
	if c.FinalSampleCount <= 0 {
		c.FinalSampleCount = def.FinalSampleCount
	}
	return c
}

// Validate checks relationships between the fields
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.MaxExtraction <= c.MinExtraction {
		return errors.New("max extraction must be longer than min extraction")
	}
	if c.OvershootGain < 0 {
		return errors.New("overshoot gain must not be negative")
	}
	return nil
}

var (
	ErrDisplayInit = errors.New("display initialization failed")
	ErrStoreInit   = errors.New("persistent store initialization failed")
)

// Tenths converts grams or seconds to the fixed-point representation used for the target weight and storage
func Tenths(v float32) int32 {
	if math32.IsNaN(v) {
		return 0
	}
	return int32(math32.Floor(v*10 + 0.5))
}

// FromTenths is the inverse of Tenths
func FromTenths(t int32) float32 {
	return float32(t) / 10
}

func seconds(d time.Duration) float32 {
	return float32(d.Seconds())
}
