package device

import (
	"errors"

	"github.com/calvinmclean/autobrew/brew"
)

// Scale adds up the two load cells under the cup
type Scale struct {
	channels    [2]*HX711
	tareSamples int

	// last has the most recent reading of each channel for debugging
	last [2]float32
}

var _ brew.WeightSensor = &Scale{}

func NewScale(cfg ScaleConfig) *Scale {
	s := &Scale{tareSamples: cfg.TareSamples}
	if s.tareSamples <= 0 {
		s.tareSamples = 10
	}
	for i, c := range cfg.Channels {
		s.channels[i] = NewHX711(c)
	}
	return s
}

func (s *Scale) Configure() {
	for _, c := range s.channels {
		c.Configure()
	}
}

func (s *Scale) Tare() error {
	for i, c := range s.channels {
		err := c.Tare(s.tareSamples)
		if err != nil {
			return errors.New("error taring channel " + string(byte('1'+i)) + ": " + err.Error())
		}
	}
	return nil
}

func (s *Scale) ReadWeight(samples int) (float32, error) {
	var sum float32
	for i, c := range s.channels {
		v, err := c.Units(samples)
		if err != nil {
			return 0, errors.New("error reading channel " + string(byte('1'+i)) + ": " + err.Error())
		}
		s.last[i] = v
		sum += v
	}
	return sum, nil
}

// Channels returns the last reading of each load cell
func (s *Scale) Channels() [2]float32 {
	return s.last
}
