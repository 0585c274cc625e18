// Package sim runs the extraction controller against a simulated espresso machine and scale
package sim

import (
	"math/rand/v2"
	"time"

	"github.com/chewxy/math32"
)

// Params describe the simulated machine
type Params struct {
	// FlowRate is the steady flow into the cup with the pump on (g/s)
	FlowRate float32
	// Preinfusion is the time from pump start until the first drops land
	Preinfusion time.Duration
	// DripWeight lands after the pump stops, approaching it exponentially with time constant DripTau
	DripWeight float32
	DripTau    time.Duration
	// Noise is the standard deviation of a single scale reading (g)
	Noise float32
	// Tick is the time between control loop iterations
	Tick time.Duration
	// ReadDuration is the time one scale sample takes
	ReadDuration time.Duration
	Seed         uint64
}

func DefaultParams() Params {
	return Params{
		FlowRate:     1.5,
		Preinfusion:  6 * time.Second,
		DripWeight:   2,
		DripTau:      time.Second,
		Noise:        0.05,
		Tick:         50 * time.Millisecond,
		ReadDuration: 100 * time.Millisecond,
		Seed:         1,
	}
}

// Clock is simulated time since boot. It only moves when advanced
type Clock struct {
	now time.Duration
}

func (c *Clock) Now() time.Duration {
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.now += d
}

// pumping is one run of the pump. off is only valid when stopped is set
type pumping struct {
	on, off time.Duration
	stopped bool
}

// weight is what this run has put in the cup at t
func (p pumping) weight(params Params, t time.Duration) float32 {
	end := t
	if p.stopped && p.off < t {
		end = p.off
	}

	flowing := end - p.on - params.Preinfusion
	if flowing <= 0 {
		return 0
	}
	w := params.FlowRate * float32(flowing.Seconds())

	if p.stopped && t > p.off && params.DripTau > 0 {
		tail := float32((t - p.off).Seconds() / params.DripTau.Seconds())
		w += params.DripWeight * (1 - math32.Exp(-tail))
	}
	return w
}

// Machine is the pump, the cup and the two load cells under it. It implements brew.Pump and
// brew.WeightSensor. Reading the scale advances the clock by ReadDuration per sample
type Machine struct {
	params Params
	clock  *Clock
	rng    *rand.Rand

	runs   []pumping
	offset float32
}

func NewMachine(params Params, clock *Clock) *Machine {
	return &Machine{
		params: params,
		clock:  clock,
		rng:    rand.New(rand.NewPCG(params.Seed, params.Seed)),
	}
}

// Set switches the pump
func (m *Machine) Set(on bool) {
	now := m.clock.Now()
	running := len(m.runs) > 0 && !m.runs[len(m.runs)-1].stopped

	switch {
	case on && !running:
		m.runs = append(m.runs, pumping{on: now})
	case !on && running:
		m.runs[len(m.runs)-1].off = now
		m.runs[len(m.runs)-1].stopped = true
	}
}

// Pumping reports whether the pump is on
func (m *Machine) Pumping() bool {
	return len(m.runs) > 0 && !m.runs[len(m.runs)-1].stopped
}

// Weight is the true weight in the cup, ignoring the tare
func (m *Machine) Weight() float32 {
	var w float32
	for _, r := range m.runs {
		w += r.weight(m.params, m.clock.Now())
	}
	return w
}

func (m *Machine) Tare() error {
	m.offset = m.Weight()
	return nil
}

func (m *Machine) ReadWeight(samples int) (float32, error) {
	if samples < 1 {
		samples = 1
	}

	var sum float32
	for i := 0; i < samples; i++ {
		m.clock.Advance(m.params.ReadDuration)
		sum += m.Weight() + m.params.Noise*float32(m.rng.NormFloat64())
	}
	return sum/float32(samples) - m.offset, nil
}
