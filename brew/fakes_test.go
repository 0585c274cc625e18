package brew

import (
	"errors"
	"time"

	"github.com/calvinmclean/autobrew"
)

type fakeClock struct {
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	return c.now
}

// fakeSensor returns trace(time since the last tare)
type fakeSensor struct {
	clock  *fakeClock
	trace  func(time.Duration) float32
	tareAt time.Duration
	tares  int
	reads  []int
	err    error
}

func (s *fakeSensor) Tare() error {
	s.tares++
	s.tareAt = s.clock.now
	return nil
}

func (s *fakeSensor) ReadWeight(samples int) (float32, error) {
	s.reads = append(s.reads, samples)
	if s.err != nil {
		return 0, s.err
	}
	if s.trace == nil {
		return 0, nil
	}
	return s.trace(s.clock.now - s.tareAt), nil
}

type fakePump struct {
	on       bool
	switches []bool
}

func (p *fakePump) Set(on bool) {
	p.on = on
	p.switches = append(p.switches, on)
}

type recordingPresenter struct {
	err error

	pre   []PreExtractionView
	extr  []ExtractionView
	post  []PostExtractionView
	tune  []TuneView
	order []autobrew.State
}

func (p *recordingPresenter) ShowPreExtraction(v PreExtractionView) error {
	p.pre = append(p.pre, v)
	p.order = append(p.order, autobrew.StatePreExtraction)
	return p.err
}

func (p *recordingPresenter) ShowExtraction(v ExtractionView) error {
	p.extr = append(p.extr, v)
	p.order = append(p.order, autobrew.StateExtracting)
	return p.err
}

func (p *recordingPresenter) ShowPostExtraction(v PostExtractionView) error {
	p.post = append(p.post, v)
	p.order = append(p.order, autobrew.StatePostExtraction)
	return p.err
}

func (p *recordingPresenter) ShowTuneOvershoot(v TuneView) error {
	p.tune = append(p.tune, v)
	p.order = append(p.order, autobrew.StateTuneOvershoot)
	return p.err
}

type fakeStore struct {
	values  Values
	loadErr error
	saves   []Values
}

func (s *fakeStore) Load() (Values, error) {
	return s.values, s.loadErr
}

func (s *fakeStore) Save(v Values) (uint8, error) {
	var written uint8
	if Tenths(v.Target) != Tenths(s.values.Target) {
		written |= autobrew.WroteTarget
	}
	if Tenths(v.PreviousWeight) != Tenths(s.values.PreviousWeight) {
		written |= autobrew.WrotePreviousWeight
	}
	if Tenths(v.PreviousTime) != Tenths(s.values.PreviousTime) {
		written |= autobrew.WrotePreviousTime
	}
	s.values = v
	s.saves = append(s.saves, v)
	return written, nil
}

var errFake = errors.New("fake error")

type harness struct {
	clock     *fakeClock
	sensor    *fakeSensor
	pump      *fakePump
	presenter *recordingPresenter
	store     *fakeStore
	events    []autobrew.Event
	ctrl      *Controller
}

func newHarness(cfg Config, stored Values, trace func(time.Duration) float32) (*harness, error) {
	h := &harness{
		clock:     &fakeClock{},
		pump:      &fakePump{},
		presenter: &recordingPresenter{},
		store:     &fakeStore{values: stored},
	}
	h.sensor = &fakeSensor{clock: h.clock, trace: trace}

	ctrl, err := New(cfg, Collaborators{
		Sensor:    h.sensor,
		Pump:      h.pump,
		Presenter: h.presenter,
		Store:     h.store,
		Clock:     h.clock,
		Observer:  func(e autobrew.Event) { h.events = append(h.events, e) },
	})
	h.ctrl = ctrl
	return h, err
}

// at moves the clock and runs one iteration
func (h *harness) at(t time.Duration) {
	h.clock.now = t
	h.ctrl.Tick()
}

// press presses the button at t and runs one iteration
func (h *harness) press(t time.Duration) {
	h.clock.now = t
	h.ctrl.Input().Press(t)
	h.ctrl.Tick()
}

// until ticks every step after the current time until done returns true or limit passes. It returns the
// time at which done became true, or -1
func (h *harness) until(step, limit time.Duration, done func() bool) time.Duration {
	for t := h.clock.now + step; t <= limit; t += step {
		h.at(t)
		if done() {
			return t
		}
	}
	return -1
}

func (h *harness) eventsOf(kind autobrew.EventKind) []autobrew.Event {
	var result []autobrew.Event
	for _, e := range h.events {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

// linear is a flow of rate grams per second
func linear(rate float32) func(time.Duration) float32 {
	return func(d time.Duration) float32 {
		return rate * float32(d.Seconds())
	}
}
