package brew

import (
	"context"
	"errors"
	"time"

	"github.com/calvinmclean/autobrew"
)

// Collaborators are the hardware-facing dependencies of a Controller. Observer is optional
type Collaborators struct {
	Sensor    WeightSensor
	Pump      Pump
	Presenter Presenter
	Store     Store
	Clock     Clock
	Observer  Observer
}

// Tuning has the measurements of the last completed shot that are used to calibrate the overshoot gain
type Tuning struct {
	StopWeight  float32
	StopRate    float32 // g/s when the pump stopped
	FinalWeight float32
	Measured    bool
}

// Overshoot is the weight that landed after the pump stopped
func (t Tuning) Overshoot() float32 {
	return t.FinalWeight - t.StopWeight
}

// SuggestedGain is the lookahead that would have predicted the measured overshoot exactly. It is 0 when
// there is nothing to learn from
func (t Tuning) SuggestedGain() time.Duration {
	overshoot := t.Overshoot()
	if !t.Measured || t.StopRate <= 0 || overshoot <= 0 {
		return 0
	}
	return time.Duration(float64(overshoot/t.StopRate) * float64(time.Second))
}

// Controller owns the extraction state machine. Tick must only be called from one goroutine; the
// interrupt handlers only touch the shared Input.
type Controller struct {
	cfg Config

	sensor    WeightSensor
	pump      Pump
	presenter Presenter
	store     Store
	clock     Clock
	observe   Observer

	input     *Input
	estimator Estimator
	gain      time.Duration

	// active is the state whose entry actions have run. It lags Input.State until the next Tick
	active autobrew.State

	weight    float32
	predicted float32
	target    float32
	start     time.Duration
	end       time.Duration

	stopReason autobrew.StopReason
	record     Record
	hasRecord  bool
	finalized  bool

	previous Values
	tuning   Tuning
}

// New loads the persisted values and draws the first screen. Any error here means the hardware is not
// usable and the caller must not run the controller.
func New(cfg Config, c Collaborators) (*Controller, error) {
	if c.Sensor == nil || c.Pump == nil || c.Presenter == nil || c.Store == nil || c.Clock == nil {
		return nil, errors.New("missing collaborator")
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.New("invalid config: " + err.Error())
	}

	c.Pump.Set(false)

	values, err := c.Store.Load()
	if err != nil {
		return nil, errors.Join(ErrStoreInit, err)
	}

	ctrl := &Controller{
		cfg:       cfg,
		sensor:    c.Sensor,
		pump:      c.Pump,
		presenter: c.Presenter,
		store:     c.Store,
		clock:     c.Clock,
		observe:   c.Observer,
		input:     newInput(cfg.MinExtraction, cfg.Debounce, cfg.DripDelay),
		estimator: NewEstimator(cfg.SampleInterval),
		gain:      cfg.OvershootGain,
		active:    autobrew.StatePreExtraction,
		previous:  values,
	}

	target := Tenths(values.Target)
	if target < 0 || target > maxTarget {
		target = 0
	}
	ctrl.input.target.Store(target)

	err = ctrl.presenter.ShowPreExtraction(ctrl.preExtractionView())
	if err != nil {
		return nil, errors.Join(ErrDisplayInit, err)
	}

	ctrl.emit(autobrew.Event{Kind: autobrew.EventBoot, State: ctrl.active, Target: ctrl.input.Target()})

	return ctrl, nil
}

// Input is handed to the interrupt handlers
func (c *Controller) Input() *Input {
	return c.input
}

// State is the state the control loop is currently running
func (c *Controller) State() autobrew.State {
	return c.active
}

// Weight is the last weight read from the sensor
func (c *Controller) Weight() float32 {
	return c.weight
}

// Predicted is the last overshoot estimate
func (c *Controller) Predicted() float32 {
	return c.predicted
}

// Record returns the last shot. The weight is final once State has reached PostExtraction and the
// drip delay has passed.
func (c *Controller) Record() (Record, bool) {
	return c.record, c.hasRecord
}

// Finalized reports whether the current PostExtraction visit has captured the final weight
func (c *Controller) Finalized() bool {
	return c.finalized
}

// Previous returns the values as last persisted
func (c *Controller) Previous() Values {
	return c.previous
}

func (c *Controller) Tuning() Tuning {
	return c.tuning
}

func (c *Controller) Gain() time.Duration {
	return c.gain
}

// SetGain changes the overshoot lookahead for the following shots
func (c *Controller) SetGain(gain time.Duration) {
	if gain < 0 {
		gain = 0
	}
	c.gain = gain
}

// ApplySuggestedGain uses the gain learned from the last shot. It returns false if there is none
func (c *Controller) ApplySuggestedGain() bool {
	g := c.tuning.SuggestedGain()
	if g <= 0 {
		return false
	}
	c.gain = g
	return true
}

// Tare zeroes the scale. It is refused while extracting because the shot would lose its reference
func (c *Controller) Tare() error {
	if c.active == autobrew.StateExtracting {
		return errors.New("cannot tare while extracting")
	}
	return c.sensor.Tare()
}

// Run calls Tick until ctx is done and leaves the pump off
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.pump.Set(false)
			return ctx.Err()
		default:
		}
		c.Tick()
	}
}

// Tick runs one iteration of the control loop: it applies a pending state change and then runs the
// handler for the current state. Handlers never block beyond a sensor read.
func (c *Controller) Tick() {
	if s := c.input.State(); s != c.active {
		c.transition(s)
	}

	switch c.active {
	case autobrew.StatePreExtraction:
		c.preExtraction()
	case autobrew.StateExtracting:
		c.extracting()
	case autobrew.StatePostExtraction:
		c.postExtraction()
	case autobrew.StateTuneOvershoot:
		c.tuneOvershoot()
	}
}

func (c *Controller) transition(to autobrew.State) {
	from := c.active

	switch from {
	case autobrew.StateExtracting:
		c.exitExtracting(to)
	case autobrew.StatePostExtraction:
		if !c.finalized {
			c.finalize()
		}
	}

	c.active = to

	switch to {
	case autobrew.StatePreExtraction:
		c.finalized = false
	case autobrew.StateExtracting:
		c.enterExtracting()
	case autobrew.StatePostExtraction:
		c.finalized = false
	}

	c.emit(autobrew.Event{Kind: autobrew.EventState, State: to, Elapsed: seconds(c.end - c.start)})
}

func (c *Controller) enterExtracting() {
	c.target = c.input.Target()
	c.stopReason = autobrew.StopNone
	c.estimator.Reset()
	c.predicted = 0
	c.weight = 0

	err := c.sensor.Tare()
	if err != nil {
		c.emitError("error taring: " + err.Error())
	}

	c.start = c.clock.Now()
	c.end = c.start
	c.input.elapsed.Store(0)
	c.show()

	c.pump.Set(true)
}

func (c *Controller) exitExtracting(to autobrew.State) {
	c.pump.Set(false)
	c.end = c.clock.Now()

	if c.stopReason == autobrew.StopNone {
		if to == autobrew.StatePreExtraction {
			c.stopReason = autobrew.StopCancel
		} else {
			c.stopReason = autobrew.StopButton
		}
	}

	elapsed := seconds(c.end - c.start)
	c.emit(autobrew.Event{
		Kind:      autobrew.EventStop,
		Reason:    c.stopReason,
		Weight:    c.weight,
		Target:    c.target,
		Elapsed:   elapsed,
		Predicted: c.predicted,
	})

	if to != autobrew.StatePostExtraction {
		return
	}

	c.record = Record{Target: c.target, Weight: c.weight, Elapsed: elapsed}
	c.hasRecord = true
	c.tuning = Tuning{StopWeight: c.weight, StopRate: c.estimator.Rate()}
}

func (c *Controller) preExtraction() {
	if c.input.adjusted.Swap(false) {
		c.emit(autobrew.Event{Kind: autobrew.EventTarget, Target: c.input.Target()})
	}
	c.show()
}

func (c *Controller) extracting() {
	c.readWeight(c.cfg.SampleCount)

	now := c.clock.Now()
	elapsed := now - c.start
	c.end = now
	c.input.elapsed.Store(int64(elapsed))

	if c.estimator.Sample(c.weight, now) {
		c.predicted = c.estimator.Estimate(c.gain)
		c.emit(autobrew.Event{
			Kind:      autobrew.EventSample,
			Weight:    c.weight,
			Elapsed:   seconds(elapsed),
			Predicted: c.predicted,
		})
	}

	c.show()

	switch {
	case elapsed >= c.cfg.MaxExtraction:
		c.stop(autobrew.StopTimeout)
	case elapsed > c.cfg.MinExtraction && c.weight >= c.target-c.predicted:
		c.stop(autobrew.StopTarget)
	}
}

// stop moves to PostExtraction right away so the pump is switched off in this iteration. If a button
// press changed the state first, the next Tick handles that instead.
func (c *Controller) stop(reason autobrew.StopReason) {
	if !c.input.finish(c.clock.Now()) {
		return
	}
	c.stopReason = reason
	c.transition(autobrew.StatePostExtraction)
}

func (c *Controller) postExtraction() {
	if c.finalized {
		return
	}

	// let the drips land before taking the final weight
	if c.clock.Now()-c.end < c.cfg.DripDelay {
		c.readWeight(c.cfg.SampleCount)
		c.showView(autobrew.StateExtracting)
		return
	}

	c.finalize()
}

// finalize runs once per visit to PostExtraction
func (c *Controller) finalize() {
	c.finalized = true
	if !c.hasRecord {
		return
	}

	c.readWeight(c.cfg.FinalSampleCount)
	c.record.Weight = c.weight
	c.show()

	c.previous = Values{
		Target:         c.record.Target,
		PreviousWeight: c.record.Weight,
		PreviousTime:   c.record.Elapsed,
	}

	c.tuning.FinalWeight = c.record.Weight
	c.tuning.Measured = true

	c.emit(autobrew.Event{
		Kind:    autobrew.EventShot,
		Weight:  c.record.Weight,
		Target:  c.record.Target,
		Elapsed: c.record.Elapsed,
	})

	written, err := c.store.Save(c.previous)
	if err != nil {
		c.emitError("error saving values: " + err.Error())
	}
	c.emit(autobrew.Event{Kind: autobrew.EventPersist, Written: written})
}

func (c *Controller) tuneOvershoot() {
	c.show()
}

func (c *Controller) readWeight(samples int) {
	w, err := c.sensor.ReadWeight(samples)
	if err != nil {
		c.emitError("error reading weight: " + err.Error())
		return
	}
	c.weight = w
}

func (c *Controller) show() {
	c.showView(c.active)
}

func (c *Controller) showView(s autobrew.State) {
	var err error
	switch s {
	case autobrew.StatePreExtraction:
		err = c.presenter.ShowPreExtraction(c.preExtractionView())
	case autobrew.StateExtracting:
		err = c.presenter.ShowExtraction(ExtractionView{
			Elapsed: seconds(c.end - c.start),
			Weight:  c.weight,
		})
	case autobrew.StatePostExtraction:
		// previous still holds the shot before this one
		err = c.presenter.ShowPostExtraction(PostExtractionView{
			Weight:         c.record.Weight,
			Elapsed:        c.record.Elapsed,
			PreviousWeight: c.previous.PreviousWeight,
			PreviousTime:   c.previous.PreviousTime,
		})
	case autobrew.StateTuneOvershoot:
		err = c.presenter.ShowTuneOvershoot(TuneView{
			Gain:        c.gain,
			StopWeight:  c.tuning.StopWeight,
			FinalWeight: c.tuning.FinalWeight,
			Overshoot:   c.tuning.Overshoot(),
			Suggested:   c.tuning.SuggestedGain(),
			Measured:    c.tuning.Measured,
		})
	}
	if err != nil {
		c.emitError("error updating display: " + err.Error())
	}
}

func (c *Controller) preExtractionView() PreExtractionView {
	return PreExtractionView{
		Target:         c.input.Target(),
		PreviousWeight: c.previous.PreviousWeight,
		PreviousTime:   c.previous.PreviousTime,
	}
}

func (c *Controller) emitError(msg string) {
	c.emit(autobrew.Event{Kind: autobrew.EventError, State: c.active, Message: msg})
}

func (c *Controller) emit(e autobrew.Event) {
	if c.observe == nil {
		return
	}
	e.Millis = uint32(c.clock.Now() / time.Millisecond)
	c.observe(e)
}
