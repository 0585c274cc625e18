package sim

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/brew"
	"github.com/calvinmclean/autobrew/storage"
)

// EEPROMSize matches the AT24C32
const EEPROMSize = 4096

// shotLimit bounds RunShot in simulated time
const shotLimit = 5 * time.Minute

// Sim is a complete machine: controller, simulated hardware and an EEPROM that survives Restart
type Sim struct {
	Clock      *Clock
	Machine    *Machine
	EEPROM     *storage.Memory
	Controller *brew.Controller

	params    Params
	cfg       brew.Config
	presenter brew.Presenter
	observe   brew.Observer
}

// New boots the controller. The screen is printed to out as text. out and observe may be nil
func New(params Params, cfg brew.Config, out io.Writer, observe brew.Observer) (*Sim, error) {
	if params.Tick <= 0 {
		return nil, errors.New("tick must be positive")
	}

	s := &Sim{
		Clock:     &Clock{},
		EEPROM:    storage.NewMemory(EEPROMSize),
		params:    params,
		cfg:       cfg,
		presenter: discard{},
		observe:   observe,
	}
	if out != nil {
		s.presenter = NewTextPresenter(out, s.Clock)
	}

	return s, s.boot()
}

func (s *Sim) boot() error {
	s.Machine = NewMachine(s.params, s.Clock)

	ctrl, err := brew.New(s.cfg, brew.Collaborators{
		Sensor:    s.Machine,
		Pump:      s.Machine,
		Presenter: s.presenter,
		Store:     storage.New(s.EEPROM),
		Clock:     s.Clock,
		Observer:  s.observe,
	})
	if err != nil {
		return fmt.Errorf("error starting controller: %w", err)
	}
	s.Controller = ctrl
	return nil
}

// Restart is a power cycle. Only the EEPROM contents are kept
func (s *Sim) Restart() error {
	s.Clock.now = 0
	return s.boot()
}

// Step runs one control loop iteration
func (s *Sim) Step() {
	s.Clock.Advance(s.params.Tick)
	s.Controller.Tick()
}

// Press presses the button, waiting out the debounce if needed
func (s *Sim) Press() error {
	in := s.Controller.Input()
	for start := s.Clock.Now(); s.Clock.Now()-start < time.Second; s.Step() {
		if in.Press(s.Clock.Now()) {
			s.Step()
			return nil
		}
	}
	return errors.New("button press was not accepted")
}

// RunShot pulls one shot to target grams and returns it once the final weight is known
func (s *Sim) RunShot(target float32) (brew.Record, error) {
	ctrl := s.Controller

	switch ctrl.State() {
	case autobrew.StatePostExtraction, autobrew.StateTuneOvershoot:
		if err := s.Press(); err != nil {
			return brew.Record{}, err
		}
	case autobrew.StateExtracting:
		return brew.Record{}, errors.New("shot already running")
	}

	if !ctrl.Input().SetTarget(target) {
		return brew.Record{}, fmt.Errorf("invalid target %.1f", target)
	}
	s.Step()

	if err := s.Press(); err != nil {
		return brew.Record{}, err
	}

	deadline := s.Clock.Now() + shotLimit
	for ctrl.State() != autobrew.StatePostExtraction || !ctrl.Finalized() {
		if s.Clock.Now() > deadline {
			return brew.Record{}, errors.New("shot did not finish")
		}
		if ctrl.State() == autobrew.StatePreExtraction {
			return brew.Record{}, errors.New("shot was cancelled")
		}
		s.Step()
	}

	r, _ := ctrl.Record()
	return r, nil
}

type discard struct{}

func (discard) ShowPreExtraction(brew.PreExtractionView) error   { return nil }
func (discard) ShowExtraction(brew.ExtractionView) error         { return nil }
func (discard) ShowPostExtraction(brew.PostExtractionView) error { return nil }
func (discard) ShowTuneOvershoot(brew.TuneView) error            { return nil }
