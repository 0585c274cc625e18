package ui

import (
	"fmt"

	"github.com/calvinmclean/autobrew"
)

// status is what the panel knows about the device, built from its events
type status struct {
	state     autobrew.State
	weight    float32
	target    float32
	predicted float32
	elapsed   float32
	finalized bool
	message   string
}

func (s status) apply(e autobrew.Event) status {
	switch e.Kind {
	case autobrew.EventBoot:
		s = status{state: e.State, target: e.Target, message: "Device started"}
	case autobrew.EventState:
		s.state = e.State
		switch e.State {
		case autobrew.StateExtracting:
			s.weight, s.predicted, s.elapsed = 0, 0, 0
			s.finalized = false
			s.message = ""
		case autobrew.StatePostExtraction:
			s.elapsed = e.Elapsed
		}
	case autobrew.EventSample:
		s.weight = e.Weight
		s.elapsed = e.Elapsed
		s.predicted = e.Predicted
	case autobrew.EventStop:
		s.weight = e.Weight
		s.elapsed = e.Elapsed
		s.predicted = e.Predicted
		s.message = fmt.Sprintf("Stopped (%s) at %.1fg", e.Reason, e.Weight)
	case autobrew.EventShot:
		s.weight = e.Weight
		s.elapsed = e.Elapsed
		s.finalized = true
		s.message = fmt.Sprintf("Shot: %.1fg in %.1fs", e.Weight, e.Elapsed)
	case autobrew.EventTarget:
		s.target = e.Target
	case autobrew.EventError:
		s.message = e.Message
	}
	return s
}

func (s status) stateText() string {
	switch s.state {
	case autobrew.StatePreExtraction:
		return "Ready"
	case autobrew.StateExtracting:
		return "Extracting"
	case autobrew.StatePostExtraction:
		if s.finalized {
			return "Done"
		}
		return "Dripping"
	case autobrew.StateTuneOvershoot:
		return "Tuning"
	default:
		return "Unknown"
	}
}

// buttonText is what a press of the machine's button does next
func (s status) buttonText() string {
	switch s.state {
	case autobrew.StatePreExtraction:
		return "Start"
	case autobrew.StateExtracting:
		return "Stop"
	case autobrew.StatePostExtraction:
		return "Next Shot"
	case autobrew.StateTuneOvershoot:
		return "Back"
	default:
		return "Press"
	}
}
