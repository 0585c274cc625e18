package autobrew

// State is the extraction state of the machine. The zero value is StatePreExtraction.
type State uint32

const (
	StatePreExtraction State = iota
	StateExtracting
	StatePostExtraction
	StateTuneOvershoot
)

func (s State) String() string {
	switch s {
	case StatePreExtraction:
		return "PreExtraction"
	case StateExtracting:
		return "Extracting"
	case StatePostExtraction:
		return "PostExtraction"
	case StateTuneOvershoot:
		return "TuneOvershoot"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is one of the known states
func (s State) Valid() bool {
	return s <= StateTuneOvershoot
}

// ParseState is the inverse of State.String
func ParseState(str string) (State, bool) {
	for s := StatePreExtraction; s <= StateTuneOvershoot; s++ {
		if s.String() == str {
			return s, true
		}
	}
	return 0, false
}

// StopReason tells why the pump was switched off
type StopReason uint8

const (
	StopNone StopReason = iota
	StopTarget
	StopTimeout
	StopButton
	StopCancel
)

func (r StopReason) String() string {
	switch r {
	case StopTarget:
		return "target"
	case StopTimeout:
		return "timeout"
	case StopButton:
		return "button"
	case StopCancel:
		return "cancel"
	default:
		return "none"
	}
}

func parseStopReason(str string) (StopReason, bool) {
	for r := StopNone; r <= StopCancel; r++ {
		if r.String() == str {
			return r, true
		}
	}
	return 0, false
}
