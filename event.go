package autobrew

import (
	"errors"
	"strconv"
	"strings"
)

// EventPrefix starts every event line written by the firmware. Lines without it are plain debug output.
const EventPrefix = '@'

// EventKind identifies what happened
type EventKind uint8

const (
	EventBoot EventKind = iota
	EventState
	EventSample
	EventStop
	EventShot
	EventPersist
	EventTarget
	EventError
)

var eventKindNames = [...]string{
	EventBoot:    "boot",
	EventState:   "state",
	EventSample:  "sample",
	EventStop:    "stop",
	EventShot:    "shot",
	EventPersist: "persist",
	EventTarget:  "target",
	EventError:   "error",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Persisted field bits used in Event.Written
const (
	WroteTarget uint8 = 1 << iota
	WrotePreviousWeight
	WrotePreviousTime
)

// Event is emitted by the controller on significant changes. The firmware writes it to the serial port
// as a single line and the host parses it back.
type Event struct {
	Kind EventKind
	// Millis is the time since boot
	Millis uint32

	State     State
	Weight    float32 // grams
	Target    float32 // grams
	Elapsed   float32 // seconds since the pump started
	Predicted float32 // grams expected to land after a stop now
	Reason    StopReason
	Written   uint8
	Message   string
}

type field uint16

const (
	fieldState field = 1 << iota
	fieldWeight
	fieldTarget
	fieldElapsed
	fieldPredicted
	fieldReason
	fieldWritten
	fieldMessage
)

// fields lists which values are meaningful for each kind, in the order they are written
var fields = [...]field{
	EventBoot:    fieldState | fieldTarget,
	EventState:   fieldState | fieldElapsed,
	EventSample:  fieldWeight | fieldElapsed | fieldPredicted,
	EventStop:    fieldReason | fieldWeight | fieldTarget | fieldElapsed | fieldPredicted,
	EventShot:    fieldWeight | fieldTarget | fieldElapsed,
	EventPersist: fieldWritten,
	EventTarget:  fieldTarget,
	EventError:   fieldState | fieldMessage,
}

func (k EventKind) fields() field {
	if int(k) < len(fields) {
		return fields[k]
	}
	return 0
}

// AppendText appends the line form of the event, without a trailing newline, to b.
// It does not use fmt so it is usable from the firmware.
func (e Event) AppendText(b []byte) []byte {
	b = append(b, EventPrefix)
	b = strconv.AppendUint(b, uint64(e.Millis), 10)
	b = append(b, ' ')
	b = append(b, e.Kind.String()...)

	f := e.Kind.fields()
	if f&fieldState != 0 {
		b = append(b, " state="...)
		b = append(b, e.State.String()...)
	}
	if f&fieldReason != 0 {
		b = append(b, " reason="...)
		b = append(b, e.Reason.String()...)
	}
	if f&fieldWeight != 0 {
		b = appendFloat(b, " weight=", e.Weight, 1)
	}
	if f&fieldTarget != 0 {
		b = appendFloat(b, " target=", e.Target, 1)
	}
	if f&fieldElapsed != 0 {
		b = appendFloat(b, " elapsed=", e.Elapsed, 1)
	}
	if f&fieldPredicted != 0 {
		b = appendFloat(b, " predicted=", e.Predicted, 2)
	}
	if f&fieldWritten != 0 {
		b = append(b, " written="...)
		b = strconv.AppendUint(b, uint64(e.Written), 10)
	}
	// msg is always last since it may contain spaces
	if f&fieldMessage != 0 {
		b = append(b, " msg="...)
		b = append(b, e.Message...)
	}
	return b
}

func (e Event) String() string {
	return string(e.AppendText(nil))
}

func appendFloat(b []byte, key string, v float32, prec int) []byte {
	b = append(b, key...)
	return strconv.AppendFloat(b, float64(v), 'f', prec, 32)
}

var (
	ErrNotEvent     = errors.New("not an event line")
	ErrUnknownEvent = errors.New("unknown event kind")
)

// ParseEvent parses a line produced by Event.AppendText. Lines that do not start with EventPrefix
// return ErrNotEvent.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimSpace(line)
	if len(line) == 0 || line[0] != EventPrefix {
		return Event{}, ErrNotEvent
	}

	var msg string
	hasMsg := false
	if idx := strings.Index(line, " msg="); idx >= 0 {
		msg = line[idx+len(" msg="):]
		hasMsg = true
		line = line[:idx]
	}

	parts := strings.Fields(line[1:])
	if len(parts) < 2 {
		return Event{}, errors.New("invalid event line: " + line)
	}

	millis, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Event{}, errors.New("invalid timestamp: " + err.Error())
	}

	e := Event{Millis: uint32(millis), Message: msg}

	kindOK := false
	for k, name := range eventKindNames {
		if name == parts[1] {
			e.Kind = EventKind(k)
			kindOK = true
			break
		}
	}
	if !kindOK {
		return Event{}, ErrUnknownEvent
	}
	if hasMsg && e.Kind.fields()&fieldMessage == 0 {
		return Event{}, errors.New("unexpected msg for " + e.Kind.String())
	}

	for _, kv := range parts[2:] {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return Event{}, errors.New("invalid field: " + kv)
		}

		switch key {
		case "state":
			s, ok := ParseState(value)
			if !ok {
				return Event{}, errors.New("invalid state: " + value)
			}
			e.State = s
		case "reason":
			r, ok := parseStopReason(value)
			if !ok {
				return Event{}, errors.New("invalid reason: " + value)
			}
			e.Reason = r
		case "weight":
			err = parseFloat(value, &e.Weight)
		case "target":
			err = parseFloat(value, &e.Target)
		case "elapsed":
			err = parseFloat(value, &e.Elapsed)
		case "predicted":
			err = parseFloat(value, &e.Predicted)
		case "written":
			var w uint64
			w, err = strconv.ParseUint(value, 10, 8)
			e.Written = uint8(w)
		default:
			return Event{}, errors.New("unknown field: " + key)
		}
		if err != nil {
			return Event{}, errors.New("invalid " + key + ": " + err.Error())
		}
	}

	return e, nil
}

func parseFloat(s string, dst *float32) error {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*dst = float32(v)
	return nil
}
