package commands

import (
	"errors"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Controller, []byte) error
	Description string
}

// Controller is used to control a device
type Controller interface {
	Press()
	Step(int32)
	SetTarget(float32) bool
	Tare() error
	Tune() bool
	ApplySuggestedGain() bool
	Debug()
	Verbose()
}

// ByteReader is the serial port. Buffered lets the console poll without blocking the control loop
type ByteReader interface {
	Buffered() int
	ReadByte() (byte, error)
}

var (
	PressCommand = &Command{
		Flag:      'B',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Press()
			return nil
		},
		Description: "Press the button.",
	}
	IncreaseCommand = &Command{
		Flag:      '+',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Step(+1)
			return nil
		},
		Description: "Turn the encoder one step up (+0.1g).",
	}
	DecreaseCommand = &Command{
		Flag:      '-',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Step(-1)
			return nil
		},
		Description: "Turn the encoder one step down (-0.1g).",
	}
	SetTargetCommand = &Command{
		Flag:      't',
		InputSize: 3,
		Run: func(c Controller, input []byte) error {
			var grams uint
			for _, b := range input {
				if b < '0' || b > '9' {
					return errors.New("invalid input: " + string(input))
				}
				grams = grams*10 + uint(b-'0')
			}
			if !c.SetTarget(float32(grams)) {
				return errors.New("target can only be set before extraction")
			}
			return nil
		},
		Description: "Set the target weight in grams. Input: three digits, like 036.",
	}
	TareCommand = &Command{
		Flag:      'T',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			return c.Tare()
		},
		Description: "Tare the scale.",
	}
	DebugCommand = &Command{
		Flag:      'D',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Debug()
			return nil
		},
		Description: "Print the current state.",
	}
	VerboseCommand = &Command{
		Flag:      'V',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Verbose()
			return nil
		},
		Description: "Toggle verbose output.",
	}
	TuneCommand = &Command{
		Flag:      'O',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			if !c.Tune() {
				return errors.New("overshoot tuning can only start before extraction")
			}
			return nil
		},
		Description: "Show the overshoot measurements of the last shot.",
	}
	ApplyGainCommand = &Command{
		Flag:      'A',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			if !c.ApplySuggestedGain() {
				return errors.New("no suggested gain")
			}
			return nil
		},
		Description: "Use the overshoot gain suggested by the last shot.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(c Controller, b []byte) error {
			println("Available Commands:")
			for _, cmd := range commands {
				println(string(cmd.Flag) + ": " + cmd.Description)
			}
			return nil
		},
	}
)

var commands = []*Command{
	PressCommand,
	IncreaseCommand,
	DecreaseCommand,
	SetTargetCommand,
	TareCommand,
	DebugCommand,
	VerboseCommand,
	TuneCommand,
	ApplyGainCommand,
}

// Console reads commands from the serial port without blocking. A command whose input has not fully
// arrived yet is completed on a later Poll
type Console struct {
	c      Controller
	r      ByteReader
	cmdMap map[byte]*Command

	pending *Command
	in      [4]byte
	n       uint
}

func NewConsole(c Controller, r ByteReader) *Console {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}

	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	return &Console{c: c, r: r, cmdMap: cmdMap}
}

// Poll runs every command that is complete in the serial buffer. It returns the last command error
func (s *Console) Poll() error {
	var lastErr error
	for s.r.Buffered() > 0 {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}

		if s.pending == nil {
			cmd, ok := s.cmdMap[b]
			if !ok {
				continue
			}
			s.pending = cmd
			s.n = 0
		} else {
			s.in[s.n] = b
			s.n++
		}

		if s.n < s.pending.InputSize {
			continue
		}

		cmd := s.pending
		s.pending = nil
		err = cmd.Run(s.c, s.in[:cmd.InputSize])
		if err != nil {
			lastErr = err
		}
	}
	return lastErr
}
