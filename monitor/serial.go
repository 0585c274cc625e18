// Package monitor connects to the scale over USB serial. It decodes the controller's event lines,
// sends console commands and records completed shots.
package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/calvinmclean/autobrew"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	DefaultBaudRate   = 115200
	DefaultBufferSize = 100
)

// Link is a connection to a scale, real or simulated
type Link interface {
	Connect() error
	Close() error
	Events() <-chan autobrew.Event
	Send(cmd string) error
}

var _ Link = (*Serial)(nil)

// Serial is a connection to the scale's USB serial console
type Serial struct {
	port     string
	baudRate int
	log      *zap.Logger

	conn      serial.Port
	events    chan autobrew.Event
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a new Serial with the specified port and baud rate
func New(port string, baudRate int, log *zap.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		log:      log.Named("serial"),
		events:   make(chan autobrew.Event, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect opens the port and starts reading events
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return errors.New("already connected")
	}

	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true

	go func() {
		err := ReadEvents(s.ctx, port, s.events, s.log)
		if err != nil {
			s.log.Error("error reading from serial port", zap.Error(err))
		}
	}()

	return nil
}

// Close closes the connection and the events channel
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn("error closing serial port", zap.Error(err))
		}
		s.conn = nil
	}

	s.connected = false

	return nil
}

// Events is closed when reading stops
func (s *Serial) Events() <-chan autobrew.Event {
	return s.events
}

// Send writes console command bytes
func (s *Serial) Send(cmd string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return errors.New("not connected")
	}

	_, err := s.conn.Write([]byte(cmd))
	if err != nil {
		return fmt.Errorf("failed to send command %q: %w", cmd, err)
	}
	return nil
}

// ReadEvents decodes event lines from r until it ends or ctx is done, then closes out. Other lines are the
// firmware's debug output and are logged
func ReadEvents(ctx context.Context, r io.Reader, out chan<- autobrew.Event, log *zap.Logger) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		e, err := autobrew.ParseEvent(line)
		switch {
		case errors.Is(err, autobrew.ErrNotEvent):
			log.Debug("device", zap.String("line", line))
			continue
		case err != nil:
			log.Warn("failed to parse event", zap.String("line", line), zap.Error(err))
			continue
		}

		// samples are dropped when the reader falls behind; everything else waits for room
		if e.Kind == autobrew.EventSample {
			select {
			case out <- e:
			case <-ctx.Done():
				return nil
			default:
				log.Warn("events channel full, dropping sample")
			}
			continue
		}

		select {
		case out <- e:
		case <-ctx.Done():
			return nil
		}
	}

	err := scanner.Err()
	if err != nil && !errors.Is(err, io.EOF) && ctx.Err() == nil {
		return err
	}
	return nil
}

// Commands for the firmware console
const (
	CommandPress   = "B"
	CommandUp      = "+"
	CommandDown    = "-"
	CommandTare    = "T"
	CommandDebug   = "D"
	CommandVerbose = "V"
	CommandTune    = "O"
	CommandApply   = "A"
)

// CommandSetTarget sets the target in whole grams
func CommandSetTarget(grams int) (string, error) {
	if grams < 0 || grams > 999 {
		return "", fmt.Errorf("target out of range: %d", grams)
	}
	s := strconv.Itoa(grams)
	return "t" + strings.Repeat("0", 3-len(s)) + s, nil
}

// CommandSteps turns the encoder n detents
func CommandSteps(n int) string {
	if n < 0 {
		return strings.Repeat(CommandDown, -n)
	}
	return strings.Repeat(CommandUp, n)
}

// Press sends a button press
func (s *Serial) Press() error {
	return s.Send(CommandPress)
}

// Step turns the encoder n detents, negative to lower the target
func (s *Serial) Step(n int) error {
	if n == 0 {
		return nil
	}
	return s.Send(CommandSteps(n))
}

// Debug asks the firmware to print its state
func (s *Serial) Debug() error {
	return s.Send(CommandDebug)
}

// SetTarget sets the target in whole grams
func (s *Serial) SetTarget(grams int) error {
	cmd, err := CommandSetTarget(grams)
	if err != nil {
		return err
	}
	return s.Send(cmd)
}
