// Package logging builds the host logger and turns controller events into log entries
package logging

import (
	"time"

	"github.com/calvinmclean/autobrew"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a console logger. debug lowers the level so every weight sample is logged
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// EventLogger writes controller events as structured entries
type EventLogger struct {
	log *zap.Logger
}

func NewEventLogger(log *zap.Logger) *EventLogger {
	return &EventLogger{log: log.Named("controller")}
}

// Log can be used as a brew.Observer
func (l *EventLogger) Log(e autobrew.Event) {
	fields := []zap.Field{zap.Duration("uptime", time.Duration(e.Millis)*time.Millisecond)}

	switch e.Kind {
	case autobrew.EventBoot:
		l.log.Info("boot", append(fields, zap.Stringer("state", e.State), zap.Float32("target", e.Target))...)
	case autobrew.EventState:
		l.log.Info("state changed", append(fields, zap.Stringer("state", e.State), zap.Float32("elapsed", e.Elapsed))...)
	case autobrew.EventSample:
		l.log.Debug("sample", append(fields,
			zap.Float32("weight", e.Weight),
			zap.Float32("elapsed", e.Elapsed),
			zap.Float32("predicted", e.Predicted),
		)...)
	case autobrew.EventStop:
		l.log.Info("pump stopped", append(fields,
			zap.Stringer("reason", e.Reason),
			zap.Float32("weight", e.Weight),
			zap.Float32("target", e.Target),
			zap.Float32("elapsed", e.Elapsed),
			zap.Float32("predicted", e.Predicted),
		)...)
	case autobrew.EventShot:
		l.log.Info("shot complete", append(fields,
			zap.Float32("weight", e.Weight),
			zap.Float32("target", e.Target),
			zap.Float32("elapsed", e.Elapsed),
		)...)
	case autobrew.EventPersist:
		l.log.Info("eeprom updated", append(fields, zap.Uint8("written", e.Written))...)
	case autobrew.EventTarget:
		l.log.Info("target adjusted", append(fields, zap.Float32("target", e.Target))...)
	case autobrew.EventError:
		l.log.Warn(e.Message, append(fields, zap.Stringer("state", e.State))...)
	default:
		l.log.Warn("unknown event", append(fields, zap.Uint8("kind", uint8(e.Kind)))...)
	}
}
