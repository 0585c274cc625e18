package logging

import (
	"testing"

	"github.com/calvinmclean/autobrew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := New(false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = New(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestEventLogger(t *testing.T) {
	tests := []struct {
		name    string
		event   autobrew.Event
		level   zapcore.Level
		message string
		fields  map[string]any
	}{
		{
			name:    "Stop",
			event:   autobrew.Event{Kind: autobrew.EventStop, Millis: 25000, Reason: autobrew.StopTarget, Weight: 29, Target: 30, Elapsed: 25, Predicted: 1},
			level:   zapcore.InfoLevel,
			message: "pump stopped",
			fields:  map[string]any{"reason": "target", "weight": float32(29), "target": float32(30)},
		},
		{
			name:    "Sample",
			event:   autobrew.Event{Kind: autobrew.EventSample, Weight: 12.5, Elapsed: 10, Predicted: 0.75},
			level:   zapcore.DebugLevel,
			message: "sample",
			fields:  map[string]any{"weight": float32(12.5), "predicted": float32(0.75)},
		},
		{
			name:    "Error",
			event:   autobrew.Event{Kind: autobrew.EventError, State: autobrew.StateExtracting, Message: "error reading weight: hx711 not ready"},
			level:   zapcore.WarnLevel,
			message: "error reading weight: hx711 not ready",
			fields:  map[string]any{"state": "Extracting"},
		},
		{
			name:    "Persist",
			event:   autobrew.Event{Kind: autobrew.EventPersist, Written: autobrew.WrotePreviousWeight | autobrew.WrotePreviousTime},
			level:   zapcore.InfoLevel,
			message: "eeprom updated",
			fields:  map[string]any{"written": uint8(6)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.DebugLevel)
			NewEventLogger(zap.New(core)).Log(tt.event)

			require.Equal(t, 1, observed.Len())
			entry := observed.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)
			assert.Equal(t, "controller", entry.LoggerName)

			ctx := entry.ContextMap()
			for k, v := range tt.fields {
				assert.Equal(t, v, ctx[k], k)
			}
		})
	}
}

func TestEventLoggerSkipsSamplesAtInfo(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	l := NewEventLogger(zap.New(core))

	l.Log(autobrew.Event{Kind: autobrew.EventSample, Weight: 1})
	l.Log(autobrew.Event{Kind: autobrew.EventShot, Weight: 36, Target: 36, Elapsed: 28})

	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "shot complete", observed.All()[0].Message)
}
