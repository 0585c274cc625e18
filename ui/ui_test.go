package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	events := []autobrew.Event{
		{Kind: autobrew.EventBoot, State: autobrew.StatePreExtraction, Target: 36},
		{Kind: autobrew.EventTarget, Target: 36.5},
		{Kind: autobrew.EventState, State: autobrew.StateExtracting},
		{Kind: autobrew.EventSample, Weight: 20.1, Elapsed: 15, Predicted: 1.2},
		{Kind: autobrew.EventStop, Reason: autobrew.StopTarget, Weight: 35.3, Elapsed: 27.5, Predicted: 1.25},
		{Kind: autobrew.EventState, State: autobrew.StatePostExtraction, Elapsed: 27.5},
		{Kind: autobrew.EventShot, Weight: 36.4, Target: 36.5, Elapsed: 27.5},
	}

	tests := []struct {
		stateText  string
		buttonText string
		message    string
	}{
		{"Ready", "Start", "Device started"},
		{"Ready", "Start", "Device started"},
		{"Extracting", "Stop", ""},
		{"Extracting", "Stop", ""},
		{"Extracting", "Stop", "Stopped (target) at 35.3g"},
		{"Dripping", "Next Shot", "Stopped (target) at 35.3g"},
		{"Done", "Next Shot", "Shot: 36.4g in 27.5s"},
	}

	var s status
	for i, e := range events {
		s = s.apply(e)
		assert.Equal(t, tests[i].stateText, s.stateText(), i)
		assert.Equal(t, tests[i].buttonText, s.buttonText(), i)
		assert.Equal(t, tests[i].message, s.message, i)
	}

	assert.InDelta(t, 36.5, s.target, 1e-5)
	assert.InDelta(t, 36.4, s.weight, 1e-5)
	assert.InDelta(t, 1.25, s.predicted, 1e-5)
}

func TestStatusNewShotClearsReadings(t *testing.T) {
	s := status{state: autobrew.StatePostExtraction, weight: 36, elapsed: 28, finalized: true, target: 36}
	s = s.apply(autobrew.Event{Kind: autobrew.EventState, State: autobrew.StateExtracting})

	assert.Zero(t, s.weight)
	assert.Zero(t, s.elapsed)
	assert.False(t, s.finalized)
	assert.InDelta(t, 36, s.target, 1e-5)
}

func TestStatusTune(t *testing.T) {
	s := status{}.apply(autobrew.Event{Kind: autobrew.EventState, State: autobrew.StateTuneOvershoot})
	assert.Equal(t, "Tuning", s.stateText())
	assert.Equal(t, "Back", s.buttonText())
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(cmd string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func TestControllerWrapper(t *testing.T) {
	sender := &fakeSender{}
	c := &controllerWrapper{sender: sender}

	require.NoError(t, c.Press())
	require.NoError(t, c.Step(3))
	require.NoError(t, c.Step(-1))
	require.NoError(t, c.Step(0))
	require.NoError(t, c.SetTarget(38))
	require.NoError(t, c.Tare())
	require.NoError(t, c.Tune())
	require.NoError(t, c.ApplySuggestedGain())

	assert.Equal(t, []string{"B", "+++", "-", "t038", "T", "O", "A"}, sender.sent)

	assert.Error(t, c.SetTarget(-1))

	sender.err = errors.New("not connected")
	assert.EqualError(t, c.Press(), "not connected")
}

func TestPanelHandleBeforeShow(t *testing.T) {
	p := NewPanel(&fakeSender{})

	p.Handle(autobrew.Event{Kind: autobrew.EventBoot, Target: 30})
	p.Handle(autobrew.Event{Kind: autobrew.EventSample, Weight: 1})
	p.showError(errors.New("oops"))
	p.showError(nil)

	assert.Equal(t, "oops", p.status.message)
	// samples are not logged
	assert.Len(t, p.logs, 2)
}

func TestAppendLimited(t *testing.T) {
	var lines []string
	for i := 0; i < maxLogLines+5; i++ {
		lines = appendLimited(lines, "line")
	}
	assert.Len(t, lines, maxLogLines)
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "00.0s", formatElapsed(0))
	assert.Equal(t, "07.4s", formatElapsed(7450*time.Millisecond))
	assert.Equal(t, "28.0s", formatElapsed(28*time.Second))
}

func TestTimer(t *testing.T) {
	tm := newTimer()
	now := time.Now()

	assert.Zero(t, tm.elapsed(now))

	tm.Start(now)
	assert.Equal(t, 2*time.Second, tm.elapsed(now.Add(2*time.Second)))

	tm.Freeze(27500 * time.Millisecond)
	assert.Equal(t, 27500*time.Millisecond, tm.elapsed(now.Add(time.Hour)))
}

func TestConfigForm(t *testing.T) {
	cfg := config.Default()
	f := newConfigForm(cfg)
	assert.Equal(t, "115200", f.baudRate)
	assert.True(t, f.valid())

	f.port = "/dev/ttyACM1"
	f.twchartAddr = "http://localhost:8080"
	require.NoError(t, f.apply(cfg))
	assert.Equal(t, "/dev/ttyACM1", cfg.Serial.Port)
	assert.Equal(t, "http://localhost:8080", cfg.TWChart.Address)

	f.baudRate = "fast"
	assert.False(t, f.valid())
	assert.Error(t, f.apply(cfg))
	assert.Equal(t, 115200, cfg.Serial.BaudRate)

	f.baudRate = "9600"
	f.port = ""
	assert.False(t, f.valid())
}
