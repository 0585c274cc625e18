package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestReadEvents(t *testing.T) {
	input := strings.Join([]string{
		"@0 boot state=PreExtraction target=36.0",
		"[00:00:01.000] state=PreExtraction target=36.0",
		"",
		"@1200 state state=Extracting elapsed=0.0",
		"@1700 sample weight=0.4 elapsed=0.5 predicted=0.00",
		"@1800 nonsense",
		"@29000 stop reason=target weight=34.6 target=36.0 elapsed=27.8 predicted=1.42",
	}, "\r\n")

	core, logs := observer.New(zapcore.DebugLevel)
	out := make(chan autobrew.Event, 10)

	err := ReadEvents(context.Background(), strings.NewReader(input), out, zap.New(core))
	require.NoError(t, err)

	var events []autobrew.Event
	for e := range out {
		events = append(events, e)
	}

	require.Len(t, events, 4)
	assert.Equal(t, autobrew.EventBoot, events[0].Kind)
	assert.Equal(t, autobrew.StateExtracting, events[1].State)
	assert.InDelta(t, 0.4, events[2].Weight, 1e-5)
	assert.Equal(t, autobrew.StopTarget, events[3].Reason)
	assert.Equal(t, uint32(29000), events[3].Millis)

	assert.Equal(t, 1, logs.FilterMessage("device").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to parse event").Len())
}

func TestReadEventsFullChannel(t *testing.T) {
	input := "@0 target target=30.0\n@100 sample weight=1.0 elapsed=0.1 predicted=0.0\n@200 shot weight=36.2 target=36.0 elapsed=28.0\n"

	core, logs := observer.New(zapcore.DebugLevel)
	out := make(chan autobrew.Event, 1)

	done := make(chan error)
	go func() {
		done <- ReadEvents(context.Background(), strings.NewReader(input), out, zap.New(core))
	}()

	// the sample is dropped while the target waits in the channel, the shot waits for room
	require.Eventually(t, func() bool {
		return logs.FilterMessage("events channel full, dropping sample").Len() == 1
	}, time.Second, time.Millisecond)

	e := <-out
	assert.Equal(t, autobrew.EventTarget, e.Kind)
	e = <-out
	assert.Equal(t, autobrew.EventShot, e.Kind)
	assert.InDelta(t, 36.2, e.Weight, 1e-5)

	require.NoError(t, <-done)
	_, ok := <-out
	assert.False(t, ok)
}

func TestReadEventsFullChannelCancelled(t *testing.T) {
	input := "@0 target target=30.0\n@200 shot weight=36.2 target=36.0 elapsed=28.0\n"

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan autobrew.Event, 1)

	done := make(chan error)
	go func() {
		done <- ReadEvents(ctx, strings.NewReader(input), out, zap.NewNop())
	}()

	cancel()
	require.NoError(t, <-done)
}

func TestCommands(t *testing.T) {
	cmd, err := CommandSetTarget(36)
	require.NoError(t, err)
	assert.Equal(t, "t036", cmd)

	cmd, err = CommandSetTarget(0)
	require.NoError(t, err)
	assert.Equal(t, "t000", cmd)

	_, err = CommandSetTarget(1000)
	assert.Error(t, err)

	assert.Equal(t, "+++", CommandSteps(3))
	assert.Equal(t, "--", CommandSteps(-2))
	assert.Equal(t, "", CommandSteps(0))
}

func TestSerialNotConnected(t *testing.T) {
	s := New("/dev/null", 0, zap.NewNop())
	assert.Equal(t, DefaultBaudRate, s.baudRate)

	assert.EqualError(t, s.Press(), "not connected")
	assert.NoError(t, s.Step(0))
	assert.NoError(t, s.Close())
}

type fakeStore struct {
	shots []history.Shot
	err   error
}

func (f *fakeStore) Add(s *history.Shot) error {
	if f.err != nil {
		return f.err
	}
	s.ID = uint(len(f.shots) + 1)
	f.shots = append(f.shots, *s)
	return nil
}

type call struct {
	method string
	arg    string
	at     time.Time
}

type fakeTWChart struct {
	calls []call
	err   error
}

func (f *fakeTWChart) CreateSession(_ context.Context, name string, start time.Time) (string, error) {
	f.calls = append(f.calls, call{"CreateSession", name, start})
	return "id", f.err
}

func (f *fakeTWChart) AddEvent(_ context.Context, note string, at time.Time) error {
	f.calls = append(f.calls, call{"AddEvent", note, at})
	return nil
}

func (f *fakeTWChart) AddStage(_ context.Context, name string, start time.Time) error {
	f.calls = append(f.calls, call{"AddStage", name, start})
	return nil
}

func (f *fakeTWChart) Done(_ context.Context, at time.Time) error {
	f.calls = append(f.calls, call{"Done", "", at})
	return nil
}

var start = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

func newRecorder(t *testing.T) (*Recorder, *fakeStore, *fakeTWChart, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	store := &fakeStore{}
	tw := &fakeTWChart{}

	r := NewRecorder(store, zap.New(core))
	r.twchart = tw
	r.now = func() time.Time { return start }

	return r, store, tw, logs
}

func shotEvents() []autobrew.Event {
	return []autobrew.Event{
		{Kind: autobrew.EventState, Millis: 1000, State: autobrew.StateExtracting},
		{Kind: autobrew.EventSample, Millis: 1500, Weight: 0.2, Elapsed: 0.5},
		{Kind: autobrew.EventStop, Millis: 29000, Reason: autobrew.StopTarget, Weight: 34.5, Target: 36, Elapsed: 28, Predicted: 1.5},
		{Kind: autobrew.EventState, Millis: 29000, State: autobrew.StatePostExtraction, Elapsed: 28},
		{Kind: autobrew.EventShot, Millis: 32000, Weight: 36.2, Target: 36, Elapsed: 28},
		{Kind: autobrew.EventPersist, Millis: 32010, Written: 6},
	}
}

func TestRecorder(t *testing.T) {
	r, store, tw, _ := newRecorder(t)

	var got []history.Shot
	r.OnShot(func(s history.Shot) { got = append(got, s) })

	events := make(chan autobrew.Event, 10)
	for _, e := range shotEvents() {
		events <- e
	}
	close(events)

	require.NoError(t, r.Run(context.Background(), events))

	require.Len(t, store.shots, 1)
	shot := store.shots[0]
	assert.Equal(t, start, shot.CreatedAt)
	assert.Equal(t, "target", shot.StopReason)
	assert.InDelta(t, 34.5, shot.StopWeight, 1e-5)
	assert.InDelta(t, 36.2, shot.Weight, 1e-5)
	assert.InDelta(t, 1.5, shot.Predicted, 1e-5)

	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].ID)

	assert.Equal(t, []call{
		{"CreateSession", "Shot 36.0g", start},
		{"AddStage", "Extraction", start},
		{"AddEvent", "target stop at 34.5g, predicted +1.50g", start.Add(28 * time.Second)},
		{"AddStage", "Drip", start.Add(28 * time.Second)},
		{"AddEvent", "final 36.2g in 28.0s", start.Add(31 * time.Second)},
		{"Done", "", start.Add(31 * time.Second)},
	}, tw.calls)
}

func TestRecorderCancelledShot(t *testing.T) {
	r, store, tw, logs := newRecorder(t)
	ctx := context.Background()

	r.Handle(ctx, autobrew.Event{Kind: autobrew.EventState, Millis: 1000, State: autobrew.StateExtracting})
	r.Handle(ctx, autobrew.Event{Kind: autobrew.EventStop, Millis: 4000, Reason: autobrew.StopCancel, Weight: 2})
	r.Handle(ctx, autobrew.Event{Kind: autobrew.EventState, Millis: 4000, State: autobrew.StatePreExtraction})

	assert.Nil(t, r.current)
	assert.Empty(t, store.shots)
	assert.Empty(t, tw.calls)
	assert.Equal(t, 1, logs.FilterMessage("shot cancelled").Len())
}

func TestRecorderStartedMidShot(t *testing.T) {
	r, store, tw, _ := newRecorder(t)

	r.Handle(context.Background(), autobrew.Event{Kind: autobrew.EventShot, Millis: 40000, Weight: 30, Target: 30, Elapsed: 25})

	require.Len(t, store.shots, 1)
	assert.Equal(t, start.Add(-25*time.Second), store.shots[0].CreatedAt)
	assert.Empty(t, store.shots[0].StopReason)

	// no stop was seen so there is no drip stage
	require.Len(t, tw.calls, 4)
	assert.Equal(t, "Done", tw.calls[3].method)
	assert.Equal(t, start, tw.calls[3].at)
}

func TestRecorderErrors(t *testing.T) {
	r, store, tw, logs := newRecorder(t)
	store.err = errors.New("disk full")
	tw.err = errors.New("connection refused")

	var called bool
	r.OnShot(func(history.Shot) { called = true })

	for _, e := range shotEvents() {
		r.Handle(context.Background(), e)
	}

	assert.True(t, called)
	assert.Len(t, tw.calls, 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to save shot").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to upload shot").Len())
}

func TestRecorderDeviceRestart(t *testing.T) {
	r, store, _, logs := newRecorder(t)
	ctx := context.Background()

	r.Handle(ctx, autobrew.Event{Kind: autobrew.EventState, Millis: 1000, State: autobrew.StateExtracting})
	r.Handle(ctx, autobrew.Event{Kind: autobrew.EventBoot, Millis: 0})

	assert.Nil(t, r.current)
	assert.Empty(t, store.shots)
	assert.Equal(t, 1, logs.FilterMessage("device restarted during a shot").Len())
}

func TestRecorderContextDone(t *testing.T) {
	r, _, _, _ := newRecorder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx, make(chan autobrew.Event))
	assert.ErrorIs(t, err, context.Canceled)
}
