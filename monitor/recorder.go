package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/history"
	"github.com/calvinmclean/autobrew/twchart"

	"go.uber.org/zap"
)

// ShotStore saves completed shots
type ShotStore interface {
	Add(*history.Shot) error
}

// Recorder follows the events of a shot and stores the result when the device reports the final weight
type Recorder struct {
	store   ShotStore
	twchart twchartClient
	log     *zap.Logger
	now     func() time.Time

	onShot []func(history.Shot)

	current *timeline
}

type timeline struct {
	start       time.Time
	startMillis uint32
	stop        *autobrew.Event
}

// at converts device uptime to wall time relative to the start of the shot
func (t *timeline) at(millis uint32) time.Time {
	return t.start.Add(time.Duration(millis-t.startMillis) * time.Millisecond)
}

// NewRecorder creates a Recorder. store may be nil to skip saving
func NewRecorder(store ShotStore, log *zap.Logger) *Recorder {
	return &Recorder{
		store:   store,
		twchart: noopTWChartClient{},
		log:     log.Named("recorder"),
		now:     time.Now,
	}
}

// UploadTo sends every shot to the TWChart server at addr
func (r *Recorder) UploadTo(addr string) {
	if addr == "" {
		r.twchart = noopTWChartClient{}
		return
	}
	r.twchart = twchart.NewClient(addr)
}

// OnShot registers f to be called after each shot is recorded
func (r *Recorder) OnShot(f func(history.Shot)) {
	r.onShot = append(r.onShot, f)
}

// Run handles events until the channel is closed or ctx is done
func (r *Recorder) Run(ctx context.Context, events <-chan autobrew.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			r.Handle(ctx, e)
		}
	}
}

// Handle updates the current shot with e
func (r *Recorder) Handle(ctx context.Context, e autobrew.Event) {
	switch e.Kind {
	case autobrew.EventBoot:
		if r.current != nil {
			r.log.Warn("device restarted during a shot")
			r.current = nil
		}
	case autobrew.EventState:
		if e.State == autobrew.StateExtracting {
			r.current = &timeline{start: r.now(), startMillis: e.Millis}
		}
	case autobrew.EventStop:
		if r.current == nil {
			return
		}
		if e.Reason == autobrew.StopCancel {
			r.log.Info("shot cancelled", zap.Float32("weight", e.Weight))
			r.current = nil
			return
		}
		r.current.stop = &e
	case autobrew.EventShot:
		r.finish(ctx, e)
	}
}

func (r *Recorder) finish(ctx context.Context, e autobrew.Event) {
	t := r.current
	r.current = nil

	// started monitoring mid-shot
	if t == nil {
		elapsed := time.Duration(float64(e.Elapsed) * float64(time.Second))
		t = &timeline{start: r.now().Add(-elapsed), startMillis: e.Millis - uint32(elapsed/time.Millisecond)}
	}

	shot := history.Shot{
		CreatedAt: t.start,
		Target:    e.Target,
		Weight:    e.Weight,
		Elapsed:   e.Elapsed,
	}
	if t.stop != nil {
		shot.StopReason = t.stop.Reason.String()
		shot.StopWeight = t.stop.Weight
		shot.Predicted = t.stop.Predicted
	}

	if r.store != nil {
		if err := r.store.Add(&shot); err != nil {
			r.log.Error("failed to save shot", zap.Error(err))
		}
	}

	if err := r.upload(ctx, shot, t, e); err != nil {
		r.log.Error("failed to upload shot", zap.Error(err))
	}

	r.log.Info("recorded shot",
		zap.Uint("id", shot.ID),
		zap.Float32("weight", shot.Weight),
		zap.Float32("target", shot.Target),
		zap.Float32("overshoot", shot.Overshoot()),
	)

	for _, f := range r.onShot {
		f(shot)
	}
}

func (r *Recorder) upload(ctx context.Context, shot history.Shot, t *timeline, e autobrew.Event) error {
	_, err := r.twchart.CreateSession(ctx, fmt.Sprintf("Shot %.1fg", shot.Target), t.start)
	if err != nil {
		return err
	}

	err = r.twchart.AddStage(ctx, "Extraction", t.start)
	if err != nil {
		return err
	}

	var errs []error
	if t.stop != nil {
		stopAt := t.at(t.stop.Millis)
		errs = append(errs,
			r.twchart.AddEvent(ctx, fmt.Sprintf("%s stop at %.1fg, predicted +%.2fg", shot.StopReason, shot.StopWeight, shot.Predicted), stopAt),
			r.twchart.AddStage(ctx, "Drip", stopAt),
		)
	}

	end := t.at(e.Millis)
	errs = append(errs,
		r.twchart.AddEvent(ctx, fmt.Sprintf("final %.1fg in %.1fs", shot.Weight, shot.Elapsed), end),
		r.twchart.Done(ctx, end),
	)

	return errors.Join(errs...)
}
