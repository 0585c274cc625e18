package brew

import (
	"sync/atomic"
	"time"

	"github.com/calvinmclean/autobrew"
)

// maxTarget keeps the target displayable (999.9g)
const maxTarget int32 = 9999

// Input holds the values shared between the interrupt handlers and the control loop. Every field is a
// single atomic word and every read-modify-write is a compare-and-swap, so handlers may preempt the loop
// at any point. Handlers re-read the state on each call instead of caching it.
type Input struct {
	state atomic.Uint32
	// target is in tenths of a gram
	target   atomic.Int32
	adjusted atomic.Bool

	// elapsed is published by the control loop while extracting so a press can decide between
	// cancelling and finishing the shot
	elapsed atomic.Int64

	// lastPress is the time of the last accepted press, or -1 before the first
	lastPress atomic.Int64
	// settleUntil is when the drips of the last shot have landed. PostExtraction is held until then
	settleUntil atomic.Int64

	// lastA is the previous level of encoder channel A. It idles high with the pull-up
	lastA atomic.Bool

	minExtraction time.Duration
	debounce      time.Duration
	dripDelay     time.Duration
}

func newInput(minExtraction, debounce, dripDelay time.Duration) *Input {
	i := &Input{
		minExtraction: minExtraction,
		debounce:      debounce,
		dripDelay:     dripDelay,
	}
	i.lastA.Store(true)
	i.lastPress.Store(-1)
	return i
}

// State returns the current extraction state
func (i *Input) State() autobrew.State {
	return autobrew.State(i.state.Load())
}

func (i *Input) swapState(from, to autobrew.State) bool {
	return i.state.CompareAndSwap(uint32(from), uint32(to))
}

// finish moves from Extracting to PostExtraction at now. The settle deadline is published first so a
// press can never see PostExtraction with the deadline of an earlier shot
func (i *Input) finish(now time.Duration) bool {
	if i.State() != autobrew.StateExtracting {
		return false
	}
	i.settleUntil.Store(int64(now + i.dripDelay))
	return i.swapState(autobrew.StateExtracting, autobrew.StatePostExtraction)
}

// settling reports whether the drips of the last shot are still landing at now
func (i *Input) settling(now time.Duration) bool {
	return now < time.Duration(i.settleUntil.Load())
}

// Target returns the target weight in grams
func (i *Input) Target() float32 {
	return FromTenths(i.target.Load())
}

// SetTarget sets the target weight. Like the encoder, it only has an effect in PreExtraction
func (i *Input) SetTarget(grams float32) bool {
	if i.State() != autobrew.StatePreExtraction {
		return false
	}

	t := Tenths(grams)
	if t < 0 || t > maxTarget {
		return false
	}
	i.target.Store(t)
	i.adjusted.Store(true)
	return true
}

// Rotate is called on every change of encoder channel A with the levels of both channels. A step is
// taken on the rising edge of A: B high means the knob turned down, B low means up.
func (i *Input) Rotate(aHigh, bHigh bool) {
	if i.State() != autobrew.StatePreExtraction {
		return
	}

	wasHigh := i.lastA.Swap(aHigh)
	if wasHigh || !aHigh {
		return
	}

	if bHigh {
		i.Step(-1)
	} else {
		i.Step(+1)
	}
}

// Step changes the target by n tenths of a gram, clamped to [0, 999.9]. It is ignored outside PreExtraction
func (i *Input) Step(n int32) {
	for {
		if i.State() != autobrew.StatePreExtraction {
			return
		}

		cur := i.target.Load()
		next := cur + n
		if next < 0 || next > maxTarget {
			return
		}
		if i.target.CompareAndSwap(cur, next) {
			i.adjusted.Store(true)
			return
		}
	}
}

// Press handles a button press at the given time since boot. It returns false when the press was
// debounced, or ignored because the drips of the last shot are still landing
func (i *Input) Press(now time.Duration) bool {
	last := i.lastPress.Load()
	if last >= 0 && now-time.Duration(last) < i.debounce {
		return false
	}

	cur := i.State()
	if cur == autobrew.StatePostExtraction && i.settling(now) {
		return false
	}

	// a press from the other context since the load above wins
	if !i.lastPress.CompareAndSwap(last, int64(now)) {
		return false
	}

	switch cur {
	case autobrew.StatePreExtraction:
		i.elapsed.Store(0)
		i.swapState(cur, autobrew.StateExtracting)
	case autobrew.StateExtracting:
		// an early press is treated as an accidental start
		if time.Duration(i.elapsed.Load()) < i.minExtraction {
			i.swapState(cur, autobrew.StatePreExtraction)
		} else {
			i.finish(now)
		}
	case autobrew.StatePostExtraction, autobrew.StateTuneOvershoot:
		i.swapState(cur, autobrew.StatePreExtraction)
	}
	return true
}

// RequestTune enters TuneOvershoot. It is only allowed from PreExtraction
func (i *Input) RequestTune() bool {
	return i.swapState(autobrew.StatePreExtraction, autobrew.StateTuneOvershoot)
}
