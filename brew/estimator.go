package brew

import (
	"time"

	"github.com/chewxy/math32"
)

// Sample is a weight reading and the time it was taken
type Sample struct {
	Weight float32
	At     time.Duration
}

const windowSize = 2

// Estimator predicts how much more weight lands on the scale if the pump stops now. It keeps the two most
// recent accepted samples and extrapolates their mass rate over a lookahead horizon (the gain).
type Estimator struct {
	window   [windowSize]Sample
	n        int
	interval time.Duration
}

// NewEstimator accepts at most one sample per interval
func NewEstimator(interval time.Duration) Estimator {
	return Estimator{interval: interval}
}

// Sample records a reading. It returns false when the reading came too soon after the last accepted one
func (e *Estimator) Sample(weight float32, at time.Duration) bool {
	if e.n > 0 && at-e.window[e.n-1].At < e.interval {
		return false
	}

	s := Sample{Weight: weight, At: at}
	if e.n == windowSize {
		// evict the oldest
		copy(e.window[:], e.window[1:])
		e.window[windowSize-1] = s
		return true
	}

	e.window[e.n] = s
	e.n++
	return true
}

// Len is the number of samples held
func (e *Estimator) Len() int {
	return e.n
}

// Reset drops all samples so a new shot does not see the previous one
func (e *Estimator) Reset() {
	e.n = 0
	e.window = [windowSize]Sample{}
}

// Rate returns the mass rate in grams per second between the two held samples, or 0 until the window is full
func (e *Estimator) Rate() float32 {
	if e.n < windowSize {
		return 0
	}

	oldest, newest := e.window[0], e.window[windowSize-1]
	dt := newest.At - oldest.At
	if dt <= 0 {
		return 0
	}

	rate := (newest.Weight - oldest.Weight) / seconds(dt)
	if math32.IsNaN(rate) || math32.IsInf(rate, 0) {
		return 0
	}
	return rate
}

// Estimate returns the predicted extra mass in grams. It is 0 until two samples are held and never negative
func (e *Estimator) Estimate(gain time.Duration) float32 {
	return math32.Max(0, e.Rate()*seconds(gain))
}
