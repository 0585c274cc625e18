package ui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// timer counts up while a shot runs. The device's own elapsed time replaces the local count when the shot stops
type timer struct {
	mtx       *sync.Mutex
	startTime time.Time
	running   bool
	frozen    time.Duration
	text      *canvas.Text
	stop      chan struct{}
}

func newTimer() *timer {
	return &timer{
		mtx:  &sync.Mutex{},
		text: canvas.NewText(formatElapsed(0), nil),
		stop: make(chan struct{}),
	}
}

func (t *timer) Start(start time.Time) {
	t.mtx.Lock()
	t.startTime = start
	t.running = true
	t.mtx.Unlock()
}

func (t *timer) Freeze(elapsed time.Duration) {
	t.mtx.Lock()
	t.running = false
	t.frozen = elapsed
	t.mtx.Unlock()
}

func (t *timer) Stop() {
	close(t.stop)
}

func (t *timer) elapsed(now time.Time) time.Duration {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	if t.running {
		return now.Sub(t.startTime)
	}
	return t.frozen
}

func (t *timer) Go() {
	go func() {
		ticker := time.NewTicker(64 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case now := <-ticker.C:
				text := formatElapsed(t.elapsed(now))
				fyne.Do(func() {
					t.text.Text = text
					t.text.Refresh()
				})
			}
		}
	}()
}

func formatElapsed(elapsed time.Duration) string {
	seconds := int(elapsed.Seconds())
	tenths := int(elapsed.Milliseconds()/100) % 10
	return fmt.Sprintf("%02d.%ds", seconds, tenths)
}
