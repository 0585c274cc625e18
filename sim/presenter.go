package sim

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/brew"
	"github.com/calvinmclean/autobrew/display"
)

// TextPresenter prints the screen contents as a line whenever they change. A view that keeps changing,
// like the running shot, is printed at most once per Interval
type TextPresenter struct {
	w        io.Writer
	clock    brew.Clock
	Interval time.Duration

	frame   display.Frame
	last    autobrew.State
	lastAt  time.Duration
	printed string
}

var _ brew.Presenter = &TextPresenter{}

func NewTextPresenter(w io.Writer, clock brew.Clock) *TextPresenter {
	return &TextPresenter{w: w, clock: clock, Interval: time.Second, last: autobrew.State(255)}
}

func (p *TextPresenter) ShowPreExtraction(v brew.PreExtractionView) error {
	p.frame.PreExtraction(v)
	return p.show(autobrew.StatePreExtraction)
}

func (p *TextPresenter) ShowExtraction(v brew.ExtractionView) error {
	p.frame.Extraction(v)
	return p.show(autobrew.StateExtracting)
}

func (p *TextPresenter) ShowPostExtraction(v brew.PostExtractionView) error {
	p.frame.PostExtraction(v)
	return p.show(autobrew.StatePostExtraction)
}

func (p *TextPresenter) ShowTuneOvershoot(v brew.TuneView) error {
	p.frame.TuneOvershoot(v)
	return p.show(autobrew.StateTuneOvershoot)
}

func (p *TextPresenter) show(s autobrew.State) error {
	text := strings.Join(p.frame.Strings(), " | ")
	now := p.clock.Now()

	if text == p.printed {
		return nil
	}
	if s == p.last && now-p.lastAt < p.Interval {
		return nil
	}

	p.last = s
	p.lastAt = now
	p.printed = text

	_, err := fmt.Fprintf(p.w, "[%7.2fs] %-14s %s\n", now.Seconds(), s, text)
	return err
}
