// Package display renders the controller views on the 128x64 OLED
package display

import (
	"image/color"
	"strconv"
	"time"

	"github.com/calvinmclean/autobrew/brew"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/freesans"
)

// Screen is a buffered monochrome display. *ssd1306.Device satisfies it
type Screen interface {
	drivers.Displayer
	ClearBuffer()
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

const (
	textBaseline = 24
	monoBaseline = 14
)

// Presenter draws every view from scratch and flushes the frame once
type Presenter struct {
	screen Screen
	frame  Frame
}

var _ brew.Presenter = &Presenter{}

func New(screen Screen) *Presenter {
	return &Presenter{screen: screen}
}

func (p *Presenter) ShowPreExtraction(v brew.PreExtractionView) error {
	p.frame.PreExtraction(v)
	return p.draw(&freesans.Regular9pt7b, textBaseline)
}

func (p *Presenter) ShowExtraction(v brew.ExtractionView) error {
	p.frame.Extraction(v)
	return p.draw(&freesans.Regular9pt7b, textBaseline)
}

func (p *Presenter) ShowPostExtraction(v brew.PostExtractionView) error {
	p.frame.PostExtraction(v)
	return p.draw(&freesans.Bold9pt7b, textBaseline)
}

func (p *Presenter) ShowTuneOvershoot(v brew.TuneView) error {
	p.frame.TuneOvershoot(v)
	return p.draw(&freemono.Regular9pt7b, monoBaseline)
}

func (p *Presenter) draw(font *tinyfont.Font, baseline int16) error {
	p.screen.ClearBuffer()

	y := baseline
	for i := range p.frame.Len() {
		tinyfont.WriteLineRunes(p.screen, font, 0, y, p.frame.Line(i), white)
		y += int16(font.YAdvance)
	}

	return p.screen.Display()
}

const (
	maxLines  = 3
	lineRunes = 24
)

// Frame is the text of one view. Lines are built in fixed buffers so a redraw does not allocate.
// Text past lineRunes is cut off
type Frame struct {
	lines [maxLines][lineRunes]rune
	lens  [maxLines]int
	n     int
}

func (f *Frame) Len() int {
	return f.n
}

func (f *Frame) Line(i int) []rune {
	return f.lines[i][:f.lens[i]]
}

// Strings copies the lines out
func (f *Frame) Strings() []string {
	out := make([]string, f.n)
	for i := range out {
		out[i] = string(f.Line(i))
	}
	return out
}

// PreExtraction shows the target and the last shot
func (f *Frame) PreExtraction(v brew.PreExtractionView) {
	f.n = 0
	f.line().text("Target: ").grams(v.Target)
	f.line().decimal(v.PreviousWeight).text("   ").decimal(v.PreviousTime)
}

func (f *Frame) Extraction(v brew.ExtractionView) {
	f.n = 0
	f.line().decimal(v.Elapsed).text("s")
	f.line().text("Weight: ").decimal(v.Weight)
}

// PostExtraction shows this shot on top of the one before it
func (f *Frame) PostExtraction(v brew.PostExtractionView) {
	f.n = 0
	f.line().grams(v.Weight).text("     ").decimal(v.Elapsed).text("s")
	f.line().decimal(v.PreviousWeight).text("     ").decimal(v.PreviousTime)
}

// TuneOvershoot fits 11 monospace characters per line
func (f *Frame) TuneOvershoot(v brew.TuneView) {
	f.n = 0
	f.line().text("gain ").duration(v.Gain)
	if !v.Measured {
		f.line().text("no shot yet")
		return
	}

	f.line().text("over ")
	if v.Overshoot >= 0 {
		f.text("+")
	}
	f.decimal(v.Overshoot).text("g")

	if v.Suggested > 0 {
		f.line().text("sugg ").duration(v.Suggested)
	} else {
		f.line().text("sugg -")
	}
}

// line starts the next line. Once every line is used it keeps writing to the last one
func (f *Frame) line() *Frame {
	if f.n < maxLines {
		f.lens[f.n] = 0
		f.n++
	}
	return f
}

func (f *Frame) text(s string) *Frame {
	i := f.n - 1
	for _, r := range s {
		if f.lens[i] == lineRunes {
			break
		}
		f.lines[i][f.lens[i]] = r
		f.lens[i]++
	}
	return f
}

func (f *Frame) ascii(b []byte) *Frame {
	i := f.n - 1
	for _, c := range b {
		if f.lens[i] == lineRunes {
			break
		}
		f.lines[i][f.lens[i]] = rune(c)
		f.lens[i]++
	}
	return f
}

func (f *Frame) decimal(v float32) *Frame {
	var buf [16]byte
	return f.ascii(strconv.AppendFloat(buf[:0], float64(v), 'f', 1, 32))
}

func (f *Frame) grams(v float32) *Frame {
	return f.decimal(v).text("g")
}

func (f *Frame) duration(d time.Duration) *Frame {
	var buf [16]byte
	return f.ascii(strconv.AppendFloat(buf[:0], d.Seconds(), 'f', 2, 64)).text("s")
}
