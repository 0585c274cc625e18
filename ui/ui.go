// Package ui is a desktop panel that mirrors the scale's screen and drives it over the serial console
package ui

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/history"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

const maxLogLines = 50

var extractingColor = color.RGBA{R: 139, G: 0, B: 0, A: 255}

type Panel struct {
	ctrl *controllerWrapper

	mtx    sync.Mutex
	status status
	logs   []string
	shots  []string

	// nil until Show
	window     fyne.Window
	stateLabel *widget.Label
	weight     *canvas.Text
	target     *widget.Label
	predicted  *widget.Label
	message    *widget.Label
	button     *widget.Button
	shotTimer  *timer
	logContent *widget.Label
	shotList   *widget.Label
}

func NewPanel(sender Sender) *Panel {
	return &Panel{ctrl: &controllerWrapper{sender: sender}}
}

// Handle updates the panel from a device event. It is safe to call from any goroutine
func (p *Panel) Handle(e autobrew.Event) {
	p.mtx.Lock()
	prev := p.status
	p.status = p.status.apply(e)
	s := p.status
	if e.Kind != autobrew.EventSample {
		p.logs = appendLimited(p.logs, e.String())
	}
	shown := p.window != nil
	p.mtx.Unlock()

	if !shown {
		return
	}

	if s.state == autobrew.StateExtracting && prev.state != autobrew.StateExtracting {
		p.shotTimer.Start(time.Now())
	}
	if e.Kind == autobrew.EventStop || e.Kind == autobrew.EventShot {
		p.shotTimer.Freeze(time.Duration(float64(e.Elapsed) * float64(time.Second)))
	}

	fyne.Do(p.refresh)
}

// AddShot lists a recorded shot
func (p *Panel) AddShot(s history.Shot) {
	line := fmt.Sprintf("%s  %.1fg / %.1fg  %.1fs  overshoot %+.1fg",
		s.CreatedAt.Format("15:04"), s.Weight, s.Target, s.Elapsed, s.Overshoot())

	p.mtx.Lock()
	p.shots = appendLimited(p.shots, line)
	shown := p.window != nil
	p.mtx.Unlock()

	if shown {
		fyne.Do(p.refresh)
	}
}

func appendLimited(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func (p *Panel) showError(err error) {
	if err == nil {
		return
	}
	p.Handle(autobrew.Event{Kind: autobrew.EventError, Message: err.Error()})
}

// refresh must run on the fyne goroutine
func (p *Panel) refresh() {
	p.mtx.Lock()
	s := p.status
	logs := strings.Join(p.logs, "\n")
	shots := strings.Join(p.shots, "\n")
	p.mtx.Unlock()

	p.stateLabel.SetText(s.stateText())
	p.button.SetText(s.buttonText())
	p.target.SetText(fmt.Sprintf("Target: %.1fg", s.target))
	p.predicted.SetText(fmt.Sprintf("Predicted: +%.2fg", s.predicted))
	p.message.SetText(s.message)
	p.logContent.SetText(logs)
	p.shotList.SetText(shots)

	p.weight.Text = fmt.Sprintf("%.1fg", s.weight)
	p.weight.Color = nil
	if s.state == autobrew.StateExtracting {
		p.weight.Color = extractingColor
	}
	p.weight.Refresh()
}

func (p *Panel) createTargetControls() *fyne.Container {
	step := func(n int) func() {
		return func() { p.showError(p.ctrl.Step(n)) }
	}

	targetEntry := widget.NewEntry()
	targetEntry.SetPlaceHolder("grams")
	targetEntry.OnSubmitted = func(s string) {
		targetEntry.SetText("")

		grams, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			p.showError(fmt.Errorf("invalid target %q", s))
			return
		}
		p.showError(p.ctrl.SetTarget(grams))
	}

	setButton := widget.NewButton("Set", func() {
		targetEntry.OnSubmitted(targetEntry.Text)
	})

	return container.NewVBox(
		container.NewGridWithColumns(4,
			widget.NewButton("-1g", step(-10)),
			widget.NewButton("-0.1g", step(-1)),
			widget.NewButton("+0.1g", step(1)),
			widget.NewButton("+1g", step(10)),
		),
		container.NewBorder(nil, nil, nil, setButton, targetEntry),
	)
}

// Show opens the panel window. It must be called on the fyne goroutine
func (p *Panel) Show(app fyne.App, onClose func()) {
	window := app.NewWindow("Autobrew")

	p.stateLabel = widget.NewLabel("")
	p.weight = canvas.NewText("", nil)
	p.weight.TextSize = 48
	p.weight.TextStyle = fyne.TextStyle{Bold: true}
	p.target = widget.NewLabel("")
	p.predicted = widget.NewLabel("")
	p.message = widget.NewLabel("")
	p.shotTimer = newTimer()
	p.shotTimer.text.TextSize = 32

	p.button = widget.NewButton("", func() {
		p.showError(p.ctrl.Press())
	})

	p.logContent = widget.NewLabel("")
	logScroll := container.NewVScroll(p.logContent)
	logScroll.SetMinSize(fyne.NewSize(300, 100))

	p.shotList = widget.NewLabel("")
	shotScroll := container.NewVScroll(p.shotList)
	shotScroll.SetMinSize(fyne.NewSize(300, 100))

	content := container.NewVBox(
		container.NewHBox(
			p.stateLabel,
			layout.NewSpacer(),
			p.target,
		),
		container.NewHBox(
			container.NewPadded(p.weight),
			layout.NewSpacer(),
			container.NewPadded(p.shotTimer.text),
		),
		p.predicted,
		p.button,
		p.createTargetControls(),
		container.NewGridWithColumns(3,
			widget.NewButton("Tare", func() { p.showError(p.ctrl.Tare()) }),
			widget.NewButton("Tune", func() { p.showError(p.ctrl.Tune()) }),
			widget.NewButton("Apply Gain", func() { p.showError(p.ctrl.ApplySuggestedGain()) }),
		),
		p.message,
		widget.NewAccordion(
			widget.NewAccordionItem("Shots", shotScroll),
			widget.NewAccordionItem("Events", logScroll),
		),
	)

	window.SetCloseIntercept(func() {
		p.shotTimer.Stop()
		window.Close()
		if onClose != nil {
			onClose()
		}
	})

	window.SetContent(content)
	window.Resize(fyne.NewSize(360, 480))

	p.mtx.Lock()
	p.window = window
	p.mtx.Unlock()

	p.shotTimer.Go()
	p.refresh()
	window.Show()
}
