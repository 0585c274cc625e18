package ui

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/calvinmclean/autobrew/config"
	"github.com/calvinmclean/autobrew/monitor"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
)

// ConfigWindow asks for the connection settings when none are configured
type ConfigWindow struct {
	app      fyne.App
	OnSubmit func(*config.Config)
}

func NewConfigWindow(app fyne.App) *ConfigWindow {
	return &ConfigWindow{
		app: app,
	}
}

type configForm struct {
	port        string
	baudRate    string
	twchartAddr string
	historyPath string
}

func newConfigForm(cfg *config.Config) *configForm {
	return &configForm{
		port:        cfg.Serial.Port,
		baudRate:    strconv.Itoa(cfg.Serial.BaudRate),
		twchartAddr: cfg.TWChart.Address,
		historyPath: cfg.History.Path,
	}
}

func (f *configForm) valid() bool {
	baud, err := strconv.Atoi(f.baudRate)
	return f.port != "" && err == nil && baud > 0
}

func (f *configForm) apply(cfg *config.Config) error {
	baud, err := strconv.Atoi(f.baudRate)
	if err != nil || baud <= 0 {
		return fmt.Errorf("invalid baud rate %q", f.baudRate)
	}
	cfg.Serial.Port = f.port
	cfg.Serial.BaudRate = baud
	cfg.TWChart.Address = f.twchartAddr
	cfg.History.Path = f.historyPath
	return nil
}

func (cw *ConfigWindow) Show(cfg *config.Config) {
	window := cw.app.NewWindow("Autobrew - Configuration")
	window.Resize(fyne.NewSize(400, 250))
	window.SetCloseIntercept(func() {
		// Treat window close as cancel
		window.Close()
		cw.app.Quit()
	})
	window.Show()

	serialPorts, err := monitor.Ports()
	if err != nil && !errors.Is(err, monitor.ErrNoUSBSerial) {
		ShowError(cw.app, window, fmt.Errorf("error getting serial ports: %w", err))
		return
	}

	form := newConfigForm(cfg)
	if form.port == "" && len(serialPorts) > 0 {
		form.port = serialPorts[0]
	}

	serialEntry := widget.NewSelect(serialPorts, nil)
	serialEntry.Bind(binding.BindString(&form.port))

	baudRateEntry := widget.NewEntry()
	baudRateEntry.Bind(binding.BindString(&form.baudRate))

	twchartAddrEntry := widget.NewEntry()
	twchartAddrEntry.SetPlaceHolder("optional")
	twchartAddrEntry.Bind(binding.BindString(&form.twchartAddr))

	historyEntry := widget.NewEntry()
	historyEntry.SetPlaceHolder("optional")
	historyEntry.Bind(binding.BindString(&form.historyPath))

	submitButton := widget.NewButton("Connect", func() {
		if err := form.apply(cfg); err != nil {
			dialog.ShowError(err, window)
			return
		}
		window.Close()
		cw.OnSubmit(cfg)
	})
	submitButton.Disable()

	validateForm := func() {
		if form.valid() {
			submitButton.Enable()
		} else {
			submitButton.Disable()
		}
	}

	serialEntry.OnChanged = func(_ string) { validateForm() }
	baudRateEntry.OnChanged = func(_ string) { validateForm() }

	validateForm()

	content := container.NewVBox(
		widget.NewCard("Configuration", "", container.NewVBox(
			container.NewGridWithColumns(2,
				widget.NewLabel("Serial Port:"),
				serialEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("Baud Rate:"),
				baudRateEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("TWChart Address:"),
				twchartAddrEntry,
			),
			container.NewGridWithColumns(2,
				widget.NewLabel("History Database:"),
				historyEntry,
			),
		)),
		container.NewHBox(
			widget.NewButton("Cancel", func() {
				window.Close()
				cw.app.Quit()
			}),
			submitButton,
		),
	)

	window.SetContent(content)
}

// ShowError shows err and quits when it is dismissed
func ShowError(app fyne.App, window fyne.Window, err error) {
	d := dialog.NewError(err, window)
	d.SetOnClosed(func() {
		app.Quit()
	})
	d.Show()
}
