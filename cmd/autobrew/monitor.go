package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/calvinmclean/autobrew"
	"github.com/calvinmclean/autobrew/config"
	"github.com/calvinmclean/autobrew/logging"
	"github.com/calvinmclean/autobrew/monitor"
	"github.com/calvinmclean/autobrew/ui"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	monitorUI bool
	configure bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow the scale over USB serial and record shots",
	Long: `Connect to the scale, log its events and record every completed shot to
the history database and TWChart when they are configured.

Lines typed on stdin are sent to the firmware console, for example "B" to
press the button or "t036" to set a 36g target.

Examples:
  # Log events from the default port
  autobrew monitor

  # Open the desktop panel and pick the port first
  autobrew monitor --ui --configure`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorUI, "ui", false, "show the desktop panel")
	monitorCmd.Flags().BoolVar(&configure, "configure", false, "edit the connection settings before connecting (with --ui)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if monitorUI {
		a.runUI(ctx)
		return nil
	}

	link := monitor.New(a.cfg.Serial.Port, a.cfg.Serial.BaudRate, a.log)
	if err := link.Connect(); err != nil {
		return err
	}
	defer link.Close()

	a.log.Info("connected", zap.String("port", a.cfg.Serial.Port))

	go forwardStdin(ctx, link, a.log)

	a.follow(ctx, link.Events(), a.newRecorder())
	return nil
}

// follow logs and records events until the link closes or ctx is done. Extra handlers get every event
func (a *app) follow(ctx context.Context, events <-chan autobrew.Event, r *monitor.Recorder, handlers ...func(autobrew.Event)) {
	eventLog := logging.NewEventLogger(a.log)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				a.log.Info("device disconnected")
				return
			}
			eventLog.Log(e)
			r.Handle(ctx, e)
			for _, h := range handlers {
				h(e)
			}
		}
	}
}

func forwardStdin(ctx context.Context, link monitor.Link, log *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := link.Send(line); err != nil {
			log.Warn("failed to send command", zap.Error(err))
		}
	}
}

func (a *app) runUI(ctx context.Context) {
	application := fyneapp.New()

	start := func(cfg *config.Config) {
		link := monitor.New(cfg.Serial.Port, cfg.Serial.BaudRate, a.log)
		if err := link.Connect(); err != nil {
			window := application.NewWindow("Autobrew")
			window.Show()
			ui.ShowError(application, window, err)
			return
		}

		panel := ui.NewPanel(link)
		panel.Show(application, application.Quit)

		r := a.newRecorder()
		r.OnShot(panel.AddShot)

		go func() {
			defer link.Close()
			a.follow(ctx, link.Events(), r, panel.Handle)
		}()
	}

	if configure {
		cw := ui.NewConfigWindow(application)
		cw.OnSubmit = func(cfg *config.Config) {
			if err := cfg.Save(configPath); err != nil {
				a.log.Warn("failed to save config", zap.Error(err))
			}
			start(cfg)
		}
		cw.Show(a.cfg)
	} else {
		start(a.cfg)
	}

	go func() {
		<-ctx.Done()
		fyne.Do(func() {
			application.Quit()
		})
	}()

	application.Run()
}
