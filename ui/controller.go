package ui

import (
	"github.com/calvinmclean/autobrew/monitor"
)

// Sender sends console commands to the device
type Sender interface {
	Send(cmd string) error
}

type controllerWrapper struct {
	sender Sender
}

func (c *controllerWrapper) Press() error {
	return c.sender.Send(monitor.CommandPress)
}

func (c *controllerWrapper) Step(n int) error {
	if n == 0 {
		return nil
	}
	return c.sender.Send(monitor.CommandSteps(n))
}

func (c *controllerWrapper) SetTarget(grams int) error {
	cmd, err := monitor.CommandSetTarget(grams)
	if err != nil {
		return err
	}
	return c.sender.Send(cmd)
}

func (c *controllerWrapper) Tare() error {
	return c.sender.Send(monitor.CommandTare)
}

func (c *controllerWrapper) Tune() error {
	return c.sender.Send(monitor.CommandTune)
}

func (c *controllerWrapper) ApplySuggestedGain() error {
	return c.sender.Send(monitor.CommandApply)
}
