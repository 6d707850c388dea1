/*
DESCRIPTION
  gpio.go provides a Relay for a single relay module wired to a GPIO pin.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package relay

import (
	"fmt"
	"sync"

	"github.com/ausocean/utils/logging"
	"github.com/kidoman/embd"
)

// digitalPin is the part of embd.DigitalPin used by GPIO.
type digitalPin interface {
	Write(val int) error
	Close() error
}

// GPIO drives one relay channel from a GPIO pin. The embd host driver must
// be registered by the importing program, e.g. github.com/kidoman/embd/host/rpi.
type GPIO struct {
	log       logging.Logger
	channel   int
	activeLow bool
	closeHost func() error

	mu  sync.Mutex
	pin digitalPin
}

// NewGPIO initialises GPIO and configures pin as an output for relay channel
// ch, leaving the relay released.
func NewGPIO(pin, ch int, activeLow bool, l logging.Logger) (*GPIO, error) {
	err := embd.InitGPIO()
	if err != nil {
		return nil, &HardwareError{Op: "init", Channel: ch, Err: err}
	}
	p, err := embd.NewDigitalPin(pin)
	if err != nil {
		embd.CloseGPIO()
		return nil, &HardwareError{Op: "open", Channel: ch, Err: fmt.Errorf("pin %d: %w", pin, err)}
	}
	err = p.SetDirection(embd.Out)
	if err != nil {
		p.Close()
		embd.CloseGPIO()
		return nil, &HardwareError{Op: "open", Channel: ch, Err: fmt.Errorf("pin %d direction: %w", pin, err)}
	}
	g := newGPIO(p, ch, activeLow, l)
	g.closeHost = embd.CloseGPIO
	err = g.TurnOff(ch)
	if err != nil {
		g.Close()
		return nil, err
	}
	l.Info("opened relay pin", "pin", pin, "channel", ch, "activeLow", activeLow)
	return g, nil
}

func newGPIO(p digitalPin, ch int, activeLow bool, l logging.Logger) *GPIO {
	return &GPIO{log: l, channel: ch, activeLow: activeLow, pin: p}
}

// TurnOn energises the relay.
func (g *GPIO) TurnOn(ch int) error { return g.set("on", ch, true) }

// TurnOff releases the relay.
func (g *GPIO) TurnOff(ch int) error { return g.set("off", ch, false) }

func (g *GPIO) set(op string, ch int, on bool) error {
	if ch != g.channel {
		return &HardwareError{Op: op, Channel: ch, Err: fmt.Errorf("no pin for channel, have %d", g.channel)}
	}
	lvl := embd.Low
	if on != g.activeLow {
		lvl = embd.High
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pin == nil {
		return &HardwareError{Op: op, Channel: ch, Err: fmt.Errorf("pin closed")}
	}
	err := g.pin.Write(lvl)
	if err != nil {
		return &HardwareError{Op: op, Channel: ch, Err: err}
	}
	g.log.Debug("relay switched", "op", op, "channel", ch, "level", lvl)
	return nil
}

// Close releases the pin and the GPIO driver.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pin == nil {
		return nil
	}
	err := g.pin.Close()
	g.pin = nil
	if g.closeHost != nil {
		if herr := g.closeHost(); err == nil {
			err = herr
		}
	}
	if err != nil {
		return &HardwareError{Op: "close", Channel: g.channel, Err: err}
	}
	return nil
}
