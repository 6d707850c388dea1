/*
DESCRIPTION
  relay.go provides the Relay interface used to drive the capsule ejector,
  a hardware error type and a constructor selecting an implementation from
  a config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package relay provides relay boards that switch the pneumatic ejector.
package relay

import (
	"fmt"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/utils/logging"
)

// Relay switches numbered relay channels. TurnOn and TurnOff must be
// idempotent.
type Relay interface {
	TurnOn(ch int) error
	TurnOff(ch int) error

	// Close releases the underlying device. It does not change the state of
	// any channel.
	Close() error
}

// HardwareError is returned when a relay could not be switched.
type HardwareError struct {
	Op      string
	Channel int
	Err     error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("relay %s channel %d: %v", e.Op, e.Channel, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// New returns the Relay selected by c.Relay.
func New(c config.Config) (Relay, error) {
	switch c.Relay {
	case config.RelayHID:
		return NewHID(c.RelayPath, c.Logger)
	case config.RelayGPIO:
		return NewGPIO(int(c.RelayPin), int(c.RelayChannel), c.RelayActiveLow, c.Logger)
	case config.RelayNone:
		return NewNoOp(c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown relay type: %d", c.Relay)
	}
}

// NoOp is a Relay that only logs. It is used when no ejector is fitted.
type NoOp struct {
	log logging.Logger
}

// NewNoOp returns a new NoOp relay.
func NewNoOp(l logging.Logger) *NoOp { return &NoOp{log: l} }

func (n *NoOp) TurnOn(ch int) error {
	n.log.Debug("relay on", "channel", ch)
	return nil
}

func (n *NoOp) TurnOff(ch int) error {
	n.log.Debug("relay off", "channel", ch)
	return nil
}

func (n *NoOp) Close() error { return nil }
