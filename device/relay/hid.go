/*
DESCRIPTION
  hid.go provides a Relay for USB HID relay boards (vendor 0x16c0, product
  0x05df) accessed through a Linux hidraw device node.

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
	"io"
	"os"
	"sync"

	"github.com/ausocean/utils/logging"
)

// Relay board command values.
const (
	hidOn  = 0xff
	hidOff = 0xfd
)

// The board expects an 8 byte output report preceded by report ID 0.
const hidReportLen = 9

// HID drives a USB HID relay board.
type HID struct {
	log  logging.Logger
	path string

	mu sync.Mutex
	w  io.WriteCloser
}

// NewHID opens the hidraw device at path.
func NewHID(path string, l logging.Logger) (*HID, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, &HardwareError{Op: "open", Err: fmt.Errorf("could not open %s: %w", path, err)}
	}
	l.Info("opened relay board", "path", path)
	return &HID{log: l, path: path, w: f}, nil
}

// TurnOn energises relay channel ch.
func (h *HID) TurnOn(ch int) error { return h.set("on", ch, hidOn) }

// TurnOff releases relay channel ch.
func (h *HID) TurnOff(ch int) error { return h.set("off", ch, hidOff) }

func (h *HID) set(op string, ch int, v byte) error {
	if ch < 1 || ch > 8 {
		return &HardwareError{Op: op, Channel: ch, Err: fmt.Errorf("channel out of range")}
	}

	report := make([]byte, hidReportLen)
	report[1] = v
	report[2] = byte(ch)
	report[3] = 1

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.w == nil {
		return &HardwareError{Op: op, Channel: ch, Err: os.ErrClosed}
	}
	_, err := h.w.Write(report)
	if err != nil {
		return &HardwareError{Op: op, Channel: ch, Err: err}
	}
	h.log.Debug("relay switched", "op", op, "channel", ch)
	return nil
}

// Close closes the hidraw device.
func (h *HID) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.w == nil {
		return nil
	}
	err := h.w.Close()
	h.w = nil
	if err != nil {
		return &HardwareError{Op: "close", Err: err}
	}
	return nil
}
