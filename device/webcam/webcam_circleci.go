//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  Replaces the OpenCV webcam when building without the withcv tag, e.g. on
  Circle-CI which does not have a copy of Open CV installed.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package webcam provides an implementation of FrameSource for webcams.
package webcam

import (
	"context"
	"errors"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/utils/logging"
)

var errNoCV = errors.New("webcam input requires a build with the withcv tag")

// Webcam is a FrameSource that can never be started.
type Webcam struct{}

// New returns a new Webcam.
func New(l logging.Logger) *Webcam { return &Webcam{} }

// Name returns the name of the device.
func (w *Webcam) Name() string { return "Webcam" }

// Set does nothing.
func (w *Webcam) Set(c config.Config) error { return nil }

// Start always fails since there is no capture support in this build.
func (w *Webcam) Start() error { return errNoCV }

// Stop does nothing.
func (w *Webcam) Stop() error { return nil }

// IsRunning always returns false.
func (w *Webcam) IsRunning() bool { return false }

// Read always fails since there is no capture support in this build.
func (w *Webcam) Read(ctx context.Context) (device.Frame, error) { return device.Frame{}, errNoCV }
