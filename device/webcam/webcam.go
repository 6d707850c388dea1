//go:build withcv
// +build withcv

/*
DESCRIPTION
  webcam.go provides an implementation of FrameSource for cameras exposed as
  video devices, captured through OpenCV.

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
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/utils/logging"
	"gocv.io/x/gocv"
)

// Used to indicate package in logging.
const pkg = "webcam: "

// Configuration field errors.
var (
	errBadWidth  = errors.New("width larger than sensor")
	errBadHeight = errors.New("height larger than sensor")
)

// Webcam is an implementation of the FrameSource interface for a Webcam.
type Webcam struct {
	log logging.Logger

	mu        sync.Mutex
	cfg       config.Config
	cap       *gocv.VideoCapture
	img       gocv.Mat
	index     uint64
	isRunning bool
}

// New returns a new Webcam.
func New(l logging.Logger) *Webcam {
	return &Webcam{log: l}
}

// Name returns the name of the device.
func (w *Webcam) Name() string {
	return "Webcam"
}

// Set uses CameraIndex, Width and Height from c. Width and Height select a
// region at the centre of the sensor.
func (w *Webcam) Set(c config.Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg = c
	return nil
}

// Start opens the video device. If the configured region is larger than the
// sensor the device is released and an error returned.
func (w *Webcam) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	vc, err := gocv.OpenVideoCapture(int(w.cfg.CameraIndex))
	if err != nil {
		return fmt.Errorf("could not open video device %d: %w", w.cfg.CameraIndex, err)
	}
	w.cap = vc
	w.img = gocv.NewMat()

	var errs device.MultiError
	cw, ch := int(vc.Get(gocv.VideoCaptureFrameWidth)), int(vc.Get(gocv.VideoCaptureFrameHeight))
	if cw != 0 && int(w.cfg.Width) > cw {
		errs = append(errs, errBadWidth)
	}
	if ch != 0 && int(w.cfg.Height) > ch {
		errs = append(errs, errBadHeight)
	}
	if len(errs) != 0 {
		vc.Close()
		w.img.Close()
		return errs
	}
	w.isRunning = true
	w.log.Info(pkg+"started", "device", w.cfg.CameraIndex, "sensorWidth", cw, "sensorHeight", ch)
	return nil
}

// Stop releases the video device.
func (w *Webcam) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isRunning {
		return nil
	}
	w.isRunning = false
	err := w.cap.Close()
	w.img.Close()
	if err != nil {
		return fmt.Errorf("could not close video device: %w", err)
	}
	return nil
}

// Read grabs the next frame from the device.
func (w *Webcam) Read(ctx context.Context) (device.Frame, error) {
	if err := ctx.Err(); err != nil {
		return device.Frame{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isRunning {
		return device.Frame{}, errors.New("webcam not streaming")
	}
	if !w.cap.Read(&w.img) || w.img.Empty() {
		return device.Frame{}, errors.New("could not read frame from webcam")
	}
	grab := time.Now()

	roi := w.img.Region(device.CentreROI(w.img.Cols(), w.img.Rows(), int(w.cfg.Width), int(w.cfg.Height)))
	defer roi.Close()

	out := roi
	if roi.Channels() == 4 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(roi, &bgr, gocv.ColorBGRAToBGR)
		out = bgr
	}

	// Regions are not continuous so copy before taking the bytes.
	cont := out.Clone()
	defer cont.Close()

	f := device.Frame{
		Pix:      cont.ToBytes(),
		Width:    out.Cols(),
		Height:   out.Rows(),
		Channels: out.Channels(),
		Time:     grab,
		Index:    w.index,
	}
	w.index++
	return f, nil
}

// IsRunning is used to determine if the webcam is running.
func (w *Webcam) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}
