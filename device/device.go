/*
DESCRIPTION
  device.go provides FrameSource, an interface that describes a configurable
  camera that can be started and stopped from which frames may be obtained,
  and the Frame type it produces.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package device provides an interface and implementations for cameras
// that can be started and stopped from which frames can be obtained.
package device

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/ausocean/aoi/config"
)

// Frame is one captured image. Pix holds Height rows of Width pixels, each
// of Channels bytes; three channel frames are in BGR order.
type Frame struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
	Time     time.Time // Grab time.
	Index    uint64    // Sequence number assigned by the source.
}

// FrameSource describes a configurable camera from which frames can be
// obtained.
type FrameSource interface {
	// Name returns the name of the FrameSource.
	Name() string

	// Set allows for configuration of the FrameSource using a Config struct.
	// An implementation should specify what fields are considered.
	Set(c config.Config) error

	// Start will start the FrameSource capturing; after which the Read method
	// may be called to obtain frames.
	Start() error

	// Read blocks until the next frame is available or ctx is done. io.EOF
	// is returned when a finite source is exhausted.
	Read(ctx context.Context) (Frame, error)

	// Stop will stop the FrameSource from capturing. From this point Reads
	// will no longer be successful.
	Stop() error

	// IsRunning is used to determine if the device is running.
	IsRunning() bool
}

// MultiError implements the built in error interface. MultiError is used here
// to collect multi errors during validation of configuration parameters for
// FrameSources.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("device: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// CentreROI returns the w by h rectangle centred in a frame of size fw by fh.
// A zero w or h, or one larger than the frame, selects the full extent.
func CentreROI(fw, fh, w, h int) image.Rectangle {
	if w <= 0 || w > fw {
		w = fw
	}
	if h <= 0 || h > fh {
		h = fh
	}
	x := (fw - w) / 2
	y := (fh - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// FromImage converts img to a Frame. Gray images produce single channel
// frames, everything else is converted to BGR.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := img.(*image.Gray); ok {
		pix := make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], g.Pix[(y+b.Min.Y-g.Rect.Min.Y)*g.Stride+(b.Min.X-g.Rect.Min.X):])
		}
		return Frame{Pix: pix, Width: w, Height: h, Channels: 1}
	}

	pix := make([]byte, w*h*3)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pix[i], pix[i+1], pix[i+2] = c.B, c.G, c.R
			i += 3
		}
	}
	return Frame{Pix: pix, Width: w, Height: h, Channels: 3}
}
