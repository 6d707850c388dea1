//go:build withcv
// +build withcv

/*
DESCRIPTION
  local.go provides the LocalDetector, which finds small surface defects
  such as dents and spots in the middle of a capsule by comparing it with a
  median blurred copy of itself.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"image/color"

	"github.com/ausocean/aoi/config"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// LocalResult is the outcome of local defect detection on one capsule.
type LocalResult struct {
	MaxLength float64 // Perimeter of the longest defect contour, 0 if none.

	// Overlay is the inspected window with the longest defect drawn on it.
	// It is nil unless drawing is enabled, and must then be closed.
	Overlay *gocv.Mat
}

// LocalDetector detects surface defects in capsule crops.
type LocalDetector struct {
	threshold float32
	blur      int
	long      float64
	short     float64
	draw      bool
}

// NewLocalDetector returns a LocalDetector using the local detection fields
// of c.
func NewLocalDetector(c config.Config) *LocalDetector {
	return &LocalDetector{
		threshold: float32(c.LocalThreshold),
		blur:      int(c.LocalBlur),
		long:      c.LocalWindowLong,
		short:     c.LocalWindowShort,
		draw:      c.LocalDraw,
	}
}

var overlayColour = color.RGBA{0, 0, 255, 0}

// Detect returns the longest defect in the central window of the upright
// capsule crop raw, masked by mask. length and width are the capsule's
// dimensions in pixels.
func (d *LocalDetector) Detect(raw, mask gocv.Mat, length, width float64) (LocalResult, error) {
	if raw.Empty() || mask.Empty() {
		return LocalResult{}, errors.Wrap(ErrInvalidFrame, "empty capsule crop")
	}

	masked := gocv.NewMat()
	defer masked.Close()
	raw.CopyToWithMask(&masked, mask)

	win := window(masked.Cols(), masked.Rows(), d.long*length, d.short*width)
	if win.Empty() {
		return LocalResult{}, errors.Wrapf(ErrInvalidGeometry, "empty defect window for %.1fx%.1f capsule", length, width)
	}
	reg := masked.Region(win)
	defer reg.Close()
	roi := reg.Clone()
	defer roi.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.MedianBlur(roi, &blurred, d.blur)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(roi, blurred, &diff)
	if diff.Channels() == 3 {
		gocv.CvtColor(diff, &diff, gocv.ColorBGRToGray)
	}
	gocv.Threshold(diff, &diff, d.threshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(diff, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	var res LocalResult
	longest := -1
	for i := 0; i < contours.Size(); i++ {
		l := gocv.ArcLength(contours.At(i), true)
		if l > res.MaxLength {
			res.MaxLength, longest = l, i
		}
	}

	if d.draw {
		ov := roi.Clone()
		if longest >= 0 {
			gocv.DrawContours(&ov, contours, longest, overlayColour, 1)
		}
		res.Overlay = &ov
	}
	return res, nil
}
