//go:build withcv
// +build withcv

/*
DESCRIPTION
  mask.go provides the Suppressor, which separates capsules from the belt
  and removes speckle noise to give a binary mask.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"image"

	"github.com/ausocean/aoi/config"
	"gocv.io/x/gocv"
)

// Suppressor turns raw frames into binary capsule masks.
type Suppressor struct {
	threshold float32
	median    int
	mode      uint8
	knl       gocv.Mat // Square structuring element for morphology.

	// Belt colour exclusion, used when bg is set.
	bg      bool
	bgLower gocv.Scalar
	bgUpper gocv.Scalar
}

// NewSuppressor returns a Suppressor using the mask fields of c, which are
// expected to have been validated.
func NewSuppressor(c config.Config) *Suppressor {
	k := int(c.MorphKernel)
	if k < 1 {
		k = 1
	}
	lo, hi := c.BackgroundLower, c.BackgroundUpper
	return &Suppressor{
		threshold: float32(c.MaskThreshold),
		median:    int(c.MaskMedianBlur),
		mode:      c.MorphMode,
		knl:       gocv.GetStructuringElement(gocv.MorphRect, image.Pt(k, k)),
		bg:        hi != [3]uint8{},
		bgLower:   gocv.NewScalar(float64(lo[0]), float64(lo[1]), float64(lo[2]), 0),
		bgUpper:   gocv.NewScalar(float64(hi[0]), float64(hi[1]), float64(hi[2]), 0),
	}
}

// Close frees resources used by gocv.
func (s *Suppressor) Close() error {
	return s.knl.Close()
}

// Mask returns the binary mask of raw, 255 where a capsule is. raw may be
// grayscale or BGR. An empty raw gives an empty mask. The caller owns the
// returned Mat.
func (s *Suppressor) Mask(raw gocv.Mat) gocv.Mat {
	mask := gocv.NewMat()
	if raw.Empty() {
		return mask
	}

	src := raw
	if s.bg && raw.Channels() == 3 {
		belt := gocv.NewMat()
		defer belt.Close()
		gocv.InRangeWithScalar(raw, s.bgLower, s.bgUpper, &belt)
		gocv.BitwiseNot(belt, &belt)

		// Pixels outside the copy mask are zero in a newly allocated Mat.
		fg := gocv.NewMat()
		defer fg.Close()
		raw.CopyToWithMask(&fg, belt)
		src = fg
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if src.Channels() == 3 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		src.CopyTo(&gray)
	}

	if s.median > 1 {
		blurred := gocv.NewMat()
		defer blurred.Close()
		gocv.MedianBlur(gray, &blurred, s.median)
		blurred.CopyTo(&gray)
	}

	gocv.Threshold(gray, &mask, s.threshold, 255, gocv.ThresholdBinary)

	// Join fragments of one capsule, then remove specks.
	if s.mode == config.MorphCloseOpen {
		gocv.MorphologyEx(mask, &mask, gocv.MorphClose, s.knl)
	}
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, s.knl)
	return mask
}
