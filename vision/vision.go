/*
DESCRIPTION
  vision.go provides the errors, geometry and result types shared by the
  capsule vision pipeline. The pipeline itself needs OpenCV and is built with
  the withcv tag.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vision segments capsules from frames of the inspection camera,
// measures them and compares them against a reference capsule.
//
// A frame is processed in stages: the Suppressor turns the raw frame into a
// binary mask, the Extractor finds capsule contours in the mask and cuts an
// oriented crop of each capsule out of the frame and the mask, the Template
// scores each crop's silhouette, and the LocalDetector looks for surface
// defects in the middle of the capsule. The Inspector runs all stages and
// hands the measurements to a classify.Classifier.
package vision

import (
	"image"
	"math"

	"github.com/ausocean/aoi/classify"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidGeometry is returned for crops that are not four cornered or
	// have no area.
	ErrInvalidGeometry = errors.New("invalid crop geometry")

	// ErrInvalidFrame is returned for frames whose pixel data does not match
	// their dimensions.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrMissingReferenceTemplate is returned when the reference capsule mask
	// cannot be loaded or holds no capsule.
	ErrMissingReferenceTemplate = errors.New("missing reference template")

	// ErrNoContourFound is returned when a slice of a capsule crop holds no
	// contour, so its similarity cannot be measured.
	ErrNoContourFound = errors.New("no contour found")
)

// OrientedRect is a rotated rectangle enclosing a capsule. Length is the long
// side and Angle is the direction of the long side in degrees, clockwise from
// the x axis in image coordinates.
type OrientedRect struct {
	Center classify.Point
	Length float64
	Width  float64
	Angle  float64
}

// newOrientedRect normalises a rectangle given by the length of its first
// edge w at angle degrees and its second edge h.
func newOrientedRect(cx, cy, w, h, angle float64) OrientedRect {
	if w >= h {
		return OrientedRect{Center: classify.Point{X: cx, Y: cy}, Length: w, Width: h, Angle: angle}
	}
	return OrientedRect{Center: classify.Point{X: cx, Y: cy}, Length: h, Width: w, Angle: angle + 90}
}

// Corners returns the corners of r after scaling its length by sl and its
// width by sw. The corners run clockwise on screen and the first edge lies
// along the long axis.
func (r OrientedRect) Corners(sl, sw float64) []classify.Point {
	a := r.Angle * math.Pi / 180
	cos, sin := math.Cos(a), math.Sin(a)
	hl := r.Length * sl / 2
	hw := r.Width * sw / 2

	// Half vectors along the long and short axes.
	ux, uy := hl*cos, hl*sin
	vx, vy := -hw*sin, hw*cos

	c := r.Center
	return []classify.Point{
		{X: c.X - ux - vx, Y: c.Y - uy - vy},
		{X: c.X + ux - vx, Y: c.Y + uy - vy},
		{X: c.X + ux + vx, Y: c.Y + uy + vy},
		{X: c.X - ux + vx, Y: c.Y - uy + vy},
	}
}

// cropSize returns the output size of a crop of the quadrilateral pts, the
// longer of each pair of opposite edges.
func cropSize(pts []classify.Point) (w, h float64, err error) {
	if len(pts) != 4 {
		return 0, 0, errors.Wrapf(ErrInvalidGeometry, "%d corners", len(pts))
	}
	w = math.Max(dist(pts[0], pts[1]), dist(pts[2], pts[3]))
	h = math.Max(dist(pts[1], pts[2]), dist(pts[3], pts[0]))
	if math.Round(w) < 1 || math.Round(h) < 1 {
		return 0, 0, errors.Wrapf(ErrInvalidGeometry, "crop size %.1fx%.1f", w, h)
	}
	return w, h, nil
}

func dist(a, b classify.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Result holds the outcome of inspecting one frame. Measurements and
// Verdicts are index aligned and ordered by descending centre x, then
// ascending centre y.
type Result struct {
	FrameWidth   int
	FrameHeight  int
	Measurements []classify.Measurement
	Verdicts     []classify.Verdict
}

// Abnormal returns the centres of the abnormal capsules.
func (r Result) Abnormal() []classify.Point { return classify.Abnormal(r.Verdicts) }

// window returns the rectangle centred in a cols by rows image extending
// halfRows above and below the centre and halfCols either side, clipped to
// the image.
func window(cols, rows int, halfRows, halfCols float64) image.Rectangle {
	cx, cy := float64(cols)/2, float64(rows)/2
	r := image.Rect(
		int(math.Round(cx-halfCols)),
		int(math.Round(cy-halfRows)),
		int(math.Round(cx+halfCols)),
		int(math.Round(cy+halfRows)),
	)
	return r.Intersect(image.Rect(0, 0, cols, rows))
}
