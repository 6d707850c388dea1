//go:build withcv
// +build withcv

/*
DESCRIPTION
  contour.go provides the reference capsule Template and the Extractor,
  which finds capsule contours in a binary mask and cuts an upright crop of
  each capsule out of the frame.

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
	"math"
	"sort"

	"github.com/ausocean/aoi/classify"
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Level used to re-binarise masks after resampling.
const binaryLevel = 127

// Template is the silhouette of a known good capsule, with its long axis
// vertical.
type Template struct {
	main     gocv.PointVector
	head     gocv.PointVector
	tail     gocv.PointVector
	fraction float64 // Fraction of rows taken as head and as tail.
}

// LoadTemplate reads the reference capsule mask at path as grayscale and
// returns its Template.
func LoadTemplate(path string, headFraction float64) (*Template, error) {
	ref := gocv.IMRead(path, gocv.IMReadGrayScale)
	defer ref.Close()
	if ref.Empty() {
		return nil, errors.Wrapf(ErrMissingReferenceTemplate, "could not read %s", path)
	}
	return NewTemplate(ref, headFraction)
}

// NewTemplate returns the Template of the reference capsule mask ref. ref is
// binarised and turned upright if it is wider than tall.
func NewTemplate(ref gocv.Mat, headFraction float64) (*Template, error) {
	if ref.Empty() {
		return nil, errors.Wrap(ErrMissingReferenceTemplate, "empty reference mask")
	}
	if headFraction <= 0 || headFraction > 0.5 {
		return nil, errors.Errorf("invalid head fraction %v", headFraction)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if ref.Channels() == 3 {
		gocv.CvtColor(ref, &gray, gocv.ColorBGRToGray)
	} else {
		ref.CopyTo(&gray)
	}
	gocv.Threshold(gray, &gray, binaryLevel, 255, gocv.ThresholdBinary)
	upright(&gray)

	t := &Template{fraction: headFraction}
	var ok bool
	t.main, _, ok = largestContour(gray)
	if !ok {
		return nil, errors.Wrap(ErrMissingReferenceTemplate, "no contour in reference mask")
	}
	t.head, t.tail, ok = sliceContours(gray, headFraction)
	if !ok {
		t.Close()
		return nil, errors.Wrap(ErrMissingReferenceTemplate, "no contour in reference head or tail")
	}
	return t, nil
}

// Close frees resources used by gocv.
func (t *Template) Close() error {
	for _, pv := range []gocv.PointVector{t.main, t.head, t.tail} {
		if !pv.IsNil() {
			pv.Close()
		}
	}
	return nil
}

// Candidate is one capsule found in a frame. Raw and Mask are upright crops of
// the capsule, long axis vertical.
type Candidate struct {
	Rect    OrientedRect     // Capsule rectangle in frame coordinates.
	Area    float64          // Area of Contour.
	Raw     gocv.Mat         // Crop of the frame.
	Mask    gocv.Mat         // Crop of the binary mask.
	Contour gocv.PointVector // Largest contour of Mask.
}

// Close frees resources used by gocv.
func (c *Candidate) Close() error {
	err := c.Raw.Close()
	if e := c.Mask.Close(); e != nil && err == nil {
		err = e
	}
	if !c.Contour.IsNil() {
		c.Contour.Close()
	}
	return err
}

// Extractor finds capsules in binary masks.
type Extractor struct {
	log        logging.Logger
	minPoints  int
	maxPoints  int
	bandLower  float64
	bandUpper  float64
	length     float64
	tolerance  float64
	scaleLong  float64
	scaleShort float64
}

// NewExtractor returns an Extractor using the extraction fields of c.
func NewExtractor(c config.Config) *Extractor {
	return &Extractor{
		log:        c.Logger,
		minPoints:  int(c.MinContourPoints),
		maxPoints:  int(c.MaxContourPoints),
		bandLower:  c.BandLower,
		bandUpper:  c.BandUpper,
		length:     c.ExpectedLength,
		tolerance:  c.LengthTolerance,
		scaleLong:  c.CropScaleLength,
		scaleShort: c.CropScaleWidth,
	}
}

// Extract returns the capsules found in mask, with crops taken from raw.
// Capsules are ordered by descending centre x, then ascending centre y. The
// caller must Close every returned Candidate.
func (e *Extractor) Extract(raw, mask gocv.Mat) ([]*Candidate, error) {
	if raw.Empty() || mask.Empty() {
		return nil, errors.Wrap(ErrInvalidFrame, "empty frame or mask")
	}
	if raw.Rows() != mask.Rows() || raw.Cols() != mask.Cols() {
		return nil, errors.Wrapf(ErrInvalidFrame, "frame %dx%d does not match mask %dx%d", raw.Cols(), raw.Rows(), mask.Cols(), mask.Rows())
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	var rects []OrientedRect
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		n := c.Size()
		if n <= e.minPoints || n >= e.maxPoints {
			continue
		}
		rr := gocv.MinAreaRect2f(c)
		r := newOrientedRect(float64(rr.Center.X), float64(rr.Center.Y), float64(rr.Width), float64(rr.Height), rr.Angle)
		if !e.inBand(r, mask.Cols()) || !e.expectedLength(r) {
			continue
		}
		rects = append(rects, r)
	}

	sort.SliceStable(rects, func(i, j int) bool {
		if rects[i].Center.X != rects[j].Center.X {
			return rects[i].Center.X > rects[j].Center.X
		}
		return rects[i].Center.Y < rects[j].Center.Y
	})

	var cands []*Candidate
	for _, r := range rects {
		c, err := e.cut(raw, mask, r)
		if err != nil {
			e.log.Debug("skipping capsule", "x", r.Center.X, "y", r.Center.Y, "error", err.Error())
			continue
		}
		cands = append(cands, c)
	}
	return cands, nil
}

func (e *Extractor) inBand(r OrientedRect, cols int) bool {
	if e.bandLower == 0 && e.bandUpper == 0 {
		return true
	}
	x := r.Center.X / float64(cols)
	return x >= e.bandLower && x <= e.bandUpper
}

func (e *Extractor) expectedLength(r OrientedRect) bool {
	if e.length == 0 {
		return true
	}
	return math.Abs(r.Length-e.length) <= e.tolerance
}

// cut crops the capsule r out of raw and mask.
func (e *Extractor) cut(raw, mask gocv.Mat, r OrientedRect) (*Candidate, error) {
	pts := r.Corners(e.scaleLong, e.scaleShort)
	rc, err := CropQuad(raw, pts)
	if err != nil {
		return nil, err
	}
	mc, err := CropQuad(mask, pts)
	if err != nil {
		rc.Close()
		return nil, err
	}
	upright(&rc)
	upright(&mc)
	gocv.Threshold(mc, &mc, binaryLevel, 255, gocv.ThresholdBinary)

	pv, area, ok := largestContour(mc)
	if !ok {
		rc.Close()
		mc.Close()
		return nil, errors.Wrap(ErrNoContourFound, "empty capsule crop")
	}
	return &Candidate{Rect: r, Area: area, Raw: rc, Mask: mc, Contour: pv}, nil
}

// upright rotates m a quarter turn clockwise if it is wider than tall.
func upright(m *gocv.Mat) {
	if m.Cols() <= m.Rows() {
		return
	}
	rot := gocv.NewMat()
	defer rot.Close()
	gocv.Rotate(*m, &rot, gocv.Rotate90Clockwise)
	rot.CopyTo(m)
}

// largestContour returns a copy of the external contour of bin with the
// largest area, and that area.
func largestContour(bin gocv.Mat) (gocv.PointVector, float64, bool) {
	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	best, area := -1, -1.0
	for i := 0; i < contours.Size(); i++ {
		a := gocv.ContourArea(contours.At(i))
		if a > area {
			best, area = i, a
		}
	}
	if best < 0 {
		return gocv.PointVector{}, 0, false
	}
	return gocv.NewPointVectorFromPoints(contours.At(best).ToPoints()), area, true
}

// sliceContours returns the largest contours of the top and bottom fraction
// of the rows of bin.
func sliceContours(bin gocv.Mat, fraction float64) (head, tail gocv.PointVector, ok bool) {
	rows, cols := bin.Rows(), bin.Cols()
	n := int(math.Round(fraction * float64(rows)))
	if n < 1 {
		return gocv.PointVector{}, gocv.PointVector{}, false
	}

	head, _, ok = regionContour(bin, image.Rect(0, 0, cols, n))
	if !ok {
		return gocv.PointVector{}, gocv.PointVector{}, false
	}
	tail, _, ok = regionContour(bin, image.Rect(0, rows-n, cols, rows))
	if !ok {
		head.Close()
		return gocv.PointVector{}, gocv.PointVector{}, false
	}
	return head, tail, true
}

func regionContour(bin gocv.Mat, r image.Rectangle) (gocv.PointVector, float64, bool) {
	reg := bin.Region(r)
	defer reg.Close()
	slice := reg.Clone()
	defer slice.Close()
	return largestContour(slice)
}

// measurement returns the classifier's view of c.
func (c *Candidate) measurement() classify.Measurement {
	return classify.Measurement{
		Center: c.Rect.Center,
		Length: c.Rect.Length,
		Width:  c.Rect.Width,
		Area:   c.Area,
	}
}
