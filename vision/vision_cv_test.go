//go:build withcv
// +build withcv

/*
DESCRIPTION
  vision_cv_test.go tests the OpenCV stages of the capsule vision pipeline
  on synthetic frames.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"errors"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/ausocean/aoi/classify"
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var white = color.RGBA{255, 255, 255, 0}

func testConfig(t *testing.T) config.Config {
	c := config.Config{Logger: (*logging.TestLogger)(t)}
	require.NoError(t, c.Validate())
	return c
}

func blank(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC1)
}

// fillRect sets r of m to v.
func fillRect(m gocv.Mat, r image.Rectangle, v float64) {
	reg := m.Region(r)
	reg.SetTo(gocv.NewScalar(v, v, v, 0))
	reg.Close()
}

// fillRotated draws the filled oriented rectangle r on m.
func fillRotated(m *gocv.Mat, r OrientedRect) {
	var pts []image.Point
	for _, p := range r.Corners(1, 1) {
		pts = append(pts, image.Pt(int(math.Round(p.X)), int(math.Round(p.Y))))
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.FillPoly(m, pv, white)
}

// capsules returns an 800x600 frame holding two horizontal capsules with the
// same centre x and one vertical capsule further left.
func capsules() gocv.Mat {
	m := blank(600, 800, 0)
	fillRect(m, image.Rect(300, 370, 500, 430), 255)
	fillRect(m, image.Rect(300, 70, 500, 130), 255)
	fillRect(m, image.Rect(100, 150, 160, 350), 255)
	return m
}

func maxAbsDiff(a, b gocv.Mat) float32 {
	d := gocv.NewMat()
	defer d.Close()
	gocv.AbsDiff(a, b, &d)
	_, max, _, _ := gocv.MinMaxLoc(d)
	return max
}

func TestCropQuadRoundTrip(t *testing.T) {
	src := blank(40, 60, 0)
	defer src.Close()
	for y := 0; y < src.Rows(); y++ {
		for x := 0; x < src.Cols(); x++ {
			src.SetUCharAt(y, x, uint8(3*x+2*y))
		}
	}

	dst, err := CropQuad(src, []classify.Point{{X: 10, Y: 5}, {X: 30, Y: 5}, {X: 30, Y: 25}, {X: 10, Y: 25}})
	require.NoError(t, err)
	defer dst.Close()

	require.Equal(t, 20, dst.Cols())
	require.Equal(t, 20, dst.Rows())

	want := src.Region(image.Rect(10, 5, 30, 25))
	defer want.Close()
	if d := maxAbsDiff(dst, want); d > 1 {
		t.Errorf("crop differs from source region by %v levels", d)
	}
}

func TestCropQuadInvalid(t *testing.T) {
	src := blank(40, 60, 0)
	defer src.Close()

	dst, err := CropQuad(src, []classify.Point{{X: 10, Y: 5}, {X: 30, Y: 5}, {X: 30, Y: 25}})
	defer dst.Close()
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("did not get expected error, got: %v", err)
	}
	assert.True(t, dst.Empty())
}

func TestMask(t *testing.T) {
	s := NewSuppressor(testConfig(t))
	defer s.Close()

	empty := blank(50, 80, 0)
	defer empty.Close()
	m := s.Mask(empty)
	assert.Equal(t, 0, gocv.CountNonZero(m))
	m.Close()

	full := blank(50, 80, 255)
	defer full.Close()
	m = s.Mask(full)
	assert.Equal(t, 50*80, gocv.CountNonZero(m))
	m.Close()

	// Specks smaller than the kernel are removed.
	speck := blank(50, 80, 0)
	defer speck.Close()
	speck.SetUCharAt(20, 20, 255)
	m = s.Mask(speck)
	assert.Equal(t, 0, gocv.CountNonZero(m))
	m.Close()

	m = s.Mask(gocv.NewMat())
	assert.True(t, m.Empty())
	m.Close()
}

func TestMaskBackground(t *testing.T) {
	c := testConfig(t)
	c.MaskThreshold = 10
	c.BackgroundLower = [3]uint8{0, 100, 0}
	c.BackgroundUpper = [3]uint8{80, 255, 80}
	s := NewSuppressor(c)
	defer s.Close()

	// Green belt with a grey capsule.
	raw := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(20, 200, 20, 0), 50, 80, gocv.MatTypeCV8UC3)
	defer raw.Close()
	reg := raw.Region(image.Rect(20, 10, 60, 40))
	reg.SetTo(gocv.NewScalar(150, 150, 150, 0))
	reg.Close()

	m := s.Mask(raw)
	defer m.Close()
	assert.Equal(t, 40*30, gocv.CountNonZero(m))
}

func TestExtract(t *testing.T) {
	c := testConfig(t)
	c.MinContourPoints = 300 // Diagonal edges have fewer points than pixels.
	e := NewExtractor(c)

	raw := capsules()
	defer raw.Close()
	fillRotated(&raw, OrientedRect{Center: classify.Point{X: 650, Y: 450}, Length: 200, Width: 60, Angle: 45})

	cands, err := e.Extract(raw, raw)
	require.NoError(t, err)
	defer func() {
		for _, c := range cands {
			c.Close()
		}
	}()
	require.Len(t, cands, 4)

	want := []classify.Point{{X: 650, Y: 450}, {X: 399.5, Y: 99.5}, {X: 399.5, Y: 399.5}, {X: 129.5, Y: 249.5}}
	for i, c := range cands {
		assert.InDelta(t, want[i].X, c.Rect.Center.X, 2, "capsule %d x", i)
		assert.InDelta(t, want[i].Y, c.Rect.Center.Y, 2, "capsule %d y", i)
		assert.InDelta(t, 200, c.Rect.Length, 3, "capsule %d length", i)
		assert.InDelta(t, 60, c.Rect.Width, 3, "capsule %d width", i)
		assert.Greater(t, c.Raw.Rows(), c.Raw.Cols(), "capsule %d is not upright", i)
		assert.Equal(t, c.Raw.Rows(), c.Mask.Rows())
		assert.InEpsilon(t, 200*60, c.Area, 0.06, "capsule %d area", i)
	}
}

func TestExtractFilters(t *testing.T) {
	raw := capsules()
	defer raw.Close()

	c := testConfig(t)
	c.BandLower, c.BandUpper = 0.4, 1
	cands, err := NewExtractor(c).Extract(raw, raw)
	require.NoError(t, err)
	assert.Len(t, cands, 2)
	for _, c := range cands {
		c.Close()
	}

	c = testConfig(t)
	c.ExpectedLength, c.LengthTolerance = 330, 10
	cands, err = NewExtractor(c).Extract(raw, raw)
	require.NoError(t, err)
	assert.Empty(t, cands)

	// Contours with too few points are ignored.
	c = testConfig(t)
	c.MinContourPoints = 600
	cands, err = NewExtractor(c).Extract(raw, raw)
	require.NoError(t, err)
	assert.Empty(t, cands)

	_, err = NewExtractor(testConfig(t)).Extract(raw, gocv.NewMat())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("did not get expected error, got: %v", err)
	}
}

func TestTemplate(t *testing.T) {
	_, err := LoadTemplate("/nonexistent/template.png", 0.2)
	if !errors.Is(err, ErrMissingReferenceTemplate) {
		t.Errorf("did not get expected error for missing file, got: %v", err)
	}

	empty := blank(100, 40, 0)
	defer empty.Close()
	_, err = NewTemplate(empty, 0.2)
	if !errors.Is(err, ErrMissingReferenceTemplate) {
		t.Errorf("did not get expected error for empty mask, got: %v", err)
	}

	// A capsule that does not reach the head slice.
	short := blank(100, 40, 0)
	defer short.Close()
	fillRect(short, image.Rect(5, 40, 35, 95), 255)
	_, err = NewTemplate(short, 0.2)
	if !errors.Is(err, ErrMissingReferenceTemplate) {
		t.Errorf("did not get expected error for empty head, got: %v", err)
	}

	// A capsule mask read back from a file.
	good := blank(100, 40, 0)
	defer good.Close()
	fillRect(good, image.Rect(5, 5, 35, 95), 255)
	path := filepath.Join(t.TempDir(), "template.png")
	require.True(t, gocv.IMWrite(path, good))
	tpl, err := LoadTemplate(path, 0.2)
	require.NoError(t, err)
	require.NoError(t, tpl.Close())
}

func TestCompare(t *testing.T) {
	raw := capsules()
	defer raw.Close()
	cands, err := NewExtractor(testConfig(t)).Extract(raw, raw)
	require.NoError(t, err)
	defer func() {
		for _, c := range cands {
			c.Close()
		}
	}()
	require.NotEmpty(t, cands)

	tpl, err := NewTemplate(cands[0].Mask, 0.2)
	require.NoError(t, err)
	defer tpl.Close()

	for i, c := range cands {
		s, err := tpl.Compare(c)
		require.NoError(t, err)
		assert.False(t, s.Ambiguous)
		assert.InDelta(t, 0, s.Overall, 0.01, "capsule %d overall", i)
		assert.InDelta(t, 0, s.Head, 0.05, "capsule %d head", i)
		assert.InDelta(t, 0, s.Tail, 0.05, "capsule %d tail", i)
	}

	// A crop whose head slice is empty is ambiguous.
	m := blank(100, 40, 0)
	fillRect(m, image.Rect(5, 40, 35, 95), 255)
	pv, _, ok := largestContour(m)
	require.True(t, ok)
	c := &Candidate{Raw: blank(100, 40, 0), Mask: m, Contour: pv}
	defer c.Close()

	s, err := tpl.Compare(c)
	if !errors.Is(err, ErrNoContourFound) {
		t.Errorf("did not get expected error, got: %v", err)
	}
	assert.True(t, s.Ambiguous)
	assert.True(t, math.IsInf(s.Head, 1))
}

func TestMatchShapeIdentical(t *testing.T) {
	pv := gocv.NewPointVectorFromPoints([]image.Point{{0, 0}, {40, 0}, {40, 100}, {0, 100}})
	defer pv.Close()
	assert.InDelta(t, 0, MatchShape(pv, pv), 1e-9)
}

func TestLocalDetect(t *testing.T) {
	c := testConfig(t)

	mask := blank(200, 100, 255)
	defer mask.Close()

	uniform := blank(200, 100, 100)
	defer uniform.Close()
	res, err := NewLocalDetector(c).Detect(uniform, mask, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.MaxLength)
	assert.Nil(t, res.Overlay)

	// A 10x10 spot is removed by the 15 wide median, leaving a closed
	// contour through the spot's edge pixels.
	spot := blank(200, 100, 100)
	defer spot.Close()
	fillRect(spot, image.Rect(45, 95, 55, 105), 200)
	res, err = NewLocalDetector(c).Detect(spot, mask, 200, 100)
	require.NoError(t, err)
	assert.InDelta(t, 36, res.MaxLength, 1)

	// Drawing never changes the measurement.
	c.LocalDraw = true
	drawn, err := NewLocalDetector(c).Detect(spot, mask, 200, 100)
	require.NoError(t, err)
	require.NotNil(t, drawn.Overlay)
	defer drawn.Overlay.Close()
	assert.Equal(t, res.MaxLength, drawn.MaxLength)

	// Spots outside the central window are ignored.
	edge := blank(200, 100, 100)
	defer edge.Close()
	fillRect(edge, image.Rect(45, 5, 55, 15), 200)
	res, err = NewLocalDetector(testConfig(t)).Detect(edge, mask, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.MaxLength)
}

func frameOf(m gocv.Mat) device.Frame {
	return device.Frame{Pix: m.ToBytes(), Width: m.Cols(), Height: m.Rows(), Channels: m.Channels()}
}

func TestInspect(t *testing.T) {
	c := testConfig(t)
	raw := capsules()
	defer raw.Close()

	cands, err := NewExtractor(c).Extract(raw, raw)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	tpl, err := NewTemplate(cands[0].Mask, c.HeadFraction)
	for _, c := range cands {
		c.Close()
	}
	require.NoError(t, err)

	in := NewInspectorWithTemplate(c, tpl)
	defer in.Close()

	p := c.Detection
	p.NormalLengthLower, p.NormalLengthUpper = 190, 210
	p.NormalAreaLower, p.NormalAreaUpper = 10000, 13000
	res, err := in.Inspect(frameOf(raw), p)
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 3)
	assert.Equal(t, 800, res.FrameWidth)
	for i, v := range res.Verdicts {
		assert.False(t, v.Abnormal, "capsule %d: %v", i, v.Reason)
		assert.Nil(t, res.Measurements[i].Local)
	}
	assert.Empty(t, res.Abnormal())

	// Default ranges are for full size capsules, so every capsule is short.
	res, err = in.Inspect(frameOf(raw), c.Detection)
	require.NoError(t, err)
	require.Len(t, res.Verdicts, 3)
	for _, v := range res.Verdicts {
		assert.Equal(t, classify.ReasonLength, v.Reason)
	}
	assert.Len(t, res.Abnormal(), 3)

	f := frameOf(raw)
	f.Pix = f.Pix[1:]
	_, err = in.Inspect(f, p)
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("did not get expected error, got: %v", err)
	}
}
