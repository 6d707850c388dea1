/*
DESCRIPTION
  vision_test.go tests the geometry shared by the vision pipeline.

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
	"testing"

	"github.com/ausocean/aoi/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrientedRect(t *testing.T) {
	r := newOrientedRect(3, 4, 20, 10, 15)
	assert.Equal(t, OrientedRect{Center: classify.Point{X: 3, Y: 4}, Length: 20, Width: 10, Angle: 15}, r)

	r = newOrientedRect(3, 4, 10, 20, 15)
	assert.Equal(t, OrientedRect{Center: classify.Point{X: 3, Y: 4}, Length: 20, Width: 10, Angle: 105}, r)
}

func TestCorners(t *testing.T) {
	tests := []struct {
		name   string
		rect   OrientedRect
		sl, sw float64
		want   []classify.Point
	}{
		{
			name: "horizontal",
			rect: OrientedRect{Center: classify.Point{X: 50, Y: 40}, Length: 20, Width: 10},
			sl:   1, sw: 1,
			want: []classify.Point{{X: 40, Y: 35}, {X: 60, Y: 35}, {X: 60, Y: 45}, {X: 40, Y: 45}},
		},
		{
			name: "vertical",
			rect: OrientedRect{Center: classify.Point{X: 50, Y: 40}, Length: 20, Width: 10, Angle: 90},
			sl:   1, sw: 1,
			want: []classify.Point{{X: 55, Y: 30}, {X: 55, Y: 50}, {X: 45, Y: 50}, {X: 45, Y: 30}},
		},
		{
			name: "scaled",
			rect: OrientedRect{Center: classify.Point{X: 50, Y: 40}, Length: 20, Width: 10},
			sl:   1.1, sw: 1.2,
			want: []classify.Point{{X: 39, Y: 34}, {X: 61, Y: 34}, {X: 61, Y: 46}, {X: 39, Y: 46}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.rect.Corners(test.sl, test.sw)
			require.Len(t, got, 4)
			for i := range got {
				assert.InDelta(t, test.want[i].X, got[i].X, 1e-9, "corner %d x", i)
				assert.InDelta(t, test.want[i].Y, got[i].Y, 1e-9, "corner %d y", i)
			}
		})
	}
}

// On screen, with y increasing downwards, clockwise corners give a positive
// shoelace sum.
func TestCornersClockwise(t *testing.T) {
	for angle := -90.0; angle <= 180; angle += 7.5 {
		r := OrientedRect{Center: classify.Point{X: 100, Y: 100}, Length: 30, Width: 12, Angle: angle}
		pts := r.Corners(1, 1)
		var sum float64
		for i := range pts {
			a, b := pts[i], pts[(i+1)%len(pts)]
			sum += a.X*b.Y - b.X*a.Y
		}
		assert.InDelta(t, 2*30*12, sum, 1e-6, "angle %v", angle)

		// The first edge runs along the long axis.
		assert.InDelta(t, 30, dist(pts[0], pts[1]), 1e-9, "angle %v", angle)
	}
}

func TestCropSize(t *testing.T) {
	w, h, err := cropSize([]classify.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}})
	require.NoError(t, err)
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 5.0, h)

	// Opposite edges differ, the longer wins.
	w, h, err = cropSize([]classify.Point{{X: 0, Y: 0}, {X: 12, Y: 0}, {X: 10, Y: 7}, {X: 0, Y: 5}})
	require.NoError(t, err)
	assert.Equal(t, 12.0, w)
	assert.InDelta(t, 7.28, h, 0.01)

	bad := [][]classify.Point{
		nil,
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}},
		{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}},
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 0.2}, {X: 0, Y: 0.2}},
	}
	for i, pts := range bad {
		_, _, err := cropSize(pts)
		if !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("did not get expected error for case %d, got: %v", i, err)
		}
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		cols, rows         int
		halfRows, halfCols float64
		want               image.Rectangle
	}{
		{cols: 100, rows: 200, halfRows: 30, halfCols: 45, want: image.Rect(5, 70, 95, 130)},
		{cols: 10, rows: 10, halfRows: 20, halfCols: 20, want: image.Rect(0, 0, 10, 10)},
		{cols: 10, rows: 10, halfRows: 0, halfCols: 3, want: image.Rectangle{}},
	}

	for i, test := range tests {
		got := window(test.cols, test.rows, test.halfRows, test.halfCols)
		if !got.Eq(test.want) {
			t.Errorf("unexpected window for test %d, got: %v, want: %v", i, got, test.want)
		}
	}
}
