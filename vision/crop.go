//go:build withcv
// +build withcv

/*
DESCRIPTION
  crop.go provides perspective rectification of a quadrilateral region of an
  image into an upright rectangle.

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

	"github.com/ausocean/aoi/classify"
	"gocv.io/x/gocv"
)

// CropQuad maps the quadrilateral pts of src, given clockwise from the corner
// that becomes the top left, onto an upright rectangle. The output is as wide
// as the longer of edges 0-1 and 2-3 and as tall as the longer of edges 1-2
// and 3-0. An axis aligned quadrilateral with integer corners is copied
// without resampling. On error the returned Mat is empty.
func CropQuad(src gocv.Mat, pts []classify.Point) (gocv.Mat, error) {
	w, h, err := cropSize(pts)
	if err != nil {
		return gocv.NewMat(), err
	}

	from := make([]gocv.Point2f, len(pts))
	for i, p := range pts {
		from[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	fw, fh := float32(w), float32(h)
	to := []gocv.Point2f{{X: 0, Y: 0}, {X: fw, Y: 0}, {X: fw, Y: fh}, {X: 0, Y: fh}}

	srcPts := gocv.NewPoint2fVectorFromPoints(from)
	defer srcPts.Close()
	dstPts := gocv.NewPoint2fVectorFromPoints(to)
	defer dstPts.Close()

	m := gocv.GetPerspectiveTransform2f(srcPts, dstPts)
	defer m.Close()

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, m, image.Pt(int(math.Round(w)), int(math.Round(h))))
	return dst, nil
}
