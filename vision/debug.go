//go:build debug && withcv
// +build debug,withcv

/*
DESCRIPTION
  Displays debug information for the capsule vision pipeline.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ausocean/aoi/classify"
	"gocv.io/x/gocv"
)

// debugWindows is used for displaying debug information for the inspector.
type debugWindows struct {
	windows []*gocv.Window
}

// close frees resources used by gocv.
func (d *debugWindows) close() error {
	for _, window := range d.windows {
		err := window.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// newWindows creates debugging windows for the inspector.
func newWindows(name string) debugWindows {
	return debugWindows{
		windows: []*gocv.Window{
			gocv.NewWindow(name + ": Frame"),
			gocv.NewWindow(name + ": Mask"),
			gocv.NewWindow(name + ": Local Defect"),
		},
	}
}

// show draws each capsule's rectangle on the frame, red if abnormal and
// green otherwise, labelled with the deciding criterion.
func (d *debugWindows) show(raw, mask gocv.Mat, cands []*Candidate, vs []classify.Verdict) {
	var red = color.RGBA{191, 0, 0, 0}
	var green = color.RGBA{0, 191, 0, 0}

	im := gocv.NewMat()
	defer im.Close()
	if raw.Channels() == 1 {
		gocv.CvtColor(raw, &im, gocv.ColorGrayToBGR)
	} else {
		raw.CopyTo(&im)
	}

	for i, c := range cands {
		col := green
		if vs[i].Abnormal {
			col = red
		}
		pts := c.Rect.Corners(1, 1)
		ipts := make([]image.Point, len(pts))
		for j, p := range pts {
			ipts[j] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
		}
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{ipts})
		gocv.DrawContours(&im, pv, -1, col, 2)
		pv.Close()

		label := fmt.Sprintf("%d %s", i, vs[i].Reason)
		gocv.PutText(&im, label, ipts[0], gocv.FontHersheyPlain, 2.0, col, 2)
	}

	// Display windows.
	d.windows[0].IMShow(im)
	d.windows[1].IMShow(mask)
	d.windows[0].WaitKey(1)
}

// showDefect displays the local defect overlay of one capsule.
func (d *debugWindows) showDefect(overlay gocv.Mat) {
	d.windows[2].IMShow(overlay)
	d.windows[2].WaitKey(1)
}
