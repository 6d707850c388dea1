//go:build !debug && withcv
// +build !debug,withcv

/*
DESCRIPTION
  Replaces the inspector's debug windows in release builds.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"github.com/ausocean/aoi/classify"
	"gocv.io/x/gocv"
)

// debugWindows is used for displaying debug information for the inspector.
type debugWindows struct{}

// close frees resources used by gocv.
func (d *debugWindows) close() error { return nil }

// newWindows creates debugging windows for the inspector.
func newWindows(name string) debugWindows { return debugWindows{} }

// show displays the frame and mask with the capsule verdicts.
func (d *debugWindows) show(raw, mask gocv.Mat, cands []*Candidate, vs []classify.Verdict) {}

// showDefect displays the local defect overlay of one capsule.
func (d *debugWindows) showDefect(overlay gocv.Mat) {}
