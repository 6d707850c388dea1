//go:build withcv
// +build withcv

/*
DESCRIPTION
  shape.go provides Hu-moment silhouette comparison of capsules against the
  reference Template.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"math"

	"github.com/ausocean/aoi/classify"
	"gocv.io/x/gocv"
)

// MatchShape returns the Hu-moment distance between two contours, 0 meaning
// identical.
func MatchShape(a, b gocv.PointVector) float64 {
	return gocv.MatchShapes(a, b, gocv.ContoursMatchI1, 0)
}

// Compare scores the silhouette of c against t: its whole contour, the head
// slice and the tail slice. If either slice of c holds no contour the result
// is Ambiguous with infinite distances and ErrNoContourFound is returned.
func (t *Template) Compare(c *Candidate) (classify.Similarity, error) {
	ambiguous := classify.Similarity{
		Overall:   math.Inf(1),
		Head:      math.Inf(1),
		Tail:      math.Inf(1),
		Ambiguous: true,
	}

	head, tail, ok := sliceContours(c.Mask, t.fraction)
	if !ok {
		return ambiguous, ErrNoContourFound
	}
	defer head.Close()
	defer tail.Close()

	return classify.Similarity{
		Overall: MatchShape(c.Contour, t.main),
		Head:    MatchShape(head, t.head),
		Tail:    MatchShape(tail, t.tail),
	}, nil
}
