/*
DESCRIPTION
  classify.go provides the capsule defect classifier: an ordered decision list
  over capsule geometry, silhouette similarity and local surface defects.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package classify decides whether measured capsules are normal or abnormal.
package classify

import (
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/utils/logging"
)

// Point is a position in frame pixel coordinates.
type Point struct {
	X, Y float64
}

// Similarity holds Hu-moment shape distances to the reference capsule, 0
// meaning identical. Ambiguous is set when a slice of the capsule held no
// contour, in which case the distances carry no information.
type Similarity struct {
	Overall   float64
	Head      float64
	Tail      float64
	Ambiguous bool
}

// Measurement describes one capsule found in a frame.
type Measurement struct {
	Center     Point   // Centre of the capsule's oriented rectangle in the frame.
	Length     float64 // Long side of the oriented rectangle.
	Width      float64 // Short side of the oriented rectangle.
	Area       float64 // Area of the capsule silhouette.
	Similarity Similarity

	// Local returns the length of the longest surface defect contour. It is
	// only called when the earlier criteria pass (or in debug mode). A nil
	// Local is treated as a defect free surface.
	Local func() (float64, error)
}

// Reason identifies the criterion that made a capsule abnormal.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonLength
	ReasonArea
	ReasonAmbiguous
	ReasonShape
	ReasonLocal
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonLength:
		return "length"
	case ReasonArea:
		return "area"
	case ReasonAmbiguous:
		return "ambiguous"
	case ReasonShape:
		return "shape"
	case ReasonLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Verdict is the classification of one capsule.
type Verdict struct {
	Center            Point
	Abnormal          bool
	Reason            Reason   // First failing criterion.
	Failed            []Reason // Every failing criterion, only filled in debug mode.
	LocalDefectLength float64  // Longest defect contour if the local detector ran.
	WidthInRange      bool     // Diagnostic only, never decides the verdict.
}

// Classifier applies the decision list to capsule measurements.
type Classifier struct {
	log logging.Logger
}

// New returns a new Classifier that logs to l.
func New(l logging.Logger) *Classifier {
	return &Classifier{log: l}
}

// Classify returns a verdict for every measurement, in input order. The
// criteria are, in order:
//  1. length outside the inclusive normal length range;
//  2. area outside the inclusive normal area range;
//  3. ambiguous similarity, overall distance >= SimilarityOverall, or head or
//     tail distance > SimilarityHead (note the strict comparison for the
//     slices);
//  4. local defect length >= LocalDefectLength.
//
// Without p.Debug the first failing criterion decides and later criteria,
// including the local defect detector, are not evaluated.
func (c *Classifier) Classify(ms []Measurement, p config.DetectionParameters) []Verdict {
	vs := make([]Verdict, len(ms))
	for i, m := range ms {
		if p.Debug {
			vs[i] = c.evaluateAll(i, m, p)
		} else {
			vs[i] = c.evaluate(m, p)
		}
	}
	return vs
}

// Abnormal returns the centres of the abnormal capsules in vs, in order.
func Abnormal(vs []Verdict) []Point {
	var pts []Point
	for _, v := range vs {
		if v.Abnormal {
			pts = append(pts, v.Center)
		}
	}
	return pts
}

func (c *Classifier) evaluate(m Measurement, p config.DetectionParameters) Verdict {
	v := Verdict{Center: m.Center, WidthInRange: inRange(m.Width, p.NormalWidthLower, p.NormalWidthUpper)}
	switch {
	case !inRange(m.Length, p.NormalLengthLower, p.NormalLengthUpper):
		v.Reason = ReasonLength
	case !inRange(m.Area, p.NormalAreaLower, p.NormalAreaUpper):
		v.Reason = ReasonArea
	default:
		v.Reason = shapeReason(m.Similarity, p)
	}
	if v.Reason != ReasonNone {
		v.Abnormal = true
		return v
	}

	l, err := local(m)
	v.LocalDefectLength = l
	switch {
	case err != nil:
		c.log.Warning("local defect detection failed", "error", err.Error())
		v.Reason = ReasonAmbiguous
	case l >= p.LocalDefectLength:
		v.Reason = ReasonLocal
	}
	v.Abnormal = v.Reason != ReasonNone
	return v
}

func (c *Classifier) evaluateAll(i int, m Measurement, p config.DetectionParameters) Verdict {
	v := Verdict{Center: m.Center, WidthInRange: inRange(m.Width, p.NormalWidthLower, p.NormalWidthUpper)}
	if !inRange(m.Length, p.NormalLengthLower, p.NormalLengthUpper) {
		v.Failed = append(v.Failed, ReasonLength)
	}
	if !inRange(m.Area, p.NormalAreaLower, p.NormalAreaUpper) {
		v.Failed = append(v.Failed, ReasonArea)
	}
	if r := shapeReason(m.Similarity, p); r != ReasonNone {
		v.Failed = append(v.Failed, r)
	}
	l, err := local(m)
	v.LocalDefectLength = l
	switch {
	case err != nil:
		c.log.Warning("local defect detection failed", "capsule", i, "error", err.Error())
		v.Failed = append(v.Failed, ReasonAmbiguous)
	case l >= p.LocalDefectLength:
		v.Failed = append(v.Failed, ReasonLocal)
	}

	if len(v.Failed) != 0 {
		v.Abnormal = true
		v.Reason = v.Failed[0]
	}

	c.log.Debug("capsule criteria",
		"capsule", i,
		"x", m.Center.X,
		"y", m.Center.Y,
		"length", m.Length,
		"width", m.Width,
		"widthInRange", v.WidthInRange,
		"area", m.Area,
		"overall", m.Similarity.Overall,
		"head", m.Similarity.Head,
		"tail", m.Similarity.Tail,
		"ambiguous", m.Similarity.Ambiguous,
		"local", l,
		"abnormal", v.Abnormal,
		"reason", v.Reason.String(),
	)
	return v
}

func shapeReason(s Similarity, p config.DetectionParameters) Reason {
	switch {
	case s.Ambiguous:
		return ReasonAmbiguous
	case s.Overall >= p.SimilarityOverall, s.Head > p.SimilarityHead, s.Tail > p.SimilarityHead:
		return ReasonShape
	}
	return ReasonNone
}

func local(m Measurement) (float64, error) {
	if m.Local == nil {
		return 0, nil
	}
	return m.Local()
}

func inRange(v, lower, upper float64) bool {
	return v >= lower && v <= upper
}
