//go:build withcv
// +build withcv

/*
DESCRIPTION
  inspector.go provides the Inspector, which runs the whole vision pipeline
  on a frame and classifies the capsules found in it.

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
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Inspector turns frames into capsule verdicts. An Inspector is not safe for
// concurrent use.
type Inspector struct {
	log        logging.Logger
	suppressor *Suppressor
	extractor  *Extractor
	template   *Template
	local      *LocalDetector
	classifier *classify.Classifier
	windows    debugWindows
}

// NewInspector returns an Inspector configured by c, loading the reference
// capsule mask from c.TemplatePath.
func NewInspector(c config.Config) (*Inspector, error) {
	t, err := LoadTemplate(c.TemplatePath, c.HeadFraction)
	if err != nil {
		return nil, err
	}
	return NewInspectorWithTemplate(c, t), nil
}

// NewInspectorWithTemplate returns an Inspector configured by c that compares
// capsules against t. The Inspector takes ownership of t.
func NewInspectorWithTemplate(c config.Config, t *Template) *Inspector {
	return &Inspector{
		log:        c.Logger,
		suppressor: NewSuppressor(c),
		extractor:  NewExtractor(c),
		template:   t,
		local:      NewLocalDetector(c),
		classifier: classify.New(c.Logger),
		windows:    newWindows("AOI"),
	}
}

// Close frees resources used by gocv.
func (in *Inspector) Close() error {
	err := in.suppressor.Close()
	if e := in.template.Close(); e != nil && err == nil {
		err = e
	}
	if e := in.windows.close(); e != nil && err == nil {
		err = e
	}
	return err
}

// Inspect finds, measures and classifies the capsules in f using the
// detection parameters p. An invalid frame gives an error wrapping
// ErrInvalidFrame.
func (in *Inspector) Inspect(f device.Frame, p config.DetectionParameters) (Result, error) {
	raw, err := toMat(f)
	defer raw.Close()
	if err != nil {
		return Result{}, err
	}

	mask := in.suppressor.Mask(raw)
	defer mask.Close()

	cands, err := in.extractor.Extract(raw, mask)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		for _, c := range cands {
			c.Close()
		}
	}()

	ms := make([]classify.Measurement, len(cands))
	for i, c := range cands {
		ms[i] = c.measurement()
		ms[i].Similarity, err = in.template.Compare(c)
		if err != nil {
			in.log.Debug("ambiguous capsule similarity", "frame", f.Index, "capsule", i, "error", err.Error())
		}
		ms[i].Local = func() (float64, error) {
			res, err := in.local.Detect(c.Raw, c.Mask, c.Rect.Length, c.Rect.Width)
			if res.Overlay != nil {
				in.windows.showDefect(*res.Overlay)
				res.Overlay.Close()
			}
			return res.MaxLength, err
		}
	}

	vs := in.classifier.Classify(ms, p)
	in.windows.show(raw, mask, cands, vs)

	// The crops are freed on return.
	for i := range ms {
		ms[i].Local = nil
	}
	return Result{FrameWidth: f.Width, FrameHeight: f.Height, Measurements: ms, Verdicts: vs}, nil
}

// toMat copies the pixels of f into a new Mat.
func toMat(f device.Frame) (gocv.Mat, error) {
	var typ gocv.MatType
	switch f.Channels {
	case 1:
		typ = gocv.MatTypeCV8UC1
	case 3:
		typ = gocv.MatTypeCV8UC3
	default:
		return gocv.NewMat(), errors.Wrapf(ErrInvalidFrame, "%d channels", f.Channels)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pix) != f.Width*f.Height*f.Channels {
		return gocv.NewMat(), errors.Wrapf(ErrInvalidFrame, "%d bytes for %dx%dx%d frame", len(f.Pix), f.Width, f.Height, f.Channels)
	}

	// NewMatFromBytes shares f.Pix, so take a copy that OpenCV owns.
	m, err := gocv.NewMatFromBytes(f.Height, f.Width, typ, f.Pix)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "could not create mat from frame")
	}
	defer m.Close()
	return m.Clone(), nil
}
