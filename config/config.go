/*
NAME
  config.go

DESCRIPTION
  config.go provides the Config struct that parametrises an inspection
  session: input source, mask generation, capsule extraction, defect
  thresholds, belt geometry and actuation settings.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for an inspection session.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

// Enums to define inputs, relays and morphology modes.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	// Inputs.
	InputFile
	InputWebcam

	// Relays.
	RelayNone
	RelayHID
	RelayGPIO

	// Morphology modes.
	MorphCloseOpen // Close to join fragments then open to remove specks.
	MorphOpen      // Open only.
)

// DetectionParameters holds the thresholds used to decide whether a capsule is
// normal. Length, width and area ranges are inclusive. A snapshot of these is
// taken at the start of each frame so that an update never tears a frame.
type DetectionParameters struct {
	NormalLengthLower float64 // Minimum acceptable capsule length in pixels.
	NormalLengthUpper float64 // Maximum acceptable capsule length in pixels.
	NormalWidthLower  float64 // Minimum width; diagnostic only.
	NormalWidthUpper  float64 // Maximum width; diagnostic only.
	NormalAreaLower   float64 // Minimum acceptable silhouette area in pixels.
	NormalAreaUpper   float64 // Maximum acceptable silhouette area in pixels.

	// SimilarityOverall is the Hu-moment distance at or above which the whole
	// silhouette is considered misshapen.
	SimilarityOverall float64

	// SimilarityHead is the distance strictly above which the head or tail slice
	// is considered misshapen.
	SimilarityHead float64

	// LocalDefectLength is the contour length at or above which a surface
	// defect is reported.
	LocalDefectLength float64

	// Debug evaluates every criterion for every capsule and logs them all
	// rather than stopping at the first failure.
	Debug bool
}

// BeltGeometry describes the physical layout between the camera and the
// ejector.
type BeltGeometry struct {
	MMPerPixel      float64 // Millimetres per image pixel along the direction of travel.
	BeltLengthMM    float64 // Distance from the camera frame's right edge to the ejector.
	BeltSpeedMMPerS float64 // Belt speed in millimetres per second.

	// ActuatorResponse is subtracted from the travel time to compensate for the
	// time the valve takes to open.
	ActuatorResponse time.Duration
}

// Config provides parameters relevant to an inspection session. A new config
// must be passed to the constructor. Default values for these fields are
// defined as consts in variables.go.
type Config struct {
	// Logger holds an implementation of the Logger interface.
	// This must be set for a session to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	// Input defines the frame source.
	//
	// Valid values are defined by enums:
	// InputFile:
	//		Replay image files from the directory at InputPath.
	// InputWebcam:
	//		Capture from the video device with index CameraIndex.
	Input uint8

	InputPath   string // Directory of images for file input.
	CameraIndex uint   // Video device index for webcam input.
	FileFPS     uint   // Rate at which file frames are released, 0 means as fast as possible.
	Loop        bool   // If true file input restarts after the last image.
	Width       uint   // Width of the centre region of interest, 0 means full frame.
	Height      uint   // Height of the centre region of interest, 0 means full frame.

	// TemplatePath is the location of the reference capsule binary mask.
	TemplatePath string

	// Mask generation.
	MaskThreshold   float64  // Grayscale level separating capsule from belt.
	MaskMedianBlur  uint     // Median pre-blur aperture, 0 disables.
	MorphKernel     uint     // Side of the square structuring element.
	MorphMode       uint8    // MorphCloseOpen or MorphOpen.
	BackgroundLower [3]uint8 // Lower BGR bound of the belt colour to exclude.
	BackgroundUpper [3]uint8 // Upper BGR bound of the belt colour to exclude, all zero disables.

	// Capsule extraction.
	MinContourPoints uint    // Contours with this many points or fewer are discarded.
	MaxContourPoints uint    // Contours with this many points or more are discarded.
	BandLower        float64 // Optional band of the frame width capsule centres must lie in.
	BandUpper        float64
	ExpectedLength   float64 // Optional expected capsule length, 0 disables the filter.
	LengthTolerance  float64
	CropScaleLength  float64 // Expansion of the oriented rectangle along the long axis.
	CropScaleWidth   float64 // Expansion of the oriented rectangle along the short axis.
	HeadFraction     float64 // Fraction of the crop treated as head and as tail.

	// Local defect detection.
	LocalThreshold   float64 // Difference level counted as a defect pixel.
	LocalBlur        uint    // Median aperture used as the reference surface.
	LocalWindowLong  float64 // Half height of the central window as a fraction of length.
	LocalWindowShort float64 // Half width of the central window as a fraction of width.
	LocalDraw        bool    // Draw the longest defect contour for inspection.

	Detection DetectionParameters
	Belt      BeltGeometry

	// Actuation.
	Relay          uint8         // RelayNone, RelayHID or RelayGPIO.
	RelayPath      string        // hidraw device node for HID relays.
	RelayChannel   uint          // Relay channel driving the ejector.
	RelayPin       uint          // GPIO pin number for GPIO relays.
	RelayActiveLow bool          // GPIO relay energises on a low level.
	RetractionTime time.Duration // Minimum time the ejector is held before it may retract.
	TickPeriod     time.Duration // Period of the actuation task.

	// StatusWindow is how long a hardware error keeps the session degraded.
	StatusWindow time.Duration
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined. Relationships between
// fields that cannot be defaulted are returned as an error.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}

	var errs []string
	d := c.Detection
	if d.NormalLengthLower >= d.NormalLengthUpper {
		errs = append(errs, fmt.Sprintf("length range %v..%v", d.NormalLengthLower, d.NormalLengthUpper))
	}
	if d.NormalWidthLower >= d.NormalWidthUpper {
		errs = append(errs, fmt.Sprintf("width range %v..%v", d.NormalWidthLower, d.NormalWidthUpper))
	}
	if d.NormalAreaLower >= d.NormalAreaUpper {
		errs = append(errs, fmt.Sprintf("area range %v..%v", d.NormalAreaLower, d.NormalAreaUpper))
	}
	if c.MinContourPoints >= c.MaxContourPoints {
		errs = append(errs, fmt.Sprintf("contour point range %v..%v", c.MinContourPoints, c.MaxContourPoints))
	}
	if len(errs) != 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate. Keys that do not name a
// variable are not applied and are reported in the returned error.
func (c *Config) Update(vars map[string]string) error {
	known := make(map[string]bool, len(Variables))
	for _, value := range Variables {
		known[value.Name] = true
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}

	var unknown []string
	for k := range vars {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) != 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownVariable, strings.Join(unknown, ", "))
	}
	return nil
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
