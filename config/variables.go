/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

// ErrUnknownVariable is returned by Update for keys that name no variable.
var ErrUnknownVariable = errors.New("unrecognised config variable")

// Config map Keys.
const (
	KeyActuatorResponse  = "ActuatorResponse"
	KeyBackgroundLower   = "BackgroundLower"
	KeyBackgroundUpper   = "BackgroundUpper"
	KeyBandLower         = "BandLower"
	KeyBandUpper         = "BandUpper"
	KeyBeltLength        = "BeltLength"
	KeyBeltSpeed         = "BeltSpeed"
	KeyCameraIndex       = "CameraIndex"
	KeyCropScaleLength   = "CropScaleLength"
	KeyCropScaleWidth    = "CropScaleWidth"
	KeyDebug             = "Debug"
	KeyExpectedLength    = "ExpectedLength"
	KeyFileFPS           = "FileFPS"
	KeyHeadFraction      = "HeadFraction"
	KeyHeight            = "Height"
	KeyInput             = "Input"
	KeyInputPath         = "InputPath"
	KeyLengthTolerance   = "LengthTolerance"
	KeyLocalBlur         = "LocalBlur"
	KeyLocalDefectLength = "LocalDefectLength"
	KeyLocalDraw         = "LocalDraw"
	KeyLocalThreshold    = "LocalThreshold"
	KeyLocalWindowLong   = "LocalWindowLong"
	KeyLocalWindowShort  = "LocalWindowShort"
	KeyLogging           = "logging"
	KeyLoop              = "Loop"
	KeyMaskMedianBlur    = "MaskMedianBlur"
	KeyMaskThreshold     = "MaskThreshold"
	KeyMaxContourPoints  = "MaxContourPoints"
	KeyMinContourPoints  = "MinContourPoints"
	KeyMMPerPixel        = "MMPerPixel"
	KeyMorphKernel       = "MorphKernel"
	KeyMorphMode         = "MorphMode"
	KeyNormalAreaLower   = "NormalAreaLower"
	KeyNormalAreaUpper   = "NormalAreaUpper"
	KeyNormalLengthLower = "NormalLengthLower"
	KeyNormalLengthUpper = "NormalLengthUpper"
	KeyNormalWidthLower  = "NormalWidthLower"
	KeyNormalWidthUpper  = "NormalWidthUpper"
	KeyRelay             = "Relay"
	KeyRelayActiveLow    = "RelayActiveLow"
	KeyRelayChannel      = "RelayChannel"
	KeyRelayPath         = "RelayPath"
	KeyRelayPin          = "RelayPin"
	KeyRetractionTime    = "RetractionTime"
	KeySimilarityHead    = "SimilarityHead"
	KeySimilarity        = "SimilarityOverall"
	KeyStatusWindow      = "StatusWindow"
	KeyTemplatePath      = "TemplatePath"
	KeyTickPeriod        = "TickPeriod"
	KeyWidth             = "Width"
)

// Config map parameter types.
const (
	typeString   = "string"
	typeUint     = "uint"
	typeBool     = "bool"
	typeFloat    = "float"
	typeDuration = "duration"
	typeBGR      = "bgr"
)

// Default variable values.
const (
	// General defaults.
	defaultInput        = InputWebcam
	defaultVerbosity    = logging.Info
	defaultTemplatePath = "/etc/aoi/template.png"
	defaultStatusWindow = 5 * time.Second

	// Mask defaults.
	defaultMaskThreshold = 125
	defaultMorphKernel   = 3
	defaultMorphMode     = MorphCloseOpen
	maxMorphKernel       = 15

	// Extraction defaults.
	defaultMinContourPoints = 400
	defaultMaxContourPoints = 1500
	defaultCropScaleLength  = 1.1
	defaultCropScaleWidth   = 1.2
	defaultHeadFraction     = 0.2

	// Local defect defaults.
	defaultLocalThreshold   = 6
	defaultLocalBlur        = 15
	defaultLocalWindowLong  = 0.15
	defaultLocalWindowShort = 0.45

	// Detection parameter defaults.
	defaultNormalLengthLower = 310
	defaultNormalLengthUpper = 330
	defaultNormalWidthLower  = 100
	defaultNormalWidthUpper  = 150
	defaultNormalAreaLower   = 30500
	defaultNormalAreaUpper   = 35000
	defaultSimilarity        = 0.05
	defaultSimilarityHead    = 0.3
	defaultLocalDefectLength = 75

	// Belt defaults.
	defaultMMPerPixel = 0.061
	defaultBeltLength = 390
	defaultBeltSpeed  = 114

	// Actuation defaults.
	defaultRelay          = RelayHID
	defaultRelayPath      = "/dev/hidraw0"
	defaultRelayChannel   = 1
	defaultRetractionTime = 100 * time.Millisecond
	defaultTickPeriod     = 10 * time.Millisecond
	maxTickPeriod         = 100 * time.Millisecond
)

// Variables describes the variables that can be used for session control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyActuatorResponse,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.Belt.ActuatorResponse = parseDuration(KeyActuatorResponse, v, c) },
		Validate: func(c *Config) {
			if c.Belt.ActuatorResponse < 0 {
				c.LogInvalidField(KeyActuatorResponse, time.Duration(0))
				c.Belt.ActuatorResponse = 0
			}
		},
	},
	{
		Name:   KeyBackgroundLower,
		Type:   typeBGR,
		Update: func(c *Config, v string) { c.BackgroundLower = parseBGR(KeyBackgroundLower, v, c) },
	},
	{
		Name:   KeyBackgroundUpper,
		Type:   typeBGR,
		Update: func(c *Config, v string) { c.BackgroundUpper = parseBGR(KeyBackgroundUpper, v, c) },
	},
	{
		Name:   KeyBandLower,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.BandLower = parseFloat(KeyBandLower, v, c) },
	},
	{
		Name:   KeyBandUpper,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.BandUpper = parseFloat(KeyBandUpper, v, c) },
		Validate: func(c *Config) {
			if c.BandLower == 0 && c.BandUpper == 0 {
				return
			}
			if c.BandLower < 0 || c.BandUpper > 1 || c.BandLower >= c.BandUpper {
				c.LogInvalidField(KeyBandUpper, "disabled")
				c.BandLower, c.BandUpper = 0, 0
			}
		},
	},
	{
		Name:   KeyBeltLength,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Belt.BeltLengthMM = parseFloat(KeyBeltLength, v, c) },
		Validate: func(c *Config) {
			c.Belt.BeltLengthMM = positive(KeyBeltLength, c.Belt.BeltLengthMM, c, defaultBeltLength)
		},
	},
	{
		Name:   KeyBeltSpeed,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Belt.BeltSpeedMMPerS = parseFloat(KeyBeltSpeed, v, c) },
		Validate: func(c *Config) {
			c.Belt.BeltSpeedMMPerS = positive(KeyBeltSpeed, c.Belt.BeltSpeedMMPerS, c, defaultBeltSpeed)
		},
	},
	{
		Name:   KeyCameraIndex,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.CameraIndex = parseUint(KeyCameraIndex, v, c) },
	},
	{
		Name:   KeyCropScaleLength,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.CropScaleLength = parseFloat(KeyCropScaleLength, v, c) },
		Validate: func(c *Config) {
			if c.CropScaleLength < 1 {
				c.LogInvalidField(KeyCropScaleLength, defaultCropScaleLength)
				c.CropScaleLength = defaultCropScaleLength
			}
		},
	},
	{
		Name:   KeyCropScaleWidth,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.CropScaleWidth = parseFloat(KeyCropScaleWidth, v, c) },
		Validate: func(c *Config) {
			if c.CropScaleWidth < 1 {
				c.LogInvalidField(KeyCropScaleWidth, defaultCropScaleWidth)
				c.CropScaleWidth = defaultCropScaleWidth
			}
		},
	},
	{
		Name:   KeyDebug,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Detection.Debug = parseBool(KeyDebug, v, c) },
	},
	{
		Name:   KeyExpectedLength,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.ExpectedLength = parseFloat(KeyExpectedLength, v, c) },
		Validate: func(c *Config) {
			if c.ExpectedLength < 0 {
				c.LogInvalidField(KeyExpectedLength, 0)
				c.ExpectedLength = 0
			}
		},
	},
	{
		Name:   KeyFileFPS,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.FileFPS = parseUint(KeyFileFPS, v, c) },
	},
	{
		Name:   KeyHeadFraction,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.HeadFraction = parseFloat(KeyHeadFraction, v, c) },
		Validate: func(c *Config) {
			if c.HeadFraction <= 0 || c.HeadFraction >= 0.5 {
				c.LogInvalidField(KeyHeadFraction, defaultHeadFraction)
				c.HeadFraction = defaultHeadFraction
			}
		},
	},
	{
		Name:   KeyHeight,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Height = parseUint(KeyHeight, v, c) },
	},
	{
		Name: KeyInput,
		Type: "enum:file,webcam",
		Update: func(c *Config, v string) {
			c.Input = parseEnum(
				KeyInput,
				v,
				map[string]uint8{
					"file":   InputFile,
					"webcam": InputWebcam,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Input {
			case InputFile, InputWebcam:
			default:
				c.LogInvalidField(KeyInput, defaultInput)
				c.Input = defaultInput
			}
		},
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name:   KeyLengthTolerance,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LengthTolerance = parseFloat(KeyLengthTolerance, v, c) },
	},
	{
		Name:   KeyLocalBlur,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.LocalBlur = parseUint(KeyLocalBlur, v, c) },
		Validate: func(c *Config) {
			if c.LocalBlur < 3 || c.LocalBlur%2 == 0 {
				c.LogInvalidField(KeyLocalBlur, defaultLocalBlur)
				c.LocalBlur = defaultLocalBlur
			}
		},
	},
	{
		Name:   KeyLocalDefectLength,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.LocalDefectLength = parseFloat(KeyLocalDefectLength, v, c) },
		Validate: func(c *Config) {
			c.Detection.LocalDefectLength = positive(KeyLocalDefectLength, c.Detection.LocalDefectLength, c, defaultLocalDefectLength)
		},
	},
	{
		Name:   KeyLocalDraw,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.LocalDraw = parseBool(KeyLocalDraw, v, c) },
	},
	{
		Name:   KeyLocalThreshold,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LocalThreshold = parseFloat(KeyLocalThreshold, v, c) },
		Validate: func(c *Config) {
			c.LocalThreshold = positive(KeyLocalThreshold, c.LocalThreshold, c, defaultLocalThreshold)
		},
	},
	{
		Name:   KeyLocalWindowLong,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LocalWindowLong = parseFloat(KeyLocalWindowLong, v, c) },
		Validate: func(c *Config) {
			c.LocalWindowLong = fraction(KeyLocalWindowLong, c.LocalWindowLong, c, defaultLocalWindowLong)
		},
	},
	{
		Name:   KeyLocalWindowShort,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.LocalWindowShort = parseFloat(KeyLocalWindowShort, v, c) },
		Validate: func(c *Config) {
			c.LocalWindowShort = fraction(KeyLocalWindowShort, c.LocalWindowShort, c, defaultLocalWindowShort)
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyLoop,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Loop = parseBool(KeyLoop, v, c) },
	},
	{
		Name:   KeyMaskMedianBlur,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaskMedianBlur = parseUint(KeyMaskMedianBlur, v, c) },
		Validate: func(c *Config) {
			if c.MaskMedianBlur != 0 && c.MaskMedianBlur%2 == 0 {
				c.LogInvalidField(KeyMaskMedianBlur, 0)
				c.MaskMedianBlur = 0
			}
		},
	},
	{
		Name:   KeyMaskThreshold,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.MaskThreshold = parseFloat(KeyMaskThreshold, v, c) },
		Validate: func(c *Config) {
			if c.MaskThreshold <= 0 || c.MaskThreshold >= 255 {
				c.LogInvalidField(KeyMaskThreshold, defaultMaskThreshold)
				c.MaskThreshold = defaultMaskThreshold
			}
		},
	},
	{
		Name:   KeyMaxContourPoints,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxContourPoints = parseUint(KeyMaxContourPoints, v, c) },
		Validate: func(c *Config) {
			c.MaxContourPoints = lessThanOrEqual(KeyMaxContourPoints, c.MaxContourPoints, 0, c, defaultMaxContourPoints)
		},
	},
	{
		Name:   KeyMinContourPoints,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MinContourPoints = parseUint(KeyMinContourPoints, v, c) },
		Validate: func(c *Config) {
			c.MinContourPoints = lessThanOrEqual(KeyMinContourPoints, c.MinContourPoints, 0, c, defaultMinContourPoints)
		},
	},
	{
		Name:   KeyMMPerPixel,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Belt.MMPerPixel = parseFloat(KeyMMPerPixel, v, c) },
		Validate: func(c *Config) {
			c.Belt.MMPerPixel = positive(KeyMMPerPixel, c.Belt.MMPerPixel, c, defaultMMPerPixel)
		},
	},
	{
		Name:   KeyMorphKernel,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MorphKernel = parseUint(KeyMorphKernel, v, c) },
		Validate: func(c *Config) {
			if c.MorphKernel < 3 || c.MorphKernel > maxMorphKernel {
				c.LogInvalidField(KeyMorphKernel, defaultMorphKernel)
				c.MorphKernel = defaultMorphKernel
			}
		},
	},
	{
		Name: KeyMorphMode,
		Type: "enum:closeopen,open",
		Update: func(c *Config, v string) {
			c.MorphMode = parseEnum(KeyMorphMode, v, map[string]uint8{"closeopen": MorphCloseOpen, "open": MorphOpen}, c)
		},
		Validate: func(c *Config) {
			switch c.MorphMode {
			case MorphCloseOpen, MorphOpen:
			default:
				c.LogInvalidField(KeyMorphMode, defaultMorphMode)
				c.MorphMode = defaultMorphMode
			}
		},
	},
	{
		Name:   KeyNormalAreaLower,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.NormalAreaLower = parseFloat(KeyNormalAreaLower, v, c) },
		Validate: func(c *Config) {
			c.Detection.NormalAreaLower = positive(KeyNormalAreaLower, c.Detection.NormalAreaLower, c, defaultNormalAreaLower)
		},
	},
	{
		Name:   KeyNormalAreaUpper,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.NormalAreaUpper = parseFloat(KeyNormalAreaUpper, v, c) },
		Validate: func(c *Config) {
			c.Detection.NormalAreaUpper = positive(KeyNormalAreaUpper, c.Detection.NormalAreaUpper, c, defaultNormalAreaUpper)
		},
	},
	{
		Name:   KeyNormalLengthLower,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.NormalLengthLower = parseFloat(KeyNormalLengthLower, v, c) },
		Validate: func(c *Config) {
			c.Detection.NormalLengthLower = positive(KeyNormalLengthLower, c.Detection.NormalLengthLower, c, defaultNormalLengthLower)
		},
	},
	{
		Name:   KeyNormalLengthUpper,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.NormalLengthUpper = parseFloat(KeyNormalLengthUpper, v, c) },
		Validate: func(c *Config) {
			c.Detection.NormalLengthUpper = positive(KeyNormalLengthUpper, c.Detection.NormalLengthUpper, c, defaultNormalLengthUpper)
		},
	},
	{
		Name:   KeyNormalWidthLower,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.NormalWidthLower = parseFloat(KeyNormalWidthLower, v, c) },
		Validate: func(c *Config) {
			c.Detection.NormalWidthLower = positive(KeyNormalWidthLower, c.Detection.NormalWidthLower, c, defaultNormalWidthLower)
		},
	},
	{
		Name:   KeyNormalWidthUpper,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.NormalWidthUpper = parseFloat(KeyNormalWidthUpper, v, c) },
		Validate: func(c *Config) {
			c.Detection.NormalWidthUpper = positive(KeyNormalWidthUpper, c.Detection.NormalWidthUpper, c, defaultNormalWidthUpper)
		},
	},
	{
		Name: KeyRelay,
		Type: "enum:none,hid,gpio",
		Update: func(c *Config, v string) {
			c.Relay = parseEnum(KeyRelay, v, map[string]uint8{"none": RelayNone, "hid": RelayHID, "gpio": RelayGPIO}, c)
		},
		Validate: func(c *Config) {
			switch c.Relay {
			case RelayNone, RelayHID, RelayGPIO:
			default:
				c.LogInvalidField(KeyRelay, defaultRelay)
				c.Relay = defaultRelay
			}
		},
	},
	{
		Name:   KeyRelayActiveLow,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.RelayActiveLow = parseBool(KeyRelayActiveLow, v, c) },
	},
	{
		Name:   KeyRelayChannel,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RelayChannel = parseUint(KeyRelayChannel, v, c) },
		Validate: func(c *Config) {
			c.RelayChannel = lessThanOrEqual(KeyRelayChannel, c.RelayChannel, 0, c, defaultRelayChannel)
		},
	},
	{
		Name:   KeyRelayPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.RelayPath = v },
		Validate: func(c *Config) {
			if c.Relay == RelayHID && c.RelayPath == "" {
				c.LogInvalidField(KeyRelayPath, defaultRelayPath)
				c.RelayPath = defaultRelayPath
			}
		},
	},
	{
		Name:   KeyRelayPin,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.RelayPin = parseUint(KeyRelayPin, v, c) },
	},
	{
		Name:   KeyRetractionTime,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.RetractionTime = parseDuration(KeyRetractionTime, v, c) },
		Validate: func(c *Config) {
			if c.RetractionTime <= 0 {
				c.LogInvalidField(KeyRetractionTime, defaultRetractionTime)
				c.RetractionTime = defaultRetractionTime
			}
		},
	},
	{
		Name:   KeySimilarityHead,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.SimilarityHead = parseFloat(KeySimilarityHead, v, c) },
		Validate: func(c *Config) {
			c.Detection.SimilarityHead = positive(KeySimilarityHead, c.Detection.SimilarityHead, c, defaultSimilarityHead)
		},
	},
	{
		Name:   KeySimilarity,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Detection.SimilarityOverall = parseFloat(KeySimilarity, v, c) },
		Validate: func(c *Config) {
			c.Detection.SimilarityOverall = positive(KeySimilarity, c.Detection.SimilarityOverall, c, defaultSimilarity)
		},
	},
	{
		Name:   KeyStatusWindow,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.StatusWindow = parseDuration(KeyStatusWindow, v, c) },
		Validate: func(c *Config) {
			if c.StatusWindow <= 0 {
				c.LogInvalidField(KeyStatusWindow, defaultStatusWindow)
				c.StatusWindow = defaultStatusWindow
			}
		},
	},
	{
		Name:   KeyTemplatePath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.TemplatePath = v },
		Validate: func(c *Config) {
			if c.TemplatePath == "" {
				c.LogInvalidField(KeyTemplatePath, defaultTemplatePath)
				c.TemplatePath = defaultTemplatePath
			}
		},
	},
	{
		Name:   KeyTickPeriod,
		Type:   typeDuration,
		Update: func(c *Config, v string) { c.TickPeriod = parseDuration(KeyTickPeriod, v, c) },
		Validate: func(c *Config) {
			if c.TickPeriod <= 0 || c.TickPeriod >= maxTickPeriod {
				c.LogInvalidField(KeyTickPeriod, defaultTickPeriod)
				c.TickPeriod = defaultTickPeriod
			}
		},
	},
	{
		Name:   KeyWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Width = parseUint(KeyWidth, v, c) },
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseFloat(n, v string, c *Config) float64 {
	_v, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected float for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

// parseDuration accepts Go duration strings ("150ms") or a bare number of seconds.
func parseDuration(n, v string, c *Config) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	s, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected duration for param %s", n), "value", v)
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// parseBGR parses a comma separated blue,green,red triple.
func parseBGR(n, v string, c *Config) (bgr [3]uint8) {
	v = strings.ReplaceAll(v, " ", "")
	parts := strings.Split(v, ",")
	if len(parts) != 3 {
		c.Logger.Warning(fmt.Sprintf("expected b,g,r for param %s", n), "value", v)
		return
	}
	for i, p := range parts {
		_v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			c.Logger.Warning(fmt.Sprintf("invalid channel for param %s", n), "value", p)
		}
		bgr[i] = uint8(_v)
	}
	return
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}

func positive(n string, v float64, c *Config, def float64) float64 {
	if v <= 0 {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}

func fraction(n string, v float64, c *Config, def float64) float64 {
	if v <= 0 || v > 0.5 {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
