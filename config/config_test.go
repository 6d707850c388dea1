/*
DESCRIPTION
  config_test.go provides testing for the Config struct methods (Validate,
  Update and Load).

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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func defaults(l logging.Logger) Config {
	return Config{
		Logger:           l,
		LogLevel:         defaultVerbosity,
		Input:            defaultInput,
		TemplatePath:     defaultTemplatePath,
		MaskThreshold:    defaultMaskThreshold,
		MorphKernel:      defaultMorphKernel,
		MorphMode:        defaultMorphMode,
		MinContourPoints: defaultMinContourPoints,
		MaxContourPoints: defaultMaxContourPoints,
		CropScaleLength:  defaultCropScaleLength,
		CropScaleWidth:   defaultCropScaleWidth,
		HeadFraction:     defaultHeadFraction,
		LocalThreshold:   defaultLocalThreshold,
		LocalBlur:        defaultLocalBlur,
		LocalWindowLong:  defaultLocalWindowLong,
		LocalWindowShort: defaultLocalWindowShort,
		Detection: DetectionParameters{
			NormalLengthLower: defaultNormalLengthLower,
			NormalLengthUpper: defaultNormalLengthUpper,
			NormalWidthLower:  defaultNormalWidthLower,
			NormalWidthUpper:  defaultNormalWidthUpper,
			NormalAreaLower:   defaultNormalAreaLower,
			NormalAreaUpper:   defaultNormalAreaUpper,
			SimilarityOverall: defaultSimilarity,
			SimilarityHead:    defaultSimilarityHead,
			LocalDefectLength: defaultLocalDefectLength,
		},
		Belt: BeltGeometry{
			MMPerPixel:      defaultMMPerPixel,
			BeltLengthMM:    defaultBeltLength,
			BeltSpeedMMPerS: defaultBeltSpeed,
		},
		Relay:          defaultRelay,
		RelayPath:      defaultRelayPath,
		RelayChannel:   defaultRelayChannel,
		RetractionTime: defaultRetractionTime,
		TickPeriod:     defaultTickPeriod,
		StatusWindow:   defaultStatusWindow,
	}
}

func TestValidate(t *testing.T) {
	dl := &dumbLogger{}

	want := defaults(dl)

	got := Config{Logger: dl, LogLevel: defaultVerbosity}
	err := (&got).Validate()
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}

	if !cmp.Equal(got, want) {
		t.Errorf("configs not equal\n%s", cmp.Diff(want, got))
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{
			name:   "length",
			modify: func(c *Config) { c.Detection.NormalLengthLower, c.Detection.NormalLengthUpper = 330, 310 },
			want:   "length range",
		},
		{
			name:   "area equal bounds",
			modify: func(c *Config) { c.Detection.NormalAreaLower, c.Detection.NormalAreaUpper = 100, 100 },
			want:   "area range",
		},
		{
			name:   "points",
			modify: func(c *Config) { c.MinContourPoints, c.MaxContourPoints = 900, 800 },
			want:   "contour point range",
		},
	}

	for _, test := range tests {
		c := defaults(&dumbLogger{})
		test.modify(&c)
		err := c.Validate()
		if err == nil {
			t.Errorf("%s: expected error", test.name)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: unexpected error: %v", test.name, err)
		}
	}
}

func TestUpdate(t *testing.T) {
	updateMap := map[string]string{
		"ActuatorResponse":  "20ms",
		"BackgroundLower":   "0, 30, 60",
		"BackgroundUpper":   "40,90,140",
		"BandLower":         "0.1",
		"BandUpper":         "0.9",
		"BeltLength":        "400",
		"BeltSpeed":         "120",
		"CameraIndex":       "2",
		"CropScaleLength":   "1.2",
		"CropScaleWidth":    "1.3",
		"Debug":             "true",
		"ExpectedLength":    "320",
		"FileFPS":           "10",
		"HeadFraction":      "0.25",
		"Height":            "1000",
		"Input":             "file",
		"InputPath":         "/frames",
		"LengthTolerance":   "15",
		"LocalBlur":         "11",
		"LocalDefectLength": "60",
		"LocalDraw":         "true",
		"LocalThreshold":    "8",
		"LocalWindowLong":   "0.2",
		"LocalWindowShort":  "0.4",
		"logging":           "Error",
		"Loop":              "true",
		"MaskMedianBlur":    "5",
		"MaskThreshold":     "100",
		"MaxContourPoints":  "1100",
		"MinContourPoints":  "700",
		"MMPerPixel":        "0.05",
		"MorphKernel":       "5",
		"MorphMode":         "open",
		"NormalAreaLower":   "30000",
		"NormalAreaUpper":   "36000",
		"NormalLengthLower": "300",
		"NormalLengthUpper": "340",
		"NormalWidthLower":  "90",
		"NormalWidthUpper":  "160",
		"Relay":             "gpio",
		"RelayActiveLow":    "true",
		"RelayChannel":      "2",
		"RelayPath":         "/dev/hidraw1",
		"RelayPin":          "17",
		"RetractionTime":    "0.2",
		"SimilarityHead":    "0.25",
		"SimilarityOverall": "0.1",
		"StatusWindow":      "10s",
		"TemplatePath":      "/tmp/template.png",
		"TickPeriod":        "5ms",
		"Width":             "2160",
	}

	dl := &dumbLogger{}

	want := Config{
		Logger:           dl,
		LogLevel:         logging.Error,
		Input:            InputFile,
		InputPath:        "/frames",
		CameraIndex:      2,
		FileFPS:          10,
		Loop:             true,
		Width:            2160,
		Height:           1000,
		TemplatePath:     "/tmp/template.png",
		MaskThreshold:    100,
		MaskMedianBlur:   5,
		MorphKernel:      5,
		MorphMode:        MorphOpen,
		BackgroundLower:  [3]uint8{0, 30, 60},
		BackgroundUpper:  [3]uint8{40, 90, 140},
		MinContourPoints: 700,
		MaxContourPoints: 1100,
		BandLower:        0.1,
		BandUpper:        0.9,
		ExpectedLength:   320,
		LengthTolerance:  15,
		CropScaleLength:  1.2,
		CropScaleWidth:   1.3,
		HeadFraction:     0.25,
		LocalThreshold:   8,
		LocalBlur:        11,
		LocalWindowLong:  0.2,
		LocalWindowShort: 0.4,
		LocalDraw:        true,
		Detection: DetectionParameters{
			NormalLengthLower: 300,
			NormalLengthUpper: 340,
			NormalWidthLower:  90,
			NormalWidthUpper:  160,
			NormalAreaLower:   30000,
			NormalAreaUpper:   36000,
			SimilarityOverall: 0.1,
			SimilarityHead:    0.25,
			LocalDefectLength: 60,
			Debug:             true,
		},
		Belt: BeltGeometry{
			MMPerPixel:       0.05,
			BeltLengthMM:     400,
			BeltSpeedMMPerS:  120,
			ActuatorResponse: 20 * time.Millisecond,
		},
		Relay:          RelayGPIO,
		RelayPath:      "/dev/hidraw1",
		RelayChannel:   2,
		RelayPin:       17,
		RelayActiveLow: true,
		RetractionTime: 200 * time.Millisecond,
		TickPeriod:     5 * time.Millisecond,
		StatusWindow:   10 * time.Second,
	}

	got := Config{Logger: dl}
	err := got.Update(updateMap)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if !cmp.Equal(want, got) {
		t.Errorf("configs not equal\n%s", cmp.Diff(want, got))
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	got := Config{Logger: &dumbLogger{}}
	err := got.Update(map[string]string{
		"NormalLengthLower": "305",
		"Simlarity":         "0.1",
		"Bogus":             "1",
	})
	if !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Bogus, Simlarity") {
		t.Errorf("error does not name unknown keys: %v", err)
	}
	if got.Detection.NormalLengthLower != 305 {
		t.Errorf("known key not applied, got: %v", got.Detection.NormalLengthLower)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aoi.env")
	const params = `# Capsule size 0.
NormalLengthLower=312
NormalLengthUpper=328
SimilarityOverall=0.08
Relay=none
`
	err := os.WriteFile(path, []byte(params), 0o644)
	if err != nil {
		t.Fatalf("could not write parameter file: %v", err)
	}

	want := defaults(&dumbLogger{})
	want.Detection.NormalLengthLower = 312
	want.Detection.NormalLengthUpper = 328
	want.Detection.SimilarityOverall = 0.08
	want.Relay = RelayNone
	want.RelayPath = ""

	got := Config{Logger: want.Logger, LogLevel: defaultVerbosity}
	err = got.Load(path)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	if !cmp.Equal(want, got) {
		t.Errorf("configs not equal\n%s", cmp.Diff(want, got))
	}
}

func TestLoadMissingFile(t *testing.T) {
	c := Config{Logger: &dumbLogger{}}
	err := c.Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
