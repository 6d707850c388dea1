/*
DESCRIPTION
  calibrate.go provides the calibrate command, which measures the capsules in
  a directory of frames of known good capsules and suggests detection
  parameters from their distribution.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ausocean/aoi/classify"
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
)

// Calibration constants.
const (
	rangeSigmas     = 3   // Normal ranges are the mean plus or minus this many standard deviations.
	thresholdMargin = 1.5 // Similarity thresholds are the 99th percentile times this.
	histBins        = 30
)

var calibrateOpts struct {
	input    string
	template string
	plots    string
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Suggest detection parameters from frames of good capsules",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		c.InputPath = calibrateOpts.input
		if calibrateOpts.template != "" {
			c.TemplatePath = calibrateOpts.template
		}

		// Evaluate every criterion so local defect lengths are measured too.
		c.Detection.Debug = true

		var s samples
		_, err := walkFrames(cmd.Context(), c, "measuring", s.add)
		if err != nil {
			return err
		}
		if len(s.length) == 0 {
			return fmt.Errorf("no capsules found in %s", c.InputPath)
		}

		s.suggest(os.Stdout)
		if calibrateOpts.plots != "" {
			return s.plot(calibrateOpts.plots)
		}
		return nil
	},
}

func init() {
	calibrateCmd.Flags().StringVarP(&calibrateOpts.input, "input", "i", "", "Directory of frames of good capsules")
	calibrateCmd.Flags().StringVarP(&calibrateOpts.template, "template", "t", "", "Reference capsule mask (default from config)")
	calibrateCmd.Flags().StringVarP(&calibrateOpts.plots, "plots", "p", "", "Directory to write measurement histograms to")
	calibrateCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(calibrateCmd)
}

// samples holds capsule measurements.
type samples struct {
	length, width, area []float64
	overall, head, tail []float64
	local               []float64
}

func (s *samples) add(f device.Frame, m classify.Measurement, v classify.Verdict) {
	s.length = append(s.length, m.Length)
	s.width = append(s.width, m.Width)
	s.area = append(s.area, m.Area)
	if !m.Similarity.Ambiguous {
		s.overall = append(s.overall, m.Similarity.Overall)
		s.head = append(s.head, m.Similarity.Head)
		s.tail = append(s.tail, m.Similarity.Tail)
	}
	s.local = append(s.local, v.LocalDefectLength)
}

// suggest writes suggested parameters to w in parameter file form.
func (s *samples) suggest(w io.Writer) {
	fmt.Fprintf(w, "# %d capsules\n", len(s.length))
	for _, r := range []struct {
		name         string
		lower, upper string
		x            []float64
	}{
		{"length", config.KeyNormalLengthLower, config.KeyNormalLengthUpper, s.length},
		{"width", config.KeyNormalWidthLower, config.KeyNormalWidthUpper, s.width},
		{"area", config.KeyNormalAreaLower, config.KeyNormalAreaUpper, s.area},
	} {
		mean, std := meanStdDev(r.x)
		fmt.Fprintf(w, "# %s mean %.1f std %.1f\n", r.name, mean, std)
		fmt.Fprintf(w, "%s=%.0f\n", r.lower, math.Floor(mean-rangeSigmas*std))
		fmt.Fprintf(w, "%s=%.0f\n", r.upper, math.Ceil(mean+rangeSigmas*std))
	}

	if len(s.overall) != 0 {
		head := append(append([]float64(nil), s.head...), s.tail...)
		fmt.Fprintf(w, "%s=%.4f\n", config.KeySimilarity, thresholdMargin*percentile(s.overall, 0.99))
		fmt.Fprintf(w, "%s=%.4f\n", config.KeySimilarityHead, thresholdMargin*percentile(head, 0.99))
	}
	fmt.Fprintf(w, "%s=%.0f\n", config.KeyLocalDefectLength, math.Ceil(thresholdMargin*percentile(s.local, 0.99)))
}

// plot writes a histogram of each measurement to dir.
func (s *samples) plot(dir string) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	for _, h := range []struct {
		name string
		x    []float64
	}{
		{"length", s.length},
		{"width", s.width},
		{"area", s.area},
		{"overall", s.overall},
		{"head", s.head},
		{"tail", s.tail},
		{"local", s.local},
	} {
		if len(h.x) == 0 {
			continue
		}
		p := plot.New()
		p.Title.Text = "Capsule " + h.name
		p.X.Label.Text = h.name
		p.Y.Label.Text = "capsules"

		hist, err := plotter.NewHist(plotter.Values(h.x), histBins)
		if err != nil {
			return fmt.Errorf("could not make %s histogram: %w", h.name, err)
		}
		p.Add(hist)

		path := filepath.Join(dir, h.name+".png")
		err = p.Save(6*vg.Inch, 4*vg.Inch, path)
		if err != nil {
			return fmt.Errorf("could not save %s: %w", path, err)
		}
	}
	return nil
}

func meanStdDev(x []float64) (mean, std float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	return stat.MeanStdDev(x, nil)
}

// percentile returns the p quantile of x, which is left unchanged.
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}
