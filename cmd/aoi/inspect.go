/*
DESCRIPTION
  inspect.go provides the inspect command, which classifies every capsule in
  a directory of recorded frames.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ausocean/aoi/classify"
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/aoi/device/file"
	"github.com/ausocean/aoi/vision"
)

var inspectOpts struct {
	input    string
	template string
	all      bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Classify the capsules in a directory of frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfg
		c.InputPath = inspectOpts.input
		if inspectOpts.template != "" {
			c.TemplatePath = inspectOpts.template
		}
		return inspect(cmd.Context(), c, os.Stdout, inspectOpts.all)
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOpts.input, "input", "i", "", "Directory of frames")
	inspectCmd.Flags().StringVarP(&inspectOpts.template, "template", "t", "", "Reference capsule mask (default from config)")
	inspectCmd.Flags().BoolVarP(&inspectOpts.all, "all", "a", false, "List normal capsules too")
	inspectCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(inspectCmd)
}

// capsuleVisitor is called for every capsule found while walking frames.
type capsuleVisitor func(f device.Frame, m classify.Measurement, v classify.Verdict)

// walkFrames inspects every frame of the image directory c.InputPath, calling
// visit for each capsule, and returns the number of frames inspected.
func walkFrames(ctx context.Context, c config.Config, desc string, visit capsuleVisitor) (int, error) {
	in, err := vision.NewInspector(c)
	if err != nil {
		return 0, fmt.Errorf("could not create inspector: %w", err)
	}
	defer in.Close()

	src := file.New(c.Logger)
	c.Loop, c.FileFPS = false, 0
	err = src.Set(c)
	if err != nil {
		return 0, err
	}
	err = src.Start()
	if err != nil {
		return 0, err
	}
	defer src.Stop()

	bar := progressbar.NewOptions(src.Len(),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	var n int
	for {
		f, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		bar.Add(1)

		res, err := in.Inspect(f, c.Detection)
		if err != nil {
			c.Logger.Warning(pkg+"skipping frame", "frame", f.Index, "error", err.Error())
			continue
		}
		n++
		for i := range res.Verdicts {
			visit(f, res.Measurements[i], res.Verdicts[i])
		}
	}
}

// inspect classifies the capsules of the frames in c.InputPath, writing a
// line per capsule and a summary to w.
func inspect(ctx context.Context, c config.Config, w io.Writer, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tX\tY\tLENGTH\tAREA\tOVERALL\tHEAD\tTAIL\tVERDICT")

	reasons := make(map[classify.Reason]int)
	var total int
	frames, err := walkFrames(ctx, c, "inspecting", func(f device.Frame, m classify.Measurement, v classify.Verdict) {
		total++
		reasons[v.Reason]++
		if !v.Abnormal && !all {
			return
		}
		verdict := "normal"
		if v.Abnormal {
			verdict = v.Reason.String()
		}
		fmt.Fprintf(tw, "%d\t%.0f\t%.0f\t%.1f\t%.0f\t%.4f\t%.4f\t%.4f\t%s\n",
			f.Index, m.Center.X, m.Center.Y, m.Length, m.Area,
			m.Similarity.Overall, m.Similarity.Head, m.Similarity.Tail, verdict)
	})
	tw.Flush()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d frames, %d capsules, %d abnormal\n", frames, total, total-reasons[classify.ReasonNone])
	var rs []classify.Reason
	for r := range reasons {
		if r != classify.ReasonNone {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	for _, r := range rs {
		fmt.Fprintf(w, "  %-9s %d\n", r.String()+":", reasons[r])
	}
	return nil
}
