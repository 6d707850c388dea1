/*
DESCRIPTION
  file.go provides an implementation of the FrameSource interface that
  replays a directory of still images, e.g. frames saved from the line
  camera.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package file provides an implementation of FrameSource for image files.
package file

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/utils/logging"
	"github.com/disintegration/gift"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Extensions of the files that are replayed.
var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Replay is an implementation of the FrameSource interface for a directory of
// images. Images are replayed in lexical file name order.
type Replay struct {
	log logging.Logger

	mu        sync.Mutex
	dir       string
	loop      bool
	period    time.Duration
	width     int
	height    int
	set       bool
	files     []string
	next      int
	index     uint64
	last      time.Time
	isRunning bool
}

// New returns a new Replay.
func New(l logging.Logger) *Replay { return &Replay{log: l} }

// NewWith returns a new Replay with required params provided i.e. the Set
// method does not need to be called.
func NewWith(l logging.Logger, dir string, loop bool) *Replay {
	return &Replay{log: l, dir: dir, loop: loop, set: true}
}

// Name returns the name of the device.
func (r *Replay) Name() string { return "File" }

// Set uses InputPath, Loop, FileFPS, Width and Height from c.
func (r *Replay) Set(c config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.InputPath == "" {
		return errors.New("no input path for file replay")
	}
	r.dir = c.InputPath
	r.loop = c.Loop
	r.period = 0
	if c.FileFPS != 0 {
		r.period = time.Second / time.Duration(c.FileFPS)
	}
	r.width, r.height = int(c.Width), int(c.Height)
	r.set = true
	return nil
}

// Start lists the images in the input directory.
func (r *Replay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		return errors.New("file replay has not been set with config")
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("could not read image directory: %w", err)
	}
	r.files = r.files[:0]
	for _, e := range entries {
		if e.IsDir() || !extensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		r.files = append(r.files, filepath.Join(r.dir, e.Name()))
	}
	if len(r.files) == 0 {
		return fmt.Errorf("no images in %s", r.dir)
	}
	sort.Strings(r.files)
	r.next = 0
	r.isRunning = true
	r.log.Info("replaying images", "dir", r.dir, "count", len(r.files), "loop", r.loop)
	return nil
}

// Len returns the number of images found by Start.
func (r *Replay) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Stop ends the replay such that any further reads will fail.
func (r *Replay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isRunning = false
	return nil
}

// Read returns the next image as a frame stamped with the current time. When
// the last image has been returned io.EOF is returned, unless looping.
func (r *Replay) Read(ctx context.Context) (device.Frame, error) {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return device.Frame{}, errors.New("file replay not started")
	}
	if r.next >= len(r.files) {
		if !r.loop {
			r.mu.Unlock()
			return device.Frame{}, io.EOF
		}
		r.log.Info("looping image directory")
		r.next = 0
	}
	path := r.files[r.next]
	r.next++
	wait := time.Until(r.last.Add(r.period))
	r.mu.Unlock()

	if r.period != 0 && wait > 0 {
		select {
		case <-ctx.Done():
			return device.Frame{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	f, err := r.load(path)
	if err != nil {
		return device.Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = time.Now()
	f.Time = r.last
	f.Index = r.index
	r.index++
	return f, nil
}

func (r *Replay) load(path string) (device.Frame, error) {
	fd, err := os.Open(path)
	if err != nil {
		return device.Frame{}, fmt.Errorf("could not open image: %w", err)
	}
	defer fd.Close()

	img, _, err := image.Decode(fd)
	if err != nil {
		return device.Frame{}, fmt.Errorf("could not decode %s: %w", filepath.Base(path), err)
	}
	return device.FromImage(Crop(img, r.width, r.height)), nil
}

// Crop returns the w by h region at the centre of img. A zero w or h keeps
// the full extent in that direction.
func Crop(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	roi := device.CentreROI(b.Dx(), b.Dy(), w, h).Add(b.Min)
	if roi == b {
		return img
	}

	g := gift.New(gift.Crop(roi))
	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(g.Bounds(b))
	} else {
		dst = image.NewRGBA(g.Bounds(b))
	}
	g.Draw(dst, img)
	return dst
}

// IsRunning is used to determine if the replay is running.
func (r *Replay) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRunning
}
