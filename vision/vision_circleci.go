//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  Replaces the Inspector when building without the withcv tag, e.g. on
  Circle-CI which does not have a copy of Open CV installed.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/pkg/errors"
)

var errNoCV = errors.New("capsule inspection requires a build with the withcv tag")

// Inspector is an inspector that rejects every frame.
type Inspector struct{}

// NewInspector returns an error, since there is no vision pipeline in this
// build.
func NewInspector(c config.Config) (*Inspector, error) { return nil, errNoCV }

// Inspect rejects f, since there is no vision pipeline in this build.
func (in *Inspector) Inspect(f device.Frame, p config.DetectionParameters) (Result, error) {
	return Result{}, errNoCV
}

// Close does nothing.
func (in *Inspector) Close() error { return nil }
