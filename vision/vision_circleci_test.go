//go:build !withcv
// +build !withcv

/*
DESCRIPTION
  vision_circleci_test.go tests the Inspector used in builds without OpenCV.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vision

import (
	"testing"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectorWithoutCV(t *testing.T) {
	in, err := NewInspector(config.Config{})
	require.ErrorIs(t, err, errNoCV)
	assert.Nil(t, in)

	var stub Inspector
	_, err = stub.Inspect(device.Frame{}, config.DetectionParameters{})
	assert.ErrorIs(t, err, errNoCV)
	assert.NoError(t, stub.Close())
}
