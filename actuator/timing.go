/*
DESCRIPTION
  timing.go converts the pixel position of a capsule at grab time into the
  instant it reaches the ejector.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package actuator

import (
	"time"

	"github.com/ausocean/aoi/classify"
	"github.com/ausocean/aoi/config"
)

// TravelSeconds returns the seconds a capsule centred at centerX takes to
// travel from the camera to the ejector. Capsules move towards increasing x,
// so the remaining distance is the rest of the frame plus the belt length.
func TravelSeconds(centerX float64, frameWidth int, g config.BeltGeometry) float64 {
	return ((float64(frameWidth)-centerX)*g.MMPerPixel + g.BeltLengthMM) / g.BeltSpeedMMPerS
}

// TravelTime returns TravelSeconds as a duration less the actuator response.
func TravelTime(centerX float64, frameWidth int, g config.BeltGeometry) time.Duration {
	return time.Duration(TravelSeconds(centerX, frameWidth, g)*float64(time.Second)) - g.ActuatorResponse
}

// ActuationTimes returns the instants at which the ejector must fire for
// capsules centred at pts in a frame grabbed at grab.
func ActuationTimes(grab time.Time, pts []classify.Point, frameWidth int, g config.BeltGeometry) []time.Time {
	if len(pts) == 0 {
		return nil
	}
	ts := make([]time.Time, len(pts))
	for i, p := range pts {
		ts[i] = grab.Add(TravelTime(p.X, frameWidth, g))
	}
	return ts
}
