/*
DESCRIPTION
  actuator_test.go tests belt timing, queue ordering and the relay state
  machine of the actuation scheduler using a virtual clock.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package actuator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ausocean/aoi/classify"
	"github.com/ausocean/aoi/config"
	"github.com/stretchr/testify/require"
)

type dumbLogger struct{}

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    {}
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

// recordingRelay records every command it receives.
type recordingRelay struct {
	cmds   []string
	failOn int // Number of TurnOn calls to fail.
	closed bool
}

func (r *recordingRelay) TurnOn(ch int) error {
	if r.failOn > 0 {
		r.failOn--
		return errors.New("usb stall")
	}
	r.cmds = append(r.cmds, "on")
	return nil
}

func (r *recordingRelay) TurnOff(ch int) error {
	r.cmds = append(r.cmds, "off")
	return nil
}

func (r *recordingRelay) Close() error {
	r.closed = true
	return nil
}

const retraction = 100 * time.Millisecond

// at returns base advanced by ms milliseconds.
func at(base time.Time, ms int) time.Time {
	return base.Add(time.Duration(ms) * time.Millisecond)
}

var belt = config.BeltGeometry{MMPerPixel: 0.061, BeltLengthMM: 390, BeltSpeedMMPerS: 114}

func TestTravelSeconds(t *testing.T) {
	got := TravelSeconds(1800, 2160, belt)
	want := ((2160.0-1800.0)*0.061 + 390.0) / 114.0
	require.Equal(t, want, got)
	require.InDelta(t, 3.6137, got, 1e-4)

	// A capsule entering on the left edge has the whole frame still to cross.
	require.Greater(t, TravelSeconds(0, 2160, belt), got)
}

func TestActuationTimes(t *testing.T) {
	grab := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	g := belt
	g.ActuatorResponse = 50 * time.Millisecond

	ts := ActuationTimes(grab, []classify.Point{{X: 1800, Y: 10}, {X: 2160, Y: 20}}, 2160, g)
	require.Len(t, ts, 2)

	want0 := time.Duration(TravelSeconds(1800, 2160, belt)*float64(time.Second)) - g.ActuatorResponse
	require.Equal(t, want0, ts[0].Sub(grab))
	require.InDelta(t, 390.0/114.0-0.05, ts[1].Sub(grab).Seconds(), 1e-6)

	require.Nil(t, ActuationTimes(grab, nil, 2160, g))
}

func TestQueueOrder(t *testing.T) {
	base := time.Unix(1000, 0)
	var q Queue
	for _, ms := range []int{5000, 1000, 3000, 1000, 4000} {
		q.Push(at(base, ms))
	}
	require.Equal(t, 5, q.Len())

	first, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, at(base, 1000), first)

	var got []time.Time
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []time.Time{at(base, 1000), at(base, 1000), at(base, 3000), at(base, 4000), at(base, 5000)}
	require.Equal(t, want, got)

	_, ok = q.Peek()
	require.False(t, ok)
}

func TestSchedulerSequence(t *testing.T) {
	base := time.Unix(1700000000, 0)
	r := &recordingRelay{}
	s := New(r, 1, retraction, &dumbLogger{})

	s.Tick(base, at(base, 2000), at(base, 10000))
	require.Equal(t, RelayOff, s.State())
	require.Empty(t, r.cmds)

	s.Tick(at(base, 1900))
	require.Equal(t, RelayOn, s.State())
	require.Equal(t, []string{"on"}, r.cmds)

	s.Tick(at(base, 3000))
	require.Equal(t, RelayOff, s.State())
	require.Equal(t, []string{"on", "off"}, r.cmds)
	require.Equal(t, 1, s.Pending())

	s.Tick(at(base, 10000).Add(-retraction).Add(time.Millisecond))
	require.Equal(t, RelayOn, s.State())
	require.Equal(t, []string{"on", "off", "on"}, r.cmds)

	st := s.Stats()
	require.Equal(t, uint64(2), st.Fired)
	require.Equal(t, uint64(1), st.Served)
	require.Zero(t, st.Missed)
}

func TestSchedulerHoldsWhilePending(t *testing.T) {
	base := time.Unix(1700000000, 0)
	r := &recordingRelay{}
	s := New(r, 1, retraction, &dumbLogger{})

	s.Tick(base, at(base, 50), at(base, 120), at(base, 200))
	for ms := 10; ms <= 250; ms += 10 {
		s.Tick(at(base, ms))
		require.Equal(t, RelayOn, s.State(), "released early at %dms", ms)
	}
	require.Equal(t, []string{"on"}, r.cmds, "relay switched more than once")

	s.Tick(at(base, 400))
	require.Equal(t, RelayOff, s.State())
	require.Equal(t, uint64(3), s.Stats().Served)
}

func TestSchedulerMinimumHold(t *testing.T) {
	base := time.Unix(1700000000, 0)
	r := &recordingRelay{}
	s := New(r, 1, retraction, &dumbLogger{})

	s.Tick(base, base)
	require.Equal(t, RelayOn, s.State())

	// Nothing is pending but the hold time has not elapsed.
	s.Tick(at(base, 50))
	require.Equal(t, RelayOn, s.State())

	s.Tick(at(base, 100))
	require.Equal(t, RelayOff, s.State())
}

func TestSchedulerMissed(t *testing.T) {
	base := time.Unix(1700000000, 0)
	s := New(&recordingRelay{}, 1, retraction, &dumbLogger{})

	// Handed over after its window has passed.
	s.Tick(at(base, 5000), at(base, 4000), at(base, 4500))
	require.Equal(t, RelayOff, s.State())
	require.Zero(t, s.Pending())
	require.Equal(t, uint64(2), s.Stats().Missed)
}

func TestSchedulerRelayFailure(t *testing.T) {
	base := time.Unix(1700000000, 0)
	r := &recordingRelay{failOn: 1}
	s := New(r, 1, retraction, &dumbLogger{})

	s.Tick(base, at(base, 50))
	require.Equal(t, RelayOff, s.State())
	require.Equal(t, uint64(1), s.Stats().RelayErrors)
	require.Equal(t, base, s.LastRelayError())

	s.Tick(at(base, 10))
	require.Equal(t, RelayOn, s.State())
	require.Equal(t, []string{"on"}, r.cmds)
}

func TestSchedulerShutdown(t *testing.T) {
	base := time.Unix(1700000000, 0)
	r := &recordingRelay{}
	s := New(r, 1, retraction, &dumbLogger{})

	s.Tick(base, base, at(base, 50))
	require.Equal(t, RelayOn, s.State())

	require.NoError(t, s.Shutdown())
	require.Equal(t, RelayOff, s.State())
	require.True(t, r.closed)
	require.Equal(t, []string{"on", "off"}, r.cmds)

	// Ticks after shutdown must not touch the relay.
	s.Tick(at(base, 60), at(base, 100))
	require.Equal(t, []string{"on", "off"}, r.cmds)
	require.NoError(t, s.Shutdown())
}

func TestTravelSecondsFinite(t *testing.T) {
	for x := 0.0; x <= 2160; x += 360 {
		v := TravelSeconds(x, 2160, belt)
		require.False(t, math.IsInf(v, 0) || math.IsNaN(v))
		require.Greater(t, v, 0.0)
	}
}
