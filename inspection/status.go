/*
DESCRIPTION
  status.go provides health and statistics reporting for a Session.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package inspection

import (
	"time"

	"github.com/ausocean/aoi/actuator"
	"gonum.org/v1/gonum/stat"
)

// Status is the health of a session.
type Status int

const (
	Healthy  Status = iota
	Degraded        // A camera, frame or relay error occurred within the status window.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Status returns Degraded if a camera read, frame or relay error has
// occurred within the configured status window, and Healthy otherwise.
func (s *Session) Status() Status {
	since := time.Now().Add(-s.statusWindow)
	s.mu.Lock()
	fault := s.lastFault
	s.mu.Unlock()
	if fault.After(since) || s.sched.LastRelayError().After(since) {
		return Degraded
	}
	return Healthy
}

// Stats holds session counters and recent inspection latency.
type Stats struct {
	Frames      uint64 // Frames inspected.
	Dropped     uint64 // Frames replaced in the mailbox before inspection.
	FrameErrors uint64 // Frames the inspector rejected.
	ReadErrors  uint64 // Failed camera reads.
	Capsules    uint64
	Abnormal    uint64

	// Mean and standard deviation of inspection time over recent frames.
	LatencyMean   time.Duration
	LatencyStdDev time.Duration

	Actuator actuator.Stats
}

// Stats returns a snapshot of the session's statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	c := s.counts
	var mean, std float64
	switch len(s.latencies) {
	case 0:
	case 1:
		mean = s.latencies[0]
	default:
		mean, std = stat.MeanStdDev(s.latencies, nil)
	}
	s.mu.Unlock()

	return Stats{
		Frames:        c.frames,
		Dropped:       c.dropped,
		FrameErrors:   c.frameErrors,
		ReadErrors:    c.readErrors,
		Capsules:      c.capsules,
		Abnormal:      c.abnormal,
		LatencyMean:   seconds(mean),
		LatencyStdDev: seconds(std),
		Actuator:      s.sched.Stats(),
	}
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
