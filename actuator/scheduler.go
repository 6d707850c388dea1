/*
DESCRIPTION
  scheduler.go provides the actuation scheduler, a two state machine that
  holds the ejector relay on around each pending actuation instant.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package actuator schedules the ejector relay from capsule positions.
package actuator

import (
	"sync"
	"time"

	"github.com/ausocean/aoi/device/relay"
	"github.com/ausocean/utils/logging"
)

// State is the state of the ejector relay as commanded by a Scheduler.
type State int

const (
	RelayOff State = iota
	RelayOn
)

func (s State) String() string {
	if s == RelayOn {
		return "on"
	}
	return "off"
}

// Stats holds scheduler counters.
type Stats struct {
	Fired       uint64 // Relay on transitions.
	Served      uint64 // Expired instants that an actuation covered.
	Missed      uint64 // Expired instants that no actuation covered.
	RelayErrors uint64
}

// Scheduler turns pending actuation instants into relay commands. Tick must
// be called periodically, with a period well below the retraction time.
type Scheduler struct {
	log        logging.Logger
	relay      relay.Relay
	channel    int
	retraction time.Duration

	mu        sync.Mutex
	queue     Queue
	state     State
	started   bool      // Whether the relay has ever been turned on.
	lastStart time.Time // When the relay was last turned on or its hold refreshed.
	lastErr   time.Time
	stats     Stats
	shutdown  bool
}

// New returns a new Scheduler driving channel ch of r. The relay is held on
// for at least retraction after each actuation start.
func New(r relay.Relay, ch int, retraction time.Duration, l logging.Logger) *Scheduler {
	return &Scheduler{log: l, relay: r, channel: ch, retraction: retraction}
}

// Tick adds the instants ts to the queue and advances the state machine to
// now. Instants earlier than now are discarded. The relay is turned on when
// the earliest pending instant is within the retraction time of now, and
// turned off once nothing is pending within that window and the relay has
// been on for at least the retraction time. Relay failures are logged and
// retried on the next tick; they are never returned.
func (s *Scheduler) Tick(now time.Time, ts ...time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return
	}

	for _, t := range ts {
		s.queue.Push(t)
	}

	for {
		t, ok := s.queue.Peek()
		if !ok || !t.Before(now) {
			break
		}
		s.queue.Pop()
		if s.started && !s.lastStart.Before(t.Add(-s.retraction)) && !s.lastStart.After(t) {
			s.stats.Served++
			continue
		}
		s.stats.Missed++
		s.log.Warning("missed actuation", "due", t, "late", now.Sub(t))
	}

	elapsed := now.Sub(s.lastStart)
	next, ok := s.queue.Peek()
	if ok && !next.After(now.Add(s.retraction)) {
		switch {
		case s.state == RelayOff && (!s.started || elapsed >= s.retraction):
			err := s.relay.TurnOn(s.channel)
			if err != nil {
				s.relayError(now, "on", err)
				return
			}
			s.state = RelayOn
			s.started = true
			s.lastStart = now
			s.stats.Fired++
			s.log.Debug("ejector on", "due", next, "pending", s.queue.Len())
		case s.state == RelayOn && elapsed >= s.retraction:
			s.lastStart = now
		}
		return
	}

	if s.state == RelayOn && elapsed >= s.retraction {
		err := s.relay.TurnOff(s.channel)
		if err != nil {
			s.relayError(now, "off", err)
			return
		}
		s.state = RelayOff
		s.log.Debug("ejector off", "held", elapsed)
	}
}

func (s *Scheduler) relayError(now time.Time, op string, err error) {
	s.stats.RelayErrors++
	s.lastErr = now
	s.log.Error("could not switch ejector relay", "op", op, "channel", s.channel, "error", err.Error())
}

// Shutdown turns the relay off regardless of pending instants and closes
// it. Later ticks do nothing.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil
	}
	s.shutdown = true

	offErr := s.relay.TurnOff(s.channel)
	if offErr != nil {
		s.stats.RelayErrors++
		s.log.Error("could not turn ejector relay off at shutdown", "error", offErr.Error())
	} else {
		s.state = RelayOff
	}
	closeErr := s.relay.Close()
	if closeErr != nil {
		s.log.Error("could not close ejector relay", "error", closeErr.Error())
	}
	if s.queue.Len() != 0 {
		s.log.Warning("discarding pending actuations", "pending", s.queue.Len())
	}
	if offErr != nil {
		return offErr
	}
	return closeErr
}

// State returns the commanded relay state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns the number of queued instants.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Stats returns a copy of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastRelayError returns when the relay last failed, zero if it never has.
func (s *Scheduler) LastRelayError() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
