/*
NAME
  session.go

DESCRIPTION
  session.go provides the inspection Session, which connects a camera, the
  capsule vision pipeline and the ejector relay.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package inspection provides an API for running capsule inspection on a live
// camera and ejecting the abnormal capsules.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ausocean/aoi/actuator"
	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/aoi/device/relay"
	"github.com/ausocean/aoi/vision"
	"github.com/ausocean/utils/logging"
	"github.com/google/uuid"
)

// Misc consts.
const (
	timesBufferLen   = 64  // Frames worth of actuation instants awaiting the actuation task.
	subscriberBuffer = 8   // Results buffered per subscriber before results are dropped.
	latencyWindow    = 256 // Number of recent frames used for latency statistics.
	readRetryDelay   = 100 * time.Millisecond
)

// Inspector is the vision pipeline as used by a Session.
type Inspector interface {
	Inspect(f device.Frame, p config.DetectionParameters) (vision.Result, error)
	Close() error
}

// Result is the outcome of inspecting one frame.
type Result struct {
	vision.Result
	Frame      uint64      // Index of the frame.
	Time       time.Time   // Grab time of the frame.
	Actuations []time.Time // Ejector instants scheduled for the abnormal capsules.
}

// Session runs inspection. Frames are read from the source by an acquisition
// routine into a one frame mailbox, where a newer frame replaces one not yet
// inspected. A worker routine inspects the latest frame and hands the
// actuation instants of abnormal capsules to an actuation routine that ticks
// the relay scheduler. A Session can be started once.
type Session struct {
	// ID identifies the session in logs.
	ID uuid.UUID

	cfg config.Config
	log logging.Logger

	// Fixed for the life of the session.
	tickPeriod   time.Duration
	statusWindow time.Duration

	src   device.FrameSource
	in    Inspector
	sched *actuator.Scheduler

	// paramMu guards cfg, the detection parameters and the belt geometry,
	// which may be changed while running. The worker takes a copy for each
	// frame.
	paramMu sync.Mutex
	params  config.DetectionParameters
	belt    config.BeltGeometry

	// latest is the one frame mailbox between acquisition and the worker.
	latest chan device.Frame

	// times carries actuation instants from the worker to the actuation task.
	times chan []time.Time

	// err will channel errors from session routines to the handle errors routine.
	err chan error

	cancel  context.CancelFunc
	wg      sync.WaitGroup // Acquisition and worker routines.
	actWG   sync.WaitGroup // Actuation routine.
	actStop chan struct{}
	done    chan struct{} // Closed when the source is exhausted and the worker has finished.

	mu        sync.Mutex
	state     int
	subs      []chan Result
	counts    counters
	latencies []float64
	lastFault time.Time
}

// Session lifecycle states.
const (
	stateNew = iota
	stateRunning
	stateStopped
)

// counters are the session's frame counters.
type counters struct {
	frames      uint64
	dropped     uint64
	frameErrors uint64
	readErrors  uint64
	capsules    uint64
	abnormal    uint64
}

// New returns a new Session that reads frames from src, inspects them with in
// and ejects abnormal capsules with r. c is validated; its detection
// parameters and belt geometry may later be changed with Update.
func New(c config.Config, src device.FrameSource, in Inspector, r relay.Relay) (*Session, error) {
	if c.Logger == nil {
		return nil, errors.New("no logger")
	}
	err := c.Validate()
	if err != nil {
		return nil, fmt.Errorf("config struct is bad: %w", err)
	}
	c.Logger.SetLevel(c.LogLevel)

	s := &Session{
		ID:           uuid.New(),
		cfg:          c,
		log:          c.Logger,
		tickPeriod:   c.TickPeriod,
		statusWindow: c.StatusWindow,
		src:          src,
		in:           in,
		sched:        actuator.New(r, int(c.RelayChannel), c.RetractionTime, c.Logger),
		params:       c.Detection,
		belt:         c.Belt,
		latest:       make(chan device.Frame, 1),
		times:        make(chan []time.Time, timesBufferLen),
		err:          make(chan error),
		actStop:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	return s, nil
}

// Config returns a copy of the session's current config.
func (s *Session) Config() config.Config {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	c := s.cfg
	c.Detection = s.params
	c.Belt = s.belt
	return c
}

// Start configures and starts the frame source, then starts the session's
// routines.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateRunning:
		s.log.Warning("start called, but session already running")
		return nil
	case stateStopped:
		return errors.New("session has been stopped")
	}

	s.log.Debug("setting up frame source", "source", s.src.Name())
	err := s.src.Set(s.Config())
	if err != nil {
		return fmt.Errorf("could not set frame source: %w", err)
	}
	err = s.src.Start()
	if err != nil {
		if e := s.src.Stop(); e != nil {
			s.log.Error("could not stop frame source after failed start", "error", e.Error())
		}
		return fmt.Errorf("could not start frame source: %w", err)
	}
	s.log.Info("frame source started", "source", s.src.Name())

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.handleErrors()

	s.wg.Add(2)
	go s.acquire(ctx)
	go s.work(ctx)

	s.actWG.Add(1)
	go s.actuate()

	s.state = stateRunning
	s.log.Info("session started", "session", s.ID.String())
	return nil
}

// Stop stops the session. The worker finishes the frame it is inspecting,
// then the actuation routine is stopped, the relay is turned off and
// released, and finally the frame source is stopped.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		s.log.Warning("stop called but session isn't running")
		return
	}
	s.state = stateStopped
	s.mu.Unlock()

	s.log.Debug("waiting for inspection routines to finish")
	s.cancel()
	s.wg.Wait()
	s.log.Info("inspection routines finished")

	close(s.actStop)
	s.actWG.Wait()
	s.log.Info("actuation stopped", "pending", s.sched.Pending())

	err := s.sched.Shutdown()
	if err != nil {
		s.log.Error("could not shut down relay", "error", err.Error())
	} else {
		s.log.Info("relay off and released")
	}

	err = s.src.Stop()
	if err != nil {
		s.log.Error("could not stop frame source", "error", err.Error())
	} else {
		s.log.Info("frame source stopped")
	}

	s.mu.Lock()
	for _, sub := range s.subs {
		close(sub)
	}
	s.subs = nil
	s.mu.Unlock()
	close(s.err)
}

// Done returns a channel that is closed once a finite frame source has been
// exhausted and every frame from it has been handled.
func (s *Session) Done() <-chan struct{} { return s.done }

// Running returns true if the session has been started and not stopped.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateRunning
}

// Subscribe returns a channel receiving the result of every inspected frame.
// Results are dropped for a subscriber that falls behind. The channel is
// closed when the session stops.
func (s *Session) Subscribe() <-chan Result {
	ch := make(chan Result, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStopped {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

// SetDetectionParameters replaces the detection parameters. The next frame
// inspected uses p.
func (s *Session) SetDetectionParameters(p config.DetectionParameters) {
	s.paramMu.Lock()
	s.params = p
	s.paramMu.Unlock()
	s.log.Info("detection parameters changed")
}

// Update applies the variables vars to a copy of the session's config. The
// detection parameters and belt geometry take effect from the next frame;
// other fields are kept for Config but only take effect in a new session. If
// the updated config is invalid nothing is changed and the validation error
// is returned. Unknown variables are reported in the returned error while
// the known ones are still applied.
func (s *Session) Update(vars map[string]string) error {
	s.log.Debug("checking vars", "vars", vars)
	c := s.Config()
	uerr := c.Update(vars)
	err := c.Validate()
	if err != nil {
		return fmt.Errorf("could not apply update: %w", err)
	}

	s.paramMu.Lock()
	s.cfg = c
	s.params = c.Detection
	s.belt = c.Belt
	s.paramMu.Unlock()
	s.log.SetLevel(c.LogLevel)
	s.log.Info("finished reconfig")
	return uerr
}

// snapshot returns copies of the parameters used for one frame.
func (s *Session) snapshot() (config.DetectionParameters, config.BeltGeometry) {
	s.paramMu.Lock()
	defer s.paramMu.Unlock()
	return s.params, s.belt
}

// acquire is run as a routine to read frames from the source into the
// mailbox until ctx is done or the source is exhausted.
func (s *Session) acquire(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.latest)

	for {
		f, err := s.src.Read(ctx)
		switch {
		case err == nil:
			if f.Time.IsZero() {
				f.Time = time.Now()
			}
			s.post(f)
			continue
		case ctx.Err() != nil:
			return
		case errors.Is(err, io.EOF):
			s.log.Info("end of input", "source", s.src.Name())
			return
		}

		s.mu.Lock()
		s.counts.readErrors++
		s.mu.Unlock()
		s.err <- fmt.Errorf("could not read frame: %w", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(readRetryDelay):
		}
	}
}

// post puts f in the mailbox, dropping any frame the worker has not taken.
func (s *Session) post(f device.Frame) {
	for {
		select {
		case s.latest <- f:
			return
		default:
		}
		select {
		case old := <-s.latest:
			s.mu.Lock()
			s.counts.dropped++
			s.mu.Unlock()
			s.log.Debug("dropped frame", "frame", old.Index)
		default:
		}
	}
}

// work is run as a routine to inspect frames from the mailbox.
func (s *Session) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-s.latest:
			if !ok {
				close(s.done)
				return
			}
			s.process(ctx, f)
		}
	}
}

// process inspects one frame and schedules ejection of its abnormal
// capsules. Frame errors are logged and the frame is skipped.
func (s *Session) process(ctx context.Context, f device.Frame) {
	start := time.Now()
	p, g := s.snapshot()

	res, err := s.in.Inspect(f, p)
	if err != nil {
		s.log.Warning("skipping frame", "frame", f.Index, "time", f.Time, "error", err.Error())
		s.mu.Lock()
		s.counts.frameErrors++
		s.lastFault = time.Now()
		s.mu.Unlock()
		return
	}

	abnormal := res.Abnormal()
	ts := actuator.ActuationTimes(f.Time, abnormal, res.FrameWidth, g)
	if len(ts) != 0 {
		s.log.Debug("abnormal capsules", "frame", f.Index, "count", len(ts), "first", ts[0])
		select {
		case s.times <- ts:
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.frames++
	s.counts.capsules += uint64(len(res.Verdicts))
	s.counts.abnormal += uint64(len(abnormal))
	s.latencies = append(s.latencies, time.Since(start).Seconds())
	if len(s.latencies) > latencyWindow {
		s.latencies = s.latencies[len(s.latencies)-latencyWindow:]
	}

	r := Result{Result: res, Frame: f.Index, Time: f.Time, Actuations: ts}
	for _, sub := range s.subs {
		select {
		case sub <- r:
		default:
		}
	}
}

// actuate is run as a routine to tick the scheduler with the actuation
// instants handed over by the worker.
func (s *Session) actuate() {
	defer s.actWG.Done()
	t := time.NewTicker(s.tickPeriod)
	defer t.Stop()

	var ts []time.Time
	for {
		select {
		case <-s.actStop:
			return
		case now := <-t.C:
			ts = ts[:0]
		drain:
			for {
				select {
				case more := <-s.times:
					ts = append(ts, more...)
				default:
					break drain
				}
			}
			s.sched.Tick(now, ts...)
		}
	}
}

// handleErrors logs errors from the session routines and records them as
// faults.
func (s *Session) handleErrors() {
	for err := range s.err {
		s.log.Error("async error", "error", err.Error())
		s.mu.Lock()
		s.lastFault = time.Now()
		s.mu.Unlock()
	}
}
