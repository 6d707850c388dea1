/*
DESCRIPTION
  run.go provides the run command, which inspects capsules from the camera
  and ejects abnormal ones until interrupted. Detection parameters follow
  changes to the parameter file and, with --cloud, the cloud variables.

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
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ausocean/client/pi/netsender"
	"github.com/ausocean/client/pi/sds"
	"github.com/ausocean/utils/logging"
	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device/relay"
	"github.com/ausocean/aoi/inspection"
	"github.com/ausocean/aoi/vision"
)

// Cloud modes.
const (
	modeNormal    = "Normal"
	modePaused    = "Paused"
	modeCompleted = "Completed"
)

// Misc constants.
const (
	netSendRetryTime = 5 * time.Second
	defaultSleepTime = 60 // Seconds
)

// Software defined pin values.
const (
	framesPin   = "X60"
	abnormalPin = "X61"
	missedPin   = "X62"
	statusPin   = "X63"
)

var cloud bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Inspect capsules from the camera and eject abnormal ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&cloud, "cloud", false, "Take configuration and mode from the cloud using netsender")
	rootCmd.AddCommand(runCmd)
}

// runner owns the current inspection session. Sessions are single use, so a
// pause stops the session and a resume starts a new one with the same config.
type runner struct {
	log logging.Logger

	mu  sync.Mutex
	cfg config.Config
	s   *inspection.Session
	in  inspection.Inspector
}

func run(ctx context.Context) error {
	r := &runner{log: log, cfg: cfg}

	err := r.start()
	if err != nil {
		return err
	}
	defer r.stop()

	_, err = daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		log.Warning(pkg+"could not notify systemd", "error", err.Error())
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	go r.watchdog(ctx)
	go r.watchConfig(ctx, configPath)

	if cloud {
		return r.cloudLoop(ctx)
	}

	select {
	case <-ctx.Done():
		log.Info("interrupted")
	case <-r.done():
		log.Info("input finished")
	}
	return nil
}

// start starts a new session if none is running.
func (r *runner) start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s != nil && r.s.Running() {
		return nil
	}

	src, err := newSource(r.cfg)
	if err != nil {
		return err
	}
	in, err := vision.NewInspector(r.cfg)
	if err != nil {
		return fmt.Errorf("could not create inspector: %w", err)
	}
	rl, err := relay.New(r.cfg)
	if err != nil {
		in.Close()
		return fmt.Errorf("could not open relay: %w", err)
	}
	s, err := inspection.New(r.cfg, src, in, rl)
	if err != nil {
		in.Close()
		rl.Close()
		return fmt.Errorf("could not create session: %w", err)
	}
	results := s.Subscribe()
	err = s.Start()
	if err != nil {
		in.Close()
		rl.Close()
		return fmt.Errorf("could not start session: %w", err)
	}
	r.s, r.in = s, in
	go r.report(results)
	return nil
}

// stop stops the running session, keeping its config for the next one.
func (r *runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s == nil || !r.s.Running() {
		return
	}
	r.s.Stop()
	r.cfg = r.s.Config()
	err := r.in.Close()
	if err != nil {
		r.log.Error(pkg+"could not close inspector", "error", err.Error())
	}
	st := r.s.Stats()
	r.log.Info("session stopped",
		"session", r.s.ID.String(),
		"frames", st.Frames,
		"capsules", st.Capsules,
		"abnormal", st.Abnormal,
		"served", st.Actuator.Served,
		"missed", st.Actuator.Missed,
	)
}

// update applies vars to the running session, or to the config of the next
// session if none is running.
func (r *runner) update(vars map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s != nil && r.s.Running() {
		err := r.s.Update(vars)
		r.cfg = r.s.Config()
		return err
	}
	c := r.cfg
	uerr := c.Update(vars)
	err := c.Validate()
	if err != nil {
		return err
	}
	r.cfg = c
	return uerr
}

func (r *runner) session() *inspection.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}

// done returns a channel closed when the current session's input ends.
func (r *runner) done() <-chan struct{} {
	return r.session().Done()
}

// report logs the abnormal capsules found by a session.
func (r *runner) report(results <-chan inspection.Result) {
	for res := range results {
		if len(res.Actuations) == 0 {
			continue
		}
		for i, v := range res.Verdicts {
			if v.Abnormal {
				r.log.Info("abnormal capsule", "frame", res.Frame, "capsule", i, "x", v.Center.X, "y", v.Center.Y, "reason", v.Reason.String())
			}
		}
	}
}

// watchdog pings the systemd watchdog while the session is running and
// healthy, if the unit has a watchdog.
func (r *runner) watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := r.session()
			if s == nil || !s.Running() {
				continue
			}
			if st := s.Status(); st != inspection.Healthy {
				r.log.Warning(pkg+"session degraded", "status", st.String())
			}
			daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

// watchConfig applies the parameter file at path to the session whenever it
// is written.
func (r *runner) watchConfig(ctx context.Context, path string) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Warning(pkg+"could not watch parameter file", "error", err.Error())
		return
	}
	defer w.Close()

	// Watch the directory, since editors replace files rather than write them.
	path = filepath.Clean(path)
	err = w.Add(filepath.Dir(path))
	if err != nil {
		r.log.Warning(pkg+"could not watch parameter file", "path", path, "error", err.Error())
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.log.Warning(pkg+"parameter file watch error", "error", err.Error())
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			vars, err := config.ReadFile(path)
			if err != nil {
				r.log.Warning(pkg+"could not read parameter file", "error", err.Error())
				continue
			}
			err = r.update(vars)
			if err != nil {
				r.log.Warning(pkg+"could not apply parameter file", "error", err.Error())
				continue
			}
			r.log.Info("parameter file applied", "path", path)
		}
	}
}

// cloudLoop runs netsender on every pass of the loop (sleeping in between),
// checks vars, and if changed, updates the session as appropriate.
func (r *runner) cloudLoop(ctx context.Context) error {
	log.Debug("initialising netsender client")
	ns, err := netsender.New(log, nil, r.readPin(), nil, netsender.WithVarTypes(createVarMap()))
	if err != nil {
		return fmt.Errorf("could not initialise netsender client: %w", err)
	}

	var vs int
	for ctx.Err() == nil {
		r.log.Debug("running netsender")
		err := ns.Run()
		if err != nil {
			r.log.Warning(pkg+"Run Failed. Retrying...", "error", err.Error())
			wait(ctx, netSendRetryTime)
			continue
		}

		r.log.Debug("sending logs")
		err = netLog.Send(ns)
		if err != nil {
			r.log.Warning(pkg+"Logs could not be sent", "error", err.Error())
		}

		newVs := ns.VarSum()
		if vs == newVs {
			r.sleep(ctx, ns)
			continue
		}
		vs = newVs
		r.log.Info("varsum changed", "vs", vs)

		vars, err := ns.Vars()
		if err != nil {
			r.log.Error(pkg+"netSender failed to get vars", "error", err.Error())
			wait(ctx, netSendRetryTime)
			continue
		}
		r.log.Debug("got new vars", "vars", vars)

		err = r.update(cloudVars(vars))
		if err != nil {
			r.log.Warning(pkg+"couldn't fully update config", "error", err.Error())
		}

		switch ns.Mode() {
		case modePaused, modeCompleted:
			r.log.Debug("mode is Paused or Completed, stopping inspection")
			r.stop()
		case modeNormal:
			r.log.Debug("mode is Normal, starting inspection")
			err = r.start()
			if err != nil {
				r.log.Error(pkg+"could not start inspection", "error", err.Error())
				ns.SetMode(modePaused)
			}
		}
		r.sleep(ctx, ns)
	}
	return nil
}

// cloudVars returns the vars that configure inspection, dropping the ones
// netsender keeps for itself.
func cloudVars(vars map[string]string) map[string]string {
	known := make(map[string]bool, len(config.Variables))
	for _, v := range config.Variables {
		known[v.Name] = true
	}
	out := make(map[string]string)
	for k, v := range vars {
		if known[k] {
			out[k] = v
		}
	}
	return out
}

func createVarMap() map[string]string {
	m := make(map[string]string)
	for _, v := range config.Variables {
		m[v.Name] = v.Type
	}
	return m
}

// sleep uses a delay to halt the loop based on the monitoring period
// netsender parameter (mp) defined in the netsender.conf config.
func (r *runner) sleep(ctx context.Context, ns *netsender.Sender) {
	t, err := strconv.Atoi(ns.Param("mp"))
	if err != nil {
		r.log.Error(pkg+"could not get sleep time, using default", "error", err)
		t = defaultSleepTime
	}
	wait(ctx, time.Duration(t)*time.Second)
}

func wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// readPin provides a callback function of consistent signature for use by
// netsender to retrieve software defined pin values e.g. inspected frames.
func (r *runner) readPin() func(pin *netsender.Pin) error {
	return func(pin *netsender.Pin) error {
		s := r.session()
		switch pin.Name {
		case framesPin, abnormalPin, missedPin, statusPin:
			pin.Value = -1
			if s == nil {
				return nil
			}
			st := s.Stats()
			switch pin.Name {
			case framesPin:
				pin.Value = int(st.Frames)
			case abnormalPin:
				pin.Value = int(st.Abnormal)
			case missedPin:
				pin.Value = int(st.Actuator.Missed)
			case statusPin:
				pin.Value = int(s.Status())
			}
			return nil
		}
		if len(pin.Name) != 0 && pin.Name[0] == 'X' {
			return sds.ReadSystem(pin)
		}
		pin.Value = -1
		return nil
	}
}
