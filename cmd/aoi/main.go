/*
DESCRIPTION
  aoi is the capsule inspection client. It inspects capsules on a conveyor
  belt from a camera and drives the ejector relay for abnormal capsules, and
  provides commands for offline inspection, calibration and relay checks.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package aoi is the capsule inspection client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/ausocean/client/pi/netlogger"
	"github.com/ausocean/utils/logging"
	_ "github.com/kidoman/embd/host/rpi"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/aoi/config"
	"github.com/ausocean/aoi/device"
	"github.com/ausocean/aoi/device/file"
	"github.com/ausocean/aoi/device/webcam"
)

// Current software version.
const version = "v0.3.0"

// Logging configuration.
const (
	logPath      = "/var/log/netsender/aoi.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// Misc constants.
const (
	defaultConfigPath = "/etc/aoi/aoi.conf"
	profilePath       = "aoi.prof"
	pkg               = "aoi: "
)

// This is set to true if the 'profile' build tag is provided on build.
var canProfile = false

// Global flags.
var (
	configPath string
	logFile    string
	logStderr  bool
	debug      bool
)

var (
	// log is the logger shared by all commands, set up before any command runs.
	log logging.Logger

	// netLog buffers logs for sending to the cloud by the run command.
	netLog *netlogger.Logger

	// cfg is the configuration read from the parameter file.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "aoi",
	Short:         "Capsule inspection and ejection",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		log.Info("starting aoi", "version", version, "command", cmd.Name())
		return loadConfig()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// If aoi has been built with the profile tag, then we'll start a CPU profile.
	if canProfile {
		f, err := os.Create(profilePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, pkg+"could not create CPU profile:", err)
			os.Exit(1)
		}
		err = pprof.StartCPUProfile(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, pkg+"could not start CPU profile:", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, pkg+err.Error())
		if log != nil {
			log.Error(pkg+"command failed", "error", err.Error())
		}
		stop()
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Parameter file in KEY=value form")
	rootCmd.PersistentFlags().StringVar(&logFile, "log", logPath, "Log file, rotated when large")
	rootCmd.PersistentFlags().BoolVar(&logStderr, "stderr", false, "Also write logs to stderr")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log at debug level and evaluate every detection criterion")
}

// setupLogging creates the logger, which writes to a rotated file and the
// cloud log buffer, and optionally to stderr.
func setupLogging() {
	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}

	// Create netlogger to handle logging to cloud.
	netLog = netlogger.New()

	w := []io.Writer{fileLog, netLog}
	if logStderr {
		w = append(w, os.Stderr)
	}
	verbosity := int8(logVerbosity)
	if debug {
		verbosity = logging.Debug
	}
	log = logging.New(verbosity, io.MultiWriter(w...), logSuppress)
}

// loadConfig reads the parameter file into cfg. A missing file leaves the
// defaults in place.
func loadConfig() error {
	cfg = config.Config{Logger: log, LogLevel: logVerbosity}
	if debug {
		cfg.LogLevel = logging.Debug
	}

	err := cfg.Load(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warning(pkg+"no parameter file, using defaults", "path", configPath)
		err = cfg.Validate()
	case errors.Is(err, config.ErrUnknownVariable):
		log.Warning(pkg+"ignoring unknown parameters", "error", err.Error())
		err = nil
	}
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if debug {
		cfg.LogLevel = logging.Debug
		cfg.Detection.Debug = true
	}
	log.SetLevel(cfg.LogLevel)
	log.Debug("config loaded", "config", cfg)
	return nil
}

// newSource returns the frame source selected by c.
func newSource(c config.Config) (device.FrameSource, error) {
	switch c.Input {
	case config.InputFile:
		return file.New(c.Logger), nil
	case config.InputWebcam:
		return webcam.New(c.Logger), nil
	default:
		return nil, fmt.Errorf("unknown input type: %v", c.Input)
	}
}
