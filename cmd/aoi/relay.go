/*
DESCRIPTION
  relay.go provides the relay command, for checking the ejector relay
  wiring by switching it by hand.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ausocean/aoi/device/relay"
)

var relayOpts struct {
	channel int
	hold    time.Duration
	count   int
}

var relayCmd = &cobra.Command{
	Use:       "relay on|off|pulse",
	Short:     "Switch the ejector relay by hand",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "pulse"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ch := relayOpts.channel
		if ch == 0 {
			ch = int(cfg.RelayChannel)
		}
		r, err := relay.New(cfg)
		if err != nil {
			return err
		}
		defer r.Close()

		switch args[0] {
		case "on":
			return r.TurnOn(ch)
		case "off":
			return r.TurnOff(ch)
		}
		return pulse(cmd, r, ch)
	},
}

func init() {
	relayCmd.Flags().IntVar(&relayOpts.channel, "channel", 0, "Relay channel (default from config)")
	relayCmd.Flags().DurationVar(&relayOpts.hold, "hold", 100*time.Millisecond, "How long each pulse holds the relay on")
	relayCmd.Flags().IntVarP(&relayOpts.count, "count", "n", 1, "Number of pulses")
	rootCmd.AddCommand(relayCmd)
}

// pulse turns the relay on for the hold time, count times, leaving it off.
func pulse(cmd *cobra.Command, r relay.Relay, ch int) error {
	for i := 0; i < relayOpts.count; i++ {
		err := r.TurnOn(ch)
		if err != nil {
			return err
		}
		select {
		case <-cmd.Context().Done():
		case <-time.After(relayOpts.hold):
		}
		err = r.TurnOff(ch)
		if err != nil {
			return err
		}
		if cmd.Context().Err() != nil {
			return nil
		}
		time.Sleep(relayOpts.hold)
		fmt.Fprintf(cmd.OutOrStdout(), "pulse %d\n", i+1)
	}
	return nil
}
