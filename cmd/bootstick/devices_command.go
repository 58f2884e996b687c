package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bootstick/internal/preflight"
	"bootstick/internal/prompt"
	"bootstick/internal/safety"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached external devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closer, err := ctx.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			collab := newCollaborators(cfg, prompt.NewScripted(), logger)
			probe := preflight.ProbeDevices(cmd.Context(), collab.Devices)
			if probe.Err != nil {
				return fmt.Errorf("list devices: %w", probe.Err)
			}
			out := cmd.OutOrStdout()
			for _, u := range probe.Undescribed {
				fmt.Fprintf(out, "%s: could not be described (%v)\n", u.ID, u.Err)
			}
			if len(probe.Devices) == 0 {
				if len(probe.Listed) == 0 {
					fmt.Fprintln(out, "No external devices detected")
				}
				return nil
			}
			rows := make([][]string, 0, len(probe.Devices))
			for _, dev := range probe.Devices {
				rows = append(rows, []string{
					dev.Identifier,
					humanize.IBytes(uint64(max(dev.SizeBytes, 0))),
					dev.MediaName,
					dev.BusProtocol,
					yesNo(safety.Check(dev) == nil),
				})
			}
			fmt.Fprintln(out, prompt.RenderTable(
				[]string{"Device", "Capacity", "Name", "Bus", "Eligible"},
				rows,
				[]prompt.Alignment{prompt.AlignLeft, prompt.AlignRight},
			))
			return nil
		},
	}
}
