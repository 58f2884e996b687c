package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bootstick/internal/config"
	"bootstick/internal/preflight"
	"bootstick/internal/prompt"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report tool availability, directories and attached devices",
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

			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			report.section("Environment")
			for _, r := range results {
				report.addResult(r)
			}

			report.section("Run")
			addOverrides(report, cfg)

			if _, failed := preflight.FirstFailure(results); !failed {
				collab := newCollaborators(cfg, prompt.NewScripted(), logger)
				probe := preflight.ProbeDevices(cmd.Context(), collab.Devices)
				report.add("Devices", probeKind(probe), probe.DeviceDetail())
			}

			_, err = report.WriteTo(out)
			return err
		},
	}
}

func addOverrides(report *statusReport, cfg *config.Config) {
	image := cfg.Image.Path
	if image == "" {
		image = fmt.Sprintf("latest or chosen from %s", cfg.Image.Dir)
	}
	device := cfg.Device.ID
	if device == "" {
		device = "chosen from external devices"
	}
	report.add("Image", statusInfo, image)
	report.add("Device", statusInfo, device)
	report.add("Auto", statusInfo, yesNo(cfg.Run.Auto))
	report.add("Volume label", statusInfo, fmt.Sprintf("%s (%s)", cfg.Device.Label, cfg.Device.Scheme))
}
