package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bootstick/internal/config"
	"bootstick/internal/prompt"
	"bootstick/internal/workflow"
)

// Hooks replaced by tests.
var (
	openPrompter = func() (prompt.Prompter, io.Closer) {
		return prompt.OpenTTY()
	}
	newCollaborators = workflow.SystemCollaborators
	runPreflight     = true
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Erase a USB device and write the installation image to it",
		Long: `Resolve the installation image and target device, confirm, then erase the
device as FAT32 and copy the image contents. Install payloads too large for
FAT32 are split into chunks. Confirmation is always required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, ctx)
		},
	}
	bindRunFlags(cmd, &ctx.run)
	return cmd
}

func runWorkflow(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, logCloser, err := ctx.logger()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	p, ttyCloser := openPrompter()
	defer ttyCloser.Close()

	ctrl := workflow.New(cfg, newCollaborators(cfg, p, logger), logger)
	ctrl.Preflight = runPreflight
	summary, err := ctrl.Run(cmd.Context())
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), cfg, summary)
	return nil
}

func printSummary(out io.Writer, cfg *config.Config, summary workflow.Summary) {
	fmt.Fprintf(out, "Wrote %s to %s (%s)\n", summary.Image, summary.Device.Identifier, cfg.Device.Label)
	fmt.Fprintf(out, "Payload: %s\n", summary.Plan)
	fmt.Fprintln(out, "The device has been ejected and can be unplugged.")
}
