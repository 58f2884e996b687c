package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bootstick/internal/prompt"
	"bootstick/internal/resolve"
)

func newImagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List installation images in the image directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cands, err := resolve.ScanImages(cfg.Image.Dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cands) == 0 {
				fmt.Fprintf(out, "No images found in %s\n", cfg.Image.Dir)
				return nil
			}
			latest, _ := resolve.LatestImage(cands)
			rows := make([][]string, 0, len(cands))
			for _, c := range cands {
				marker := ""
				if c.Path == latest.Path {
					marker = "latest"
				}
				rows = append(rows, []string{
					filepath.Base(c.Path),
					humanize.IBytes(uint64(c.Size)),
					c.ModTime.Format("2006-01-02 15:04"),
					marker,
				})
			}
			fmt.Fprintf(out, "Images in %s:\n", cfg.Image.Dir)
			fmt.Fprintln(out, prompt.RenderTable(
				[]string{"Image", "Size", "Modified", ""},
				rows,
				[]prompt.Alignment{prompt.AlignLeft, prompt.AlignRight},
			))
			return nil
		},
	}
}
