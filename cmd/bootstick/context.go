package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"bootstick/internal/config"
	"bootstick/internal/logging"
)

// runFlags override the matching config values for a single invocation.
type runFlags struct {
	image string
	disk  string
	auto  bool
}

type commandContext struct {
	configFlag *string
	run        runFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyRunFlags(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyRunFlags(cfg *config.Config) error {
	if image := strings.TrimSpace(c.run.image); image != "" {
		expanded, err := config.ExpandPath(image)
		if err != nil {
			return fmt.Errorf("resolve --iso: %w", err)
		}
		cfg.Image.Path = expanded
	}
	if disk := config.NormalizeDeviceID(c.run.disk); disk != "" {
		cfg.Device.ID = disk
	}
	if c.run.auto {
		cfg.Run.Auto = true
	}
	return nil
}

// logger builds the run logger. Console output goes to stderr so stdout
// stays clean for tables.
func (c *commandContext) logger() (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logging: %w", err)
	}
	if days := cfg.Logging.RetentionDays; days > 0 {
		logging.PruneRunLogs(cfg.Logging.Dir, time.Duration(days)*24*time.Hour, logger)
	}
	return logger, closer, nil
}

func bindRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVar(&flags.image, "iso", "", "Installation image to write (overrides "+config.EnvImage+")")
	cmd.Flags().StringVar(&flags.disk, "disk", "", "Target device identifier, e.g. disk4 (overrides "+config.EnvDevice+")")
	cmd.Flags().BoolVar(&flags.auto, "auto", false, "Pick the latest image and a lone external device without asking")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
