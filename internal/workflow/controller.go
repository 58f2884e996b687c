package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"bootstick/internal/command"
	"bootstick/internal/config"
	"bootstick/internal/deps"
	"bootstick/internal/diskutil"
	"bootstick/internal/fault"
	"bootstick/internal/hdiutil"
	"bootstick/internal/imagemount"
	"bootstick/internal/logging"
	"bootstick/internal/media"
	"bootstick/internal/prompt"
	"bootstick/internal/resolve"
	"bootstick/internal/runlock"
	"bootstick/internal/transfer"
)

// Collaborators are the external systems a run drives.
type Collaborators struct {
	Devices  diskutil.Manager
	Attacher hdiutil.Attacher
	Copier   transfer.Copier
	Splitter transfer.Splitter
	Packages deps.PackageManager
	Prompter prompt.Prompter
	// Lookup maps a device node to its mount point. Nil means the live
	// mount table.
	Lookup func(device string) (string, error)
}

// SystemCollaborators wires the macOS tools named in cfg.
func SystemCollaborators(cfg *config.Config, p prompt.Prompter, logger *slog.Logger) Collaborators {
	runner := command.NewExec(logger)
	return Collaborators{
		Devices:  diskutil.New(runner, cfg.Tools.Diskutil, logger),
		Attacher: hdiutil.New(runner, cfg.Tools.Hdiutil, logger),
		Copier:   &transfer.Rsync{Runner: runner, Binary: cfg.Tools.Rsync},
		Splitter: &transfer.Wimlib{Runner: runner, Binary: cfg.Tools.Wimlib},
		Packages: deps.NewBrew(runner, cfg.Tools.PackageManager),
		Prompter: p,
	}
}

// Controller runs the full sequence once per call to Run.
type Controller struct {
	cfg      *config.Config
	logger   *slog.Logger
	prompter prompt.Prompter
	devices  diskutil.Manager

	resolver  *resolve.Resolver
	formatter *media.Formatter
	mounter   *imagemount.Adapter
	engine    *transfer.Engine

	// Preflight runs the environment checks before the lock is taken.
	Preflight bool
	// Sync flushes pending filesystem writes during teardown.
	Sync func()
}

// New assembles a Controller.
func New(cfg *config.Config, c Collaborators, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	ensurer := &deps.Ensurer{Packages: c.Packages, Prompter: c.Prompter, Logger: logger}
	ctrl := &Controller{
		cfg:       cfg,
		logger:    logger,
		prompter:  c.Prompter,
		devices:   c.Devices,
		resolver:  resolve.New(cfg, c.Devices, c.Prompter, logger),
		formatter: media.New(cfg, c.Devices, logger),
		mounter:   imagemount.New(c.Attacher, c.Devices, logger),
		engine:    transfer.NewEngine(cfg, c.Copier, c.Splitter, ensurer, logger),
		Sync:      unix.Sync,
	}
	if c.Lookup != nil {
		ctrl.formatter.Lookup = c.Lookup
		ctrl.mounter.Lookup = c.Lookup
	}
	return ctrl
}

// Summary describes a completed run.
type Summary struct {
	RunID  string
	Image  string
	Device diskutil.DeviceInfo
	Volume string
	Plan   transfer.Plan
}

// Run performs one complete run. The returned error is fault classified.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}
	logger := logging.WithRunID(logging.NewComponentLogger(c.logger, "workflow"), summary.RunID)
	c.bindLoggers(logger)
	start := time.Now()
	logger.Debug("run started", logging.String(logging.FieldEventType, "run_start"))

	if c.Preflight {
		if err := c.runStage(ctx, logger, "preflight", func(ctx context.Context, l *slog.Logger) error {
			return c.runPreflightChecks(ctx, l)
		}); err != nil {
			return summary, err
		}
	}

	var lock *runlock.Lock
	if err := c.runStage(ctx, logger, "lock", func(context.Context, *slog.Logger) error {
		var err error
		lock, err = runlock.Acquire(c.cfg.Run.LockDir)
		if err != nil {
			return fault.New(fault.KindInput, "cannot start run", err)
		}
		return nil
	}); err != nil {
		return summary, err
	}
	defer lock.Release()

	if err := c.runStage(ctx, logger, "resolve_image", func(ctx context.Context, l *slog.Logger) error {
		image, err := c.resolver.ResolveImage(ctx)
		if err != nil {
			return err
		}
		summary.Image = image
		c.checkImageSize(l, image)
		return nil
	}); err != nil {
		return summary, err
	}

	if err := c.runStage(ctx, logger, "resolve_device", func(ctx context.Context, _ *slog.Logger) error {
		dev, err := c.resolver.ResolveDevice(ctx)
		summary.Device = dev
		return err
	}); err != nil {
		return summary, err
	}

	if err := c.runStage(ctx, logger, "confirm", func(_ context.Context, l *slog.Logger) error {
		return c.confirm(l, summary.Image, summary.Device)
	}); err != nil {
		return summary, err
	}

	if err := c.runStage(ctx, logger, "format", func(ctx context.Context, _ *slog.Logger) error {
		volume, err := c.formatter.Format(ctx, summary.Device)
		summary.Volume = volume
		return err
	}); err != nil {
		return summary, err
	}

	var mount imagemount.Result
	if err := c.runStage(ctx, logger, "mount", func(ctx context.Context, _ *slog.Logger) error {
		var err error
		mount, err = c.mounter.Mount(ctx, summary.Image)
		return err
	}); err != nil {
		return summary, err
	}

	if err := c.runStage(ctx, logger, "transfer", func(ctx context.Context, _ *slog.Logger) error {
		plan, err := c.engine.Transfer(ctx, mount.Path, summary.Volume)
		summary.Plan = plan
		return err
	}); err != nil {
		c.detach(context.WithoutCancel(ctx), logger, mount)
		return summary, err
	}

	c.teardown(context.WithoutCancel(ctx), logger, mount, summary.Device)
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("image", summary.Image),
		logging.String("device", summary.Device.Identifier),
		logging.String("volume", summary.Volume),
		logging.String("payload_plan", summary.Plan.String()),
		logging.Duration("duration", time.Since(start).Round(time.Second)),
	)
	return summary, nil
}

// bindLoggers points every component at the run logger so their lines
// carry the run_id.
func (c *Controller) bindLoggers(logger *slog.Logger) {
	c.resolver.Logger = logging.NewComponentLogger(logger, "resolver")
	c.formatter.Logger = logging.NewComponentLogger(logger, "formatter")
	c.mounter.Logger = logging.NewComponentLogger(logger, "imagemount")
	c.engine.Logger = logging.NewComponentLogger(logger, "transfer")
	if ensurer, ok := c.engine.Ensurer.(*deps.Ensurer); ok {
		ensurer.Logger = logger
	}
}

func (c *Controller) checkImageSize(logger *slog.Logger, image string) {
	info, err := os.Stat(image)
	if err != nil || c.cfg.Image.MinImageBytes <= 0 || info.Size() >= c.cfg.Image.MinImageBytes {
		return
	}
	logging.WarnWithContext(logger, "image is smaller than expected", "image_size_suspicious",
		logging.String("image", image),
		logging.Int64("size_bytes", info.Size()),
		logging.Int64("threshold_bytes", c.cfg.Image.MinImageBytes),
		logging.String(logging.FieldErrorHint, "make sure the download completed"),
		logging.String(logging.FieldImpact, "run continues; the image may be truncated"),
	)
}

func (c *Controller) confirm(logger *slog.Logger, image string, dev diskutil.DeviceInfo) error {
	name := dev.MediaName
	if name == "" {
		name = "unnamed device"
	}
	question := fmt.Sprintf("Erase %s (%s, %s) and write %s to it? All data on %s will be lost.",
		dev.Identifier, humanize.IBytes(uint64(max(dev.SizeBytes, 0))), name, filepath.Base(image), dev.Identifier)
	c.prompter.Println(fmt.Sprintf("Image:  %s", image))
	c.prompter.Println(fmt.Sprintf("Device: /dev/%s", dev.Identifier))
	ok, err := c.prompter.Confirm(question)
	if err != nil {
		return fault.New(fault.KindInput, fmt.Sprintf("confirmation required before erasing %s", dev.Identifier), err)
	}
	if !ok {
		logger.Info("erase declined", logging.Args(logging.DecisionAttrs("erase_confirm", "declined", "operator answered no")...)...)
		return fault.Input("erase of %s declined; nothing was changed", dev.Identifier)
	}
	logger.Info("erase confirmed", logging.Args(logging.DecisionAttrs("erase_confirm", "accepted", "operator answered yes")...)...)
	return nil
}
