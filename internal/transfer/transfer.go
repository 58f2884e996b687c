// Package transfer copies the mounted image onto the formatted volume. The
// bulk copy skips the primary payload, which may exceed the FAT32 per-file
// limit; that file is then split into chunks, or the smaller alternative
// payload is copied instead.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bootstick/internal/config"
	"bootstick/internal/deps"
	"bootstick/internal/fault"
	"bootstick/internal/fileutil"
	"bootstick/internal/logging"
)

// Plan is the payload branch chosen for a run.
type Plan int

const (
	PlanNone Plan = iota
	// PlanSplit splits the primary payload into chunks.
	PlanSplit
	// PlanCopyAlternative copies the alternative payload as is.
	PlanCopyAlternative
)

func (p Plan) String() string {
	switch p {
	case PlanSplit:
		return "split"
	case PlanCopyAlternative:
		return "copy_alternative"
	default:
		return "none"
	}
}

// Decide picks the payload branch. The split branch wins when both payloads
// are present.
func Decide(hasPrimary, hasAlternative bool) (Plan, error) {
	switch {
	case hasPrimary:
		return PlanSplit, nil
	case hasAlternative:
		return PlanCopyAlternative, nil
	default:
		return PlanNone, fault.Content("image contains no recognized install payload")
	}
}

// SplitName returns the chunk base name for a primary payload path, e.g.
// sources/install.wim becomes sources/install.swm.
func SplitName(primary string) string {
	return strings.TrimSuffix(primary, path.Ext(primary)) + ".swm"
}

// ToolEnsurer makes the split tool available.
type ToolEnsurer interface {
	Ensure(ctx context.Context, tool deps.Tool) (string, error)
}

// Engine runs the transfer.
type Engine struct {
	Copier   Copier
	Splitter Splitter
	Ensurer  ToolEnsurer
	// SplitTool is ensured before the split branch runs.
	SplitTool deps.Tool

	PrimaryPayload     string
	AlternativePayload string
	ChunkMiB           int

	Logger *slog.Logger
}

// NewEngine creates an Engine from the transfer and tools sections of cfg.
func NewEngine(cfg *config.Config, copier Copier, splitter Splitter, ensurer ToolEnsurer, logger *slog.Logger) *Engine {
	return &Engine{
		Copier:             copier,
		Splitter:           splitter,
		Ensurer:            ensurer,
		SplitTool:          deps.Tool{Command: cfg.Tools.Wimlib, Package: cfg.Tools.WimlibPackage},
		PrimaryPayload:     cfg.Transfer.PrimaryPayload,
		AlternativePayload: cfg.Transfer.AlternativePayload,
		ChunkMiB:           cfg.Transfer.SplitChunkMiB,
		Logger:             logging.NewComponentLogger(logger, "transfer"),
	}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

// Transfer copies the tree at src to dst and places the install payload.
func (e *Engine) Transfer(ctx context.Context, src, dst string) (Plan, error) {
	logger := e.logger()

	logger.Info("copying image contents",
		logging.String("source", src),
		logging.String("destination", dst),
		logging.String("excluded", e.PrimaryPayload),
	)
	if err := e.Copier.Copy(ctx, src, dst, []string{e.PrimaryPayload}); err != nil {
		return PlanNone, fault.Tool("copy image contents", err)
	}

	primary := filepath.Join(src, filepath.FromSlash(e.PrimaryPayload))
	alternative := filepath.Join(src, filepath.FromSlash(e.AlternativePayload))
	hasPrimary, hasAlternative := isFile(primary), isFile(alternative)
	plan, err := Decide(hasPrimary, hasAlternative)
	if err != nil {
		return PlanNone, fault.New(fault.KindContent,
			fmt.Sprintf("neither %s nor %s found in image", e.PrimaryPayload, e.AlternativePayload), err)
	}
	reason := "primary payload present"
	if hasPrimary && hasAlternative {
		reason = "both payloads present; split preferred"
	} else if plan == PlanCopyAlternative {
		reason = "only alternative payload present"
	}
	logger.Info("payload plan selected", logging.Args(logging.DecisionAttrs("payload_plan", plan.String(), reason)...)...)

	switch plan {
	case PlanSplit:
		return plan, e.split(ctx, primary, dst)
	default:
		return plan, e.copyAlternative(ctx, alternative, dst)
	}
}

func (e *Engine) split(ctx context.Context, primary, dst string) error {
	if e.Ensurer != nil {
		if _, err := e.Ensurer.Ensure(ctx, e.SplitTool); err != nil {
			return fault.Tool(fmt.Sprintf("%s is required to split %s", e.SplitTool.Command, e.PrimaryPayload), err)
		}
	}
	target := filepath.Join(dst, filepath.FromSlash(SplitName(e.PrimaryPayload)))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fault.Tool("create payload directory", err)
	}
	e.logger().Info("splitting payload",
		logging.String("payload", primary),
		logging.String("target", target),
		logging.Int("chunk_mib", e.ChunkMiB),
	)
	if err := e.Splitter.Split(ctx, primary, target, e.ChunkMiB); err != nil {
		return fault.Tool(fmt.Sprintf("split %s", e.PrimaryPayload), err)
	}
	return nil
}

func (e *Engine) copyAlternative(ctx context.Context, alternative, dst string) error {
	target := filepath.Join(dst, filepath.FromSlash(e.AlternativePayload))
	if fileutil.SameSize(alternative, target) {
		e.logger().Info("alternative payload already copied",
			logging.Args(append(logging.DecisionAttrs("payload_copy", "skipped", "bulk copy produced an identical size file"),
				logging.String("target", target))...)...)
		return nil
	}
	if err := fileutil.CopyFileVerified(ctx, alternative, target); err != nil {
		return fault.Tool(fmt.Sprintf("copy %s", e.AlternativePayload), err)
	}
	return nil
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
