package transfer

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"bootstick/internal/command"
)

// Copier copies a directory tree, skipping the given slash-separated paths
// relative to the source root.
type Copier interface {
	Copy(ctx context.Context, src, dst string, excludes []string) error
}

// Splitter splits one file into numbered chunks of at most chunkMiB MiB.
type Splitter interface {
	Split(ctx context.Context, src, dst string, chunkMiB int) error
}

// Rsync implements Copier with rsync.
type Rsync struct {
	Runner command.Runner
	Binary string
}

// Args returns the rsync arguments for a tree copy. The trailing slashes copy
// the contents of src into dst rather than src itself.
func (r *Rsync) Args(src, dst string, excludes []string) []string {
	args := []string{"-rt", "--modify-window=1"}
	for _, ex := range excludes {
		ex = strings.TrimPrefix(path.Clean("/"+ex), "/")
		if ex == "" {
			continue
		}
		args = append(args, "--exclude=/"+ex)
	}
	return append(args, withSlash(src), withSlash(dst))
}

func (r *Rsync) Copy(ctx context.Context, src, dst string, excludes []string) error {
	return r.Runner.Run(ctx, binaryOr(r.Binary, "rsync"), r.Args(src, dst, excludes)...)
}

// Wimlib implements Splitter with wimlib-imagex.
type Wimlib struct {
	Runner command.Runner
	Binary string
}

// Args returns the wimlib-imagex split arguments.
func (w *Wimlib) Args(src, dst string, chunkMiB int) []string {
	return []string{"split", src, dst, strconv.Itoa(chunkMiB)}
}

func (w *Wimlib) Split(ctx context.Context, src, dst string, chunkMiB int) error {
	if chunkMiB <= 0 {
		return fmt.Errorf("split %s: chunk size must be positive, got %d", src, chunkMiB)
	}
	return w.Runner.Run(ctx, binaryOr(w.Binary, "wimlib-imagex"), w.Args(src, dst, chunkMiB)...)
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

func binaryOr(binary, fallback string) string {
	if strings.TrimSpace(binary) == "" {
		return fallback
	}
	return binary
}
