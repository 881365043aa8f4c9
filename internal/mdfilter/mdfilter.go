// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package mdfilter implements the markdown filter pipeline: it reads a tar
// archive, converts every accepted entry in parallel, and writes the
// converted entries as a new tar archive, sorted by the original name.
package mdfilter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rusq/docfilter/internal/archive"
	"github.com/rusq/docfilter/internal/task"
	"github.com/rusq/docfilter/internal/worker"
)

const (
	inDir  = "in"
	outDir = "out"
)

// RunnerFactory returns the runner that writes converted files to dir.
type RunnerFactory func(dir string) (worker.Runner, error)

// Filter is the markdown filter.
type Filter struct {
	newRunner RunnerFactory
	rep       worker.Reporter
	lg        *slog.Logger
	tmpDir    string
	workers   int
	timeout   time.Duration
	ext       string
	skipExt   []string
}

type Option func(*Filter)

// WithReporter sets the per-outcome reporter.
func WithReporter(rep worker.Reporter) Option {
	return func(f *Filter) {
		f.rep = rep
	}
}

func WithLogger(lg *slog.Logger) Option {
	return func(f *Filter) {
		if lg != nil {
			f.lg = lg
		}
	}
}

// WithTempDir sets the parent directory of the scratch root.  Empty
// string means the default temporary directory.
func WithTempDir(dir string) Option {
	return func(f *Filter) {
		f.tmpDir = dir
	}
}

// WithWorkers sets the number of parallel conversions.  Zero means
// worker.Bound().
func WithWorkers(n int) Option {
	return func(f *Filter) {
		f.workers = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithExt sets the extension of the converted entries.
func WithExt(ext string) Option {
	return func(f *Filter) {
		if ext != "" {
			f.ext = ext
		}
	}
}

// WithSkipExt adds extensions to the default skip list.
func WithSkipExt(ext ...string) Option {
	return func(f *Filter) {
		f.skipExt = append(f.skipExt, ext...)
	}
}

// New returns a new filter, that runs conversions with runners produced by
// newRunner.
func New(newRunner RunnerFactory, opts ...Option) *Filter {
	f := &Filter{
		newRunner: newRunner,
		lg:        slog.Default(),
		timeout:   worker.DefaultTimeout,
		ext:       archive.DefaultExt,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run reads the archive from in and writes the archive with the converted
// entries to out.  The per-file failures are reported to the reporter and
// do not cause an error.  Nothing is written to out if Run fails.
func (f *Filter) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, tsk := trace.NewTask(ctx, "mdfilter.Run")
	defer tsk.End()

	scratch, err := os.MkdirTemp(f.tmpDir, "docfilter-")
	if err != nil {
		return fmt.Errorf("unable to create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			f.lg.Warn("unable to remove scratch directory", "dir", scratch, "error", err)
		}
	}()
	var (
		srcDir = filepath.Join(scratch, inDir)
		dstDir = filepath.Join(scratch, outDir)
	)
	for _, dir := range []string{srcDir, dstDir} {
		if err := os.Mkdir(dir, 0o700); err != nil {
			return err
		}
	}

	tasks, err := archive.Extract(ctx, in, srcDir,
		archive.WithLogger(f.lg),
		archive.WithFilter(archive.NewFilter(f.skipExt...)),
	)
	if err != nil {
		if !errors.Is(err, archive.ErrCorrupt) {
			return err
		}
		f.lg.WarnContext(ctx, "input archive is damaged, converting what was read", "error", err, "tasks", len(tasks))
	}
	f.lg.DebugContext(ctx, "input extracted", "tasks", len(tasks), "size", humanize.Bytes(totalSize(tasks)))

	r, err := f.newRunner(dstDir)
	if err != nil {
		return err
	}
	outC := worker.Schedule(ctx, tasks, r,
		worker.WithWorkers(f.workers),
		worker.WithTimeout(f.timeout),
		worker.WithLogger(f.lg),
	)
	outcomes, sum := worker.Collect(outC, f.rep)
	if err := ctx.Err(); err != nil {
		// interrupted, the outcomes are incomplete.
		return err
	}
	f.lg.InfoContext(ctx, "conversion complete", "summary", sum)
	for name, orig := range archive.Duplicates(outcomes, f.ext) {
		f.lg.WarnContext(ctx, "output name is not unique, the last entry wins on extraction", "name", name, "entries", orig)
	}

	return archive.Buffered(scratch, out, func(w io.Writer) error {
		n, err := archive.Write(w, outcomes, f.ext)
		if err != nil {
			return err
		}
		f.lg.DebugContext(ctx, "output archive written", "entries", n)
		return nil
	})
}

func totalSize(tasks []task.Task) uint64 {
	var n int64
	for _, t := range tasks {
		n += t.Size
	}
	return uint64(max(n, 0))
}
