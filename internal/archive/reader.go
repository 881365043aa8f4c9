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

// Package archive reads the inbound tar stream into conversion tasks and
// writes the outbound tar stream from the conversion outcomes.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/unicode/norm"

	"github.com/rusq/docfilter/internal/osext"
	"github.com/rusq/docfilter/internal/task"
)

var (
	// ErrNotArchive is returned when the input stream is not a tar archive.
	ErrNotArchive = errors.New("input is not a tar archive")
	// ErrCorrupt is returned when the archive stream breaks after the first
	// entry, i.e. it is truncated.
	ErrCorrupt = errors.New("archive is corrupt")
)

type options struct {
	lg  *slog.Logger
	flt *Filter
	nfc bool
}

// Option is the Extract option.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(o *options) {
		if lg != nil {
			o.lg = lg
		}
	}
}

// WithFilter sets the entry filter.
func WithFilter(f *Filter) Option {
	return func(o *options) {
		if f != nil {
			o.flt = f
		}
	}
}

// WithNFC enables or disables the unicode NFC normalisation of the entry
// names.  Archives created on macOS carry decomposed (NFD) names.
func WithNFC(enable bool) Option {
	return func(o *options) {
		o.nfc = enable
	}
}

// Extract reads the tar stream r to completion and extracts every accepted
// regular file into the scratch directory.  It returns one task per
// extracted file in the archive order.  Entries that fail validation are
// dropped.  Errors extracting a single entry are logged, and the entry is
// skipped.  The input may be compressed with gzip, bzip2 or zstd.
//
// A read error on the stream itself is returned together with the tasks
// that were extracted before it occurred.
func Extract(ctx context.Context, r io.Reader, scratch string, opts ...Option) ([]task.Task, error) {
	ctx, tsk := trace.NewTask(ctx, "Extract")
	defer tsk.End()

	o := options{
		lg:  slog.Default(),
		flt: NewFilter(),
		nfc: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	root, err := filepath.Abs(scratch)
	if err != nil {
		return nil, err
	}

	rc, comp, err := osext.Decompress(r)
	if err != nil {
		return nil, fmt.Errorf("input stream (%s): %w", comp, err)
	}
	defer rc.Close()
	if comp != osext.CompressionNone {
		o.lg.DebugContext(ctx, "input is compressed", "compression", comp)
	}

	var (
		tasks []task.Task
		seen  = make(map[string]int) // name -> index in tasks
		nhdr  int
	)
	tr := tar.NewReader(rc)
	for {
		if err := ctx.Err(); err != nil {
			return tasks, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if nhdr == 0 {
				return nil, fmt.Errorf("%w: %w", ErrNotArchive, err)
			}
			return tasks, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		nhdr++

		t, err := o.entry(ctx, root, hdr, tr)
		if err != nil {
			if isRejected(err) {
				o.lg.DebugContext(ctx, "entry rejected", "name", hdr.Name, "reason", err)
			} else {
				o.lg.WarnContext(ctx, "extract failed", "name", hdr.Name, "error", err)
			}
			continue
		}
		if i, ok := seen[t.Name]; ok {
			// later entry with the same name replaces the file on disk.
			tasks[i] = t
			continue
		}
		seen[t.Name] = len(tasks)
		tasks = append(tasks, t)
	}
	o.lg.DebugContext(ctx, "archive extracted", "entries", nhdr, "tasks", len(tasks))
	return tasks, nil
}

// errNotRegular is returned for entries that are not regular files.
var errNotRegular = errors.New("not a regular file")

func isRejected(err error) bool {
	for _, e := range []error{errNotRegular, ErrInvalidName, ErrAbsolute, ErrTraversal, ErrJunk, ErrSkipExt} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// entry validates the header and extracts the entry contents from r.
func (o *options) entry(ctx context.Context, root string, hdr *tar.Header, r io.Reader) (task.Task, error) {
	// hard links report the regular file mode, so check the type flag.
	if hdr.Typeflag != tar.TypeReg && hdr.Typeflag != '\x00' {
		return task.Task{}, errNotRegular
	}
	name, err := Normalise(hdr.Name)
	if err != nil {
		return task.Task{}, err
	}
	if o.nfc {
		name = norm.NFC.String(name)
	}
	if err := o.flt.Check(name); err != nil {
		return task.Task{}, err
	}
	dst := filepath.Join(root, filepath.FromSlash(name))
	if !osext.Within(root, dst) {
		return task.Task{}, ErrTraversal
	}

	defer trace.StartRegion(ctx, "extractEntry").End()
	n, err := extractTo(dst, r)
	if err != nil {
		return task.Task{}, &osext.Error{File: name, Err: err}
	}
	o.lg.DebugContext(ctx, "extracted", "name", name, "size", humanize.Bytes(uint64(n)))
	return task.Task{
		Path:    dst,
		Name:    name,
		ModTime: hdr.ModTime,
		Size:    n,
	}, nil
}

// extractTo writes the contents of r to the file dst, creating the parent
// directories.  The contents go to a temporary file first, which replaces
// dst only when complete, so a failed entry leaves an earlier file with the
// same name intact.
func extractTo(dst string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(dir, ".extract-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), dst)
	}
	if err != nil {
		os.Remove(f.Name())
		return 0, err
	}
	return n, nil
}
