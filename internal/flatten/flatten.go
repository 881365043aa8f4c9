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

// Package flatten copies a directory tree into a flat directory or a ZIP
// file, encoding the directory hierarchy in the file names.
package flatten

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rusq/fsadapter"

	"github.com/rusq/docfilter/internal/osext"
)

// Sep replaces the path separators in the flattened names.
const Sep = "__"

// Name returns the flattened name of the slash-separated relative path, for
// example "docs/v1/api.md" becomes "docs__v1__api.md".
func Name(rel string) string {
	return strings.ReplaceAll(rel, "/", Sep)
}

// File is the file to copy.
type File struct {
	// Path is the path of the source file.
	Path string
	// Rel is the slash-separated path relative to the source directory.
	Rel string
	// Flat is the flattened name.
	Flat string
	// Info is the file info of the source file.
	Info os.FileInfo
}

// Collect returns the non-hidden regular files under src in lexical order.
// Hidden files are the files whose name starts with a dot.  Files in hidden
// directories are included.
func Collect(src string) ([]File, error) {
	if err := osext.DirExists(src); err != nil {
		return nil, fmt.Errorf("source %q: %w", src, err)
	}
	var files []File
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files = append(files, File{Path: p, Rel: rel, Flat: Name(rel), Info: fi})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Reporter receives the progress of the copy.
type Reporter interface {
	Copied(f File)
	Failed(f File, err error)
}

// Options are the copy options.
type Options struct {
	// Chtimes sets the modification time of the copied file to the one of
	// the source.  Only possible when the target is a directory.
	Chtimes func(name string, fi os.FileInfo) error
	Logger  *slog.Logger
}

// Copy copies files to fsa.  A failure to copy a file is reported to rep,
// and does not stop the copy.  It returns the number of copied files.
func Copy(ctx context.Context, fsa fsadapter.FS, files []File, rep Reporter, opt Options) (int, error) {
	lg := opt.Logger
	if lg == nil {
		lg = slog.Default()
	}
	var n int
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		sz, err := osext.CopyFile(f.Path, fsa, f.Flat)
		if err == nil && opt.Chtimes != nil {
			err = opt.Chtimes(f.Flat, f.Info)
		}
		if err != nil {
			rep.Failed(f, err)
			continue
		}
		lg.DebugContext(ctx, "copied", "file", f.Rel, "size", sz)
		rep.Copied(f)
		n++
	}
	return n, nil
}

// DirChtimes returns the Chtimes function for the target directory dir.
func DirChtimes(dir string) func(name string, fi os.FileInfo) error {
	return func(name string, fi os.FileInfo) error {
		mt := fi.ModTime()
		return os.Chtimes(filepath.Join(dir, name), mt, mt)
	}
}

// Printer is the Reporter that prints the copied files to w, and the
// failures to errW.
type Printer struct {
	W    io.Writer
	ErrW io.Writer
}

func (p Printer) Copied(f File) {
	fmt.Fprintf(p.W, "cp '%s' -> '%s'\n", f.Rel, f.Flat)
}

func (p Printer) Failed(f File, err error) {
	fmt.Fprintf(p.ErrW, "Failed to copy %s: %v\n", f.Path, err)
}
