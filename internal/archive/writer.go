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

package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rusq/docfilter/internal/task"
)

// DefaultExt is the default extension of the converted entries.
const DefaultExt = ".md"

// bufferName is the name of the archive file in the scratch directory.
const bufferName = "output.tar"

// Write writes a tar archive to w containing one entry per successful
// outcome, in the order given.  The entry name is the original name with
// the extension replaced by ext, the modification time is the one of the
// original entry.  Skipped and failed outcomes are ignored.  It returns the
// number of entries written.
func Write(w io.Writer, outcomes []task.Outcome, ext string) (int, error) {
	if ext == "" {
		ext = DefaultExt
	}
	tw := tar.NewWriter(w)
	var n int
	for _, o := range outcomes {
		if o.Status != task.StatusSuccess {
			continue
		}
		if err := writeEntry(tw, task.OutputName(o.Task.Name, ext), o); err != nil {
			return n, err
		}
		n++
	}
	if err := tw.Close(); err != nil {
		return n, err
	}
	return n, nil
}

// Duplicates returns the output names shared by more than one successful
// outcome, mapped to the original names in the order given.  Write keeps
// all of them, so the last one wins when the archive is extracted.
func Duplicates(outcomes []task.Outcome, ext string) map[string][]string {
	if ext == "" {
		ext = DefaultExt
	}
	byName := make(map[string][]string)
	for _, o := range outcomes {
		if o.Status != task.StatusSuccess {
			continue
		}
		name := task.OutputName(o.Task.Name, ext)
		byName[name] = append(byName[name], o.Task.Name)
	}
	for name, orig := range byName {
		if len(orig) < 2 {
			delete(byName, name)
		}
	}
	return byName
}

func writeEntry(tw *tar.Writer, name string, o task.Outcome) error {
	f, err := os.Open(o.ContentPath)
	if err != nil {
		return fmt.Errorf("converted content of %s: %w", o.Task.Name, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     fi.Size(),
		Mode:     0o644,
		ModTime:  o.Task.ModTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("header %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("contents %s: %w", name, err)
	}
	return nil
}

// Buffered calls fn to produce the archive into a file in the scratch
// directory, and once fn returns successfully, copies the whole file to w.
// Nothing is written to w if fn fails.
func Buffered(scratch string, w io.Writer, fn func(w io.Writer) error) error {
	f, err := os.Create(filepath.Join(scratch, bufferName))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return err
	}
	return nil
}
