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

package slackfiles

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rusq/fsadapter"
)

// ErrNotATimestamp is returned by ParseTS if the value is not a Slack
// timestamp.
var ErrNotATimestamp = errors.New("not a slack timestamp")

// ParseTS parses the Slack timestamp "seconds.micros".
func ParseTS(ts string) (time.Time, error) {
	sec, frac, found := strings.Cut(ts, ".")
	if !found {
		frac = "0"
	}
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotATimestamp, ts)
	}
	if len(frac) > 6 {
		frac = frac[:6]
	}
	us, err := strconv.ParseInt(frac+strings.Repeat("0", 6-len(frac)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotATimestamp, ts)
	}
	return time.Unix(s, us*int64(time.Microsecond)), nil
}

// TarSink writes the files as the entries of a tar stream.
type TarSink struct {
	tw   *tar.Writer
	seen map[string]struct{}
}

// NewTarSink returns the sink writing to w.  Close must be called to write
// the end of the archive.
func NewTarSink(w io.Writer) *TarSink {
	return &TarSink{tw: tar.NewWriter(w), seen: make(map[string]struct{})}
}

// Exists reports whether the entry with the name was already written.
func (s *TarSink) Exists(name string) bool {
	_, ok := s.seen[name]
	return ok
}

func (s *TarSink) Store(name string, modTime time.Time, size int64, r io.Reader) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     size,
		Mode:     0o644,
		ModTime:  modTime,
	}
	if err := s.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("header %s: %w", name, err)
	}
	if _, err := io.CopyN(s.tw, r, size); err != nil {
		return fmt.Errorf("contents %s: %w", name, err)
	}
	s.seen[name] = struct{}{}
	return nil
}

func (s *TarSink) Close() error {
	return s.tw.Close()
}

// DirSink saves the files into a directory.
type DirSink struct {
	dir string
	fsa fsadapter.FS
}

// NewDirSink returns the sink saving into the directory dir, which is
// created if it does not exist.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirSink{dir: dir, fsa: fsadapter.NewDirectory(dir)}, nil
}

// Exists reports whether the file exists in the directory.
func (s *DirSink) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

func (s *DirSink) Store(name string, modTime time.Time, size int64, r io.Reader) error {
	f, err := s.fsa.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	return f.Close()
}
