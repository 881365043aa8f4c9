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

// Package catall concatenates the text files of a directory tree into a
// single stream, each file preceded by its path.
package catall

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// sniffLen is the number of leading bytes checked for NUL bytes.
const sniffLen = 1024

var (
	// IgnoreDirs are the directories that are never descended into.
	IgnoreDirs = []string{
		".git", ".svn", ".hg", "__pycache__", "node_modules",
		".venv", "venv", "env", ".idea", ".vscode", "dist", "build",
		"result",
	}
	// IgnoreFiles are the file names that are never printed.
	IgnoreFiles = []string{
		".DS_Store", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
		"secrets.yaml", "secrets.yaml.plain",
	}
	// IgnoreExts are the extensions of the binary files.
	IgnoreExts = []string{
		".pyc", ".pyo", ".pyd", ".so", ".dll", ".dylib", ".exe", ".bin",
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".ico", ".svg",
		".mp3", ".mp4", ".mov", ".wav", ".avi", ".mkv",
		".zip", ".tar", ".gz", ".7z", ".rar", ".pdf",
		".woff", ".woff2", ".ttf", ".eot", ".otf",
	}
)

// Write writes every text file of fsys to w.  Within a directory, files are
// written in name order before the subdirectories.  It returns the number
// of files written.
func Write(w io.Writer, fsys fs.FS) (int, error) {
	cw := &catWriter{w: w}
	if err := cw.dir(fsys, "."); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

type catWriter struct {
	w   io.Writer
	n   int
	err error
}

func (cw *catWriter) printf(format string, a ...any) {
	if cw.err != nil {
		return
	}
	_, cw.err = fmt.Fprintf(cw.w, format, a...)
}

func (cw *catWriter) dir(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	var subdirs []string
	for _, de := range entries {
		name := de.Name()
		p := path.Join(dir, name)
		if de.IsDir() {
			if !slices.Contains(IgnoreDirs, name) && !strings.HasPrefix(name, ".") {
				subdirs = append(subdirs, p)
			}
			continue
		}
		if !de.Type().IsRegular() || ignoredFile(name) {
			continue
		}
		cw.file(fsys, p)
		if cw.err != nil {
			return cw.err
		}
	}
	for _, sub := range subdirs {
		if err := cw.dir(fsys, sub); err != nil {
			return err
		}
	}
	return nil
}

func ignoredFile(name string) bool {
	return strings.HasPrefix(name, ".") ||
		slices.Contains(IgnoreFiles, name) ||
		slices.Contains(IgnoreExts, strings.ToLower(path.Ext(name)))
}

func (cw *catWriter) file(fsys fs.FS, name string) {
	if !isText(fsys, name) {
		return
	}
	cw.printf("--- %s ---\n", name)
	if data, err := fs.ReadFile(fsys, name); err != nil {
		cw.printf("[Error reading file: %v]\n", err)
	} else {
		cw.printf("%s\n", bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	cw.printf("\n")
	cw.n++
}

// isText reports whether the file can be opened, and the beginning of it
// contains no NUL bytes.
func isText(fsys fs.FS, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false
	}
	return bytes.IndexByte(head[:n], 0) < 0
}
