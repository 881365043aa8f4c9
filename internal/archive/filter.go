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
	"errors"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrInvalidName = errors.New("invalid entry name")
	ErrAbsolute    = errors.New("absolute path")
	ErrTraversal   = errors.New("path escapes the extraction root")
	ErrJunk        = errors.New("junk file")
	ErrSkipExt     = errors.New("non-convertible media")
)

// junkNames are the OS metadata files that never carry content.
var junkNames = map[string]struct{}{
	".DS_Store":   {},
	"Thumbs.db":   {},
	"desktop.ini": {},
}

// DefaultSkipExt is the set of extensions of files that can't be converted
// to text.
var DefaultSkipExt = []string{
	// audio and video
	".mp3", ".mp4", ".m4a", ".m4v", ".mov", ".wav", ".avi", ".mkv", ".webm", ".flac", ".ogg", ".aac", ".wmv",
	// archives
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".zst", ".7z", ".rar",
	// executables and libraries
	".exe", ".dll", ".so", ".dylib", ".bin", ".o", ".a",
	// compiled bytecode
	".pyc", ".pyo", ".pyd", ".class",
	// fonts
	".woff", ".woff2", ".ttf", ".eot", ".otf",
}

// Filter decides which archive entries become conversion tasks.
type Filter struct {
	skipExt map[string]struct{}
}

// NewFilter returns a filter with the default skip extensions and any
// additional extensions.
func NewFilter(extraSkipExt ...string) *Filter {
	f := &Filter{skipExt: make(map[string]struct{}, len(DefaultSkipExt)+len(extraSkipExt))}
	for _, ext := range slices.Concat(DefaultSkipExt, extraSkipExt) {
		f.skipExt[normExt(ext)] = struct{}{}
	}
	return f
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	return ext
}

// IsJunk reports whether the base name of name is an OS metadata sidecar
// file, such as .DS_Store (with any prefix, "b.DS_Store" included) or an
// AppleDouble "._" file.
func IsJunk(name string) bool {
	base := path.Base(name)
	if strings.HasPrefix(base, "._") || strings.HasSuffix(base, ".DS_Store") {
		return true
	}
	_, ok := junkNames[base]
	return ok
}

// Check returns nil, if the normalised entry name should be converted,
// otherwise it returns ErrJunk or ErrSkipExt.
func (f *Filter) Check(name string) error {
	if IsJunk(name) {
		return ErrJunk
	}
	if _, skip := f.skipExt[strings.ToLower(path.Ext(name))]; skip {
		return ErrSkipExt
	}
	return nil
}

// Normalise cleans the archive entry name and validates that it stays
// within the extraction root.  Backslashes are treated as separators.  It
// returns the cleaned, slash-separated name.
func Normalise(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	n := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(n) || filepath.IsAbs(n) || filepath.VolumeName(n) != "" || hasDriveLetter(n) {
		return "", ErrAbsolute
	}
	n = path.Clean(n)
	if n == "." {
		return "", ErrInvalidName
	}
	if n == ".." || strings.HasPrefix(n, "../") {
		return "", ErrTraversal
	}
	return n, nil
}

// hasDriveLetter detects names like "C:evil", which are relative to the
// current directory of the drive on windows.
func hasDriveLetter(n string) bool {
	if len(n) < 2 || n[1] != ':' {
		return false
	}
	c := n[0] | 0x20
	return 'a' <= c && c <= 'z'
}
