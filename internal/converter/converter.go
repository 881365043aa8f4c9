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

// Package converter converts document files to markdown text.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupported is returned when no converter accepts the file.
var ErrUnsupported = errors.New("unsupported file format")

// Info is the information about the file being converted.
type Info struct {
	// Name is the base name of the file.
	Name string
	// Ext is the lowercase extension, including the leading dot.
	Ext string
	// MIME is the detected media type, without parameters.
	MIME string
	// Charset is the charset parameter of the detected media type, if any.
	Charset string
	// Text is true if the detected type is a subtype of text/plain.
	Text bool
}

//go:generate mockgen -destination=mock_converter/mock_converter.go . Converter,Describer

// Converter converts a single file format.
type Converter interface {
	// Accepts returns true if the converter can handle the file.
	Accepts(info Info) bool
	// Convert converts the file at path.  It returns an empty string if the
	// file holds no text.
	Convert(ctx context.Context, path string, info Info) (string, error)
}

// Describer describes the image contents in words.
type Describer interface {
	Describe(ctx context.Context, mime string, data []byte) (string, error)
}

// Registry holds the converters in the order of preference.
type Registry struct {
	convs []Converter
	lg    *slog.Logger
}

// Option is the Registry option.
type Option func(*options)

type options struct {
	describer Describer
	lg        *slog.Logger
}

// WithDescriber sets the image describer.  Without it, the images yield no
// text.
func WithDescriber(d Describer) Option {
	return func(o *options) {
		o.describer = d
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(o *options) {
		if lg != nil {
			o.lg = lg
		}
	}
}

// New returns the Registry with all built-in converters.
func New(opts ...Option) *Registry {
	o := options{lg: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		convs: []Converter{
			htmlConverter{},
			xlsxConverter{},
			docxConverter{},
			pptxConverter{},
			pdfConverter{},
			csvConverter{},
			jsonConverter{},
			imageConverter{d: o.describer},
			textConverter{},
		},
		lg: o.lg,
	}
}

// NewWith returns the Registry with the given converters only.
func NewWith(convs ...Converter) *Registry {
	return &Registry{convs: convs, lg: slog.Default()}
}

// Detect returns the file information for the file at path.
func Detect(path string) (Info, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("detect: %w", err)
	}
	info := Info{
		Name: filepath.Base(path),
		Ext:  strings.ToLower(filepath.Ext(path)),
	}
	info.MIME, info.Charset = splitMIME(mt.String())
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			info.Text = true
			break
		}
	}
	return info, nil
}

func splitMIME(s string) (mime, charset string) {
	mime, params, _ := strings.Cut(s, ";")
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(k, "charset") {
			charset = strings.ToLower(strings.Trim(v, `"`))
		}
	}
	return strings.TrimSpace(mime), charset
}

// Convert converts the file at path with the first converter accepting it.
func (r *Registry) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := Detect(path)
	if err != nil {
		return "", err
	}
	for _, c := range r.convs {
		if !c.Accepts(info) {
			continue
		}
		r.lg.DebugContext(ctx, "converting", "name", info.Name, "mime", info.MIME, "converter", fmt.Sprintf("%T", c))
		text, err := c.Convert(ctx, path, info)
		if err != nil {
			return "", err
		}
		return normalise(text), nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupported, info.Name, info.MIME)
}

// normalise trims the trailing whitespace of lines, collapses runs of blank
// lines and drops the leading and trailing blank lines.  Blank text is
// returned as an empty string.
func normalise(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	var (
		b     strings.Builder
		blank = 0
	)
	for _, l := range lines {
		l = strings.TrimRightFunc(l, unicode.IsSpace)
		if l == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = 0
		b.WriteString(l)
	}
	return b.String()
}
