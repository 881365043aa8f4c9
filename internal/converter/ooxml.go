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

package converter

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// docxConverter extracts the paragraphs of a Word document.  Heading
// styles become markdown headings.
type docxConverter struct{}

func (docxConverter) Accepts(info Info) bool {
	return info.MIME == mimeDOCX || info.Ext == ".docx"
}

func (docxConverter) Convert(ctx context.Context, path string, _ Info) (string, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer z.Close()
	f, err := z.Open("word/document.xml")
	if err != nil {
		return "", fmt.Errorf("document body: %w", err)
	}
	defer f.Close()
	paras, err := ooxmlParagraphs(f)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, "\n\n"), nil
}

// pptxConverter extracts the text of each slide of a presentation.
type pptxConverter struct{}

func (pptxConverter) Accepts(info Info) bool {
	return info.MIME == mimePPTX || info.Ext == ".pptx"
}

var reSlide = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (pptxConverter) Convert(ctx context.Context, path string, _ Info) (string, error) {
	z, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open presentation: %w", err)
	}
	defer z.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range z.File {
		m := reSlide.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n, f})
	}
	slices.SortFunc(slides, func(a, b slide) int { return a.n - b.n })

	var b strings.Builder
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rc, err := s.f.Open()
		if err != nil {
			return "", err
		}
		paras, err := ooxmlParagraphs(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.n, err)
		}
		if len(paras) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## Slide %d\n\n%s\n\n", s.n, strings.Join(paras, "\n\n"))
	}
	return b.String(), nil
}

// ooxmlParagraphs returns the non-empty paragraphs of the WordprocessingML
// or DrawingML part.  Only the local element names are considered, so that
// w:p and a:p are handled the same way.
func ooxmlParagraphs(r io.Reader) ([]string, error) {
	var (
		paras   []string
		cur     strings.Builder
		heading int
		inText  bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur.Reset()
				heading = 0
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			case "pStyle":
				heading = headingLevel(attr(t, "val"))
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(cur.String())
				if text == "" {
					continue
				}
				if heading > 0 {
					text = strings.Repeat("#", heading) + " " + text
				}
				paras = append(paras, text)
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return paras, nil
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// headingLevel returns the heading level for the paragraph style names
// such as "Heading1" or "Title", or 0.
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if n, ok := strings.CutPrefix(s, "heading"); ok {
		if lvl, err := strconv.Atoi(n); err == nil && 1 <= lvl && lvl <= 6 {
			return lvl
		}
	}
	return 0
}
