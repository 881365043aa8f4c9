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
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rusq/docfilter/internal/fixtures"
)

func mkFile(t *testing.T, name string, content string) string {
	t.Helper()
	return fixtures.MkTestFileName(t, filepath.Join(t.TempDir(), name), content)
}

// mkZip creates a zip file with the given files.
func mkZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return p
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", " \n\t\n", ""},
		{"trailing spaces", "a  \nb\t\n", "a\nb"},
		{"blank runs", "a\n\n\n\nb", "a\n\nb"},
		{"crlf", "a\r\nb\r\n", "a\nb"},
		{"leading blank lines", "\n\n# T\n", "# T"},
		{"single line", "Hello\n", "Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalise(tt.in))
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf-8", []byte("café"), "utf-8", "café"},
		{"bom", []byte("\xef\xbb\xbfhello"), "", "hello"},
		{"windows-1252 default", []byte("caf\xe9 \x93q\x94"), "", "café “q”"},
		{"koi8-r", []byte("\xf0\xd2\xc9\xd7\xc5\xd4"), "koi8-r", "Привет"},
		{"utf-16le", []byte("\xff\xfeh\x00i\x00"), "utf-16le", "hi"},
		{"unknown charset", []byte("caf\xe9"), "x-unknown", "café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decode(tt.data, tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	info, err := Detect(mkFile(t, "Notes.TXT", "hello world\n"))
	require.NoError(t, err)
	assert.Equal(t, "Notes.TXT", info.Name)
	assert.Equal(t, ".txt", info.Ext)
	assert.Equal(t, "text/plain", info.MIME)
	assert.Equal(t, "utf-8", info.Charset)
	assert.True(t, info.Text)

	_, err = Detect(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSplitMIME(t *testing.T) {
	m, cs := splitMIME(`text/plain; charset="UTF-16LE"`)
	assert.Equal(t, "text/plain", m)
	assert.Equal(t, "utf-16le", cs)
	m, cs = splitMIME("application/pdf")
	assert.Equal(t, "application/pdf", m)
	assert.Empty(t, cs)
}

func TestRegistry_Convert(t *testing.T) {
	r := New()
	t.Run("text", func(t *testing.T) {
		got, err := r.Convert(t.Context(), mkFile(t, "a.txt", "Hello  \n\n\n\nWorld"))
		require.NoError(t, err)
		assert.Equal(t, "Hello\n\nWorld", got)
	})
	t.Run("source code by extension", func(t *testing.T) {
		got, err := r.Convert(t.Context(), mkFile(t, "main.go", "package main\n"))
		require.NoError(t, err)
		assert.Equal(t, "package main", got)
	})
	t.Run("empty text has no content", func(t *testing.T) {
		got, err := r.Convert(t.Context(), mkFile(t, "empty.txt", ""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
	t.Run("csv", func(t *testing.T) {
		got, err := r.Convert(t.Context(), mkFile(t, "a.csv", "name,qty\napple,1\npear|x,2\n"))
		require.NoError(t, err)
		assert.Equal(t, "| name | qty |\n| --- | --- |\n| apple | 1 |\n| pear\\|x | 2 |", got)
	})
	t.Run("tsv", func(t *testing.T) {
		got, err := r.Convert(t.Context(), mkFile(t, "a.tsv", "a\tb\n1\t2\n"))
		require.NoError(t, err)
		assert.Equal(t, "| a | b |\n| --- | --- |\n| 1 | 2 |", got)
	})
	t.Run("json", func(t *testing.T) {
		got, err := r.Convert(t.Context(), mkFile(t, "a.json", `{"a":[1,2]}`))
		require.NoError(t, err)
		assert.Equal(t, "```json\n{\n  \"a\": [\n    1,\n    2\n  ]\n}\n```", got)
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := r.Convert(t.Context(), mkFile(t, "blob.bin", "\x00\x01\x02\x03\xff\xfe\x00\x00binary"))
		assert.ErrorIs(t, err, ErrUnsupported)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := r.Convert(ctx, mkFile(t, "a.txt", "x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRegistry_NewWith(t *testing.T) {
	r := NewWith(jsonConverter{})
	_, err := r.Convert(t.Context(), mkFile(t, "a.txt", "text"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRenderHTML(t *testing.T) {
	const page = `<html><head><title>T</title><style>p{}</style></head><body>` +
		`<h1>Hello</h1><p>World <b>bold</b> and <a href="https://example.com/x">link</a></p>` +
		`<ul><li>one</li><li>two</li></ul>` +
		`<pre>  code
  block</pre>` +
		`<table><tr><th>k</th><th>v</th></tr><tr><td>a</td><td>1</td></tr></table>` +
		`<script>alert(1)</script></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	got := renderHTML(doc.Find("body"), nil)
	want := "# Hello\n\n" +
		"World **bold** and [link](https://example.com/x)\n\n" +
		"- one\n- two\n\n" +
		"```\n  code\n  block\n```\n\n" +
		"| k | v |\n| --- | --- |\n| a | 1 |"
	assert.Equal(t, want, got)
}

func TestHTMLToMarkdown(t *testing.T) {
	page := `<html><head><title>The Page</title></head><body><div><p>` +
		strings.Repeat("This is a long enough paragraph of the article text. ", 20) +
		`</p><p>See <a href="/docs/">docs</a>.</p></div></body></html>`
	base, _ := url.Parse("https://example.com/blog/post")
	got, err := HTMLToMarkdown(page, base)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "# The Page\n\n"), got)
	assert.Contains(t, got, "long enough paragraph")
	assert.Contains(t, got, "(https://example.com/docs/)")

	empty, err := HTMLToMarkdown("<html><body><script>x()</script></body></html>", base)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "apple"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	got, err := New().Convert(t.Context(), p)
	require.NoError(t, err)
	assert.Equal(t, "## Sheet1\n\n| name | qty |\n| --- | --- |\n| apple | 3 |", got)
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestDOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?><w:document ` + wordNS + `><w:body>` +
		`<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Intro</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	p := mkZip(t, "a.docx", map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"word/document.xml":   doc,
	})
	got, err := New().Convert(t.Context(), p)
	require.NoError(t, err)
	assert.Equal(t, "## Intro\n\nHello world\n\na\tb", got)
}

func TestDOCX_broken(t *testing.T) {
	p := mkZip(t, "a.docx", map[string]string{"other.xml": "<x/>"})
	_, err := New().Convert(t.Context(), p)
	assert.Error(t, err)
}

func TestPPTX(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` +
			text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	p := mkZip(t, "deck.pptx", map[string]string{
		"[Content_Types].xml":   `<?xml version="1.0"?><Types/>`,
		"ppt/slides/slide10.xml": slide("ten"),
		"ppt/slides/slide2.xml":  slide("two"),
		"ppt/slides/slide1.xml":  slide("one"),
		"ppt/slides/_rels/x.xml": slide("ignored"),
	})
	got, err := New().Convert(t.Context(), p)
	require.NoError(t, err)
	assert.Equal(t, "## Slide 1\n\none\n\n## Slide 2\n\ntwo\n\n## Slide 10\n\nten", got)
}

func TestPDF_malformed(t *testing.T) {
	_, err := New().Convert(t.Context(), mkFile(t, "bad.pdf", "%PDF-1.4\nnot really a pdf\n%%EOF\n"))
	assert.Error(t, err)
}

func TestHeadingLevel(t *testing.T) {
	assert.Equal(t, 1, headingLevel("Title"))
	assert.Equal(t, 3, headingLevel("Heading3"))
	assert.Equal(t, 2, headingLevel("heading 2"))
	assert.Equal(t, 0, headingLevel("Heading9"))
	assert.Equal(t, 0, headingLevel("Normal"))
}

type fakeDescriber struct {
	desc string
	err  error
	mime string
}

func (f *fakeDescriber) Describe(ctx context.Context, mime string, data []byte) (string, error) {
	f.mime = mime
	return f.desc, f.err
}

// png is a 1x1 transparent PNG.
const png = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89" +
	"\x00\x00\x00\rIDATx\x9cc\x00\x01\x00\x00\x05\x00\x01\r\n-\xb4\x00\x00\x00\x00IEND\xaeB`\x82"

func TestImage(t *testing.T) {
	p := mkFile(t, "pic.png", png)
	t.Run("no describer", func(t *testing.T) {
		got, err := New().Convert(t.Context(), p)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
	t.Run("described", func(t *testing.T) {
		d := &fakeDescriber{desc: "A transparent pixel."}
		got, err := New(WithDescriber(d)).Convert(t.Context(), p)
		require.NoError(t, err)
		assert.Equal(t, "# pic.png\n\nA transparent pixel.", got)
		assert.Equal(t, "image/png", d.mime)
	})
	t.Run("describer error", func(t *testing.T) {
		d := &fakeDescriber{err: errors.New("quota")}
		_, err := New(WithDescriber(d)).Convert(t.Context(), p)
		assert.ErrorContains(t, err, "quota")
	})
}

func TestTable(t *testing.T) {
	assert.Empty(t, table(nil))
	assert.Equal(t, "| a | b |\n| --- | --- |\n| 1 |  |\n", table([][]string{{"a", "b"}, {"1"}}))
	assert.Equal(t, [][]string{{"a"}}, trimRows([][]string{{"a", " "}, {"", ""}}))
}
