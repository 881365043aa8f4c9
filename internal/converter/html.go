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
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// htmlConverter extracts the article of an HTML page, falling back to the
// whole body, and renders it as markdown.
type htmlConverter struct{}

func (htmlConverter) Accepts(info Info) bool {
	return info.MIME == "text/html" || info.Ext == ".html" || info.Ext == ".htm" || info.Ext == ".xhtml"
}

func (htmlConverter) Convert(ctx context.Context, path string, info Info) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := decode(data, info.Charset)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return HTMLToMarkdown(text, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
}

// HTMLToMarkdown renders the main content of the HTML page as markdown.
// The article is located with readability, if it fails, the whole body is
// used.  pageURL is used to resolve relative links.
func HTMLToMarkdown(page string, pageURL *url.URL) (string, error) {
	var title, content string
	if article, err := readability.FromReader(strings.NewReader(page), pageURL); err == nil && strings.TrimSpace(article.TextContent) != "" {
		title = strings.TrimSpace(article.Title)
		content = article.Content
	} else {
		content = page
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	md := renderHTML(body, pageURL)
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}

// renderHTML renders the selection as markdown.
func renderHTML(s *goquery.Selection, base *url.URL) string {
	var buf bytes.Buffer
	r := htmlRenderer{w: &buf, base: base}
	r.children(s)
	return tidy(buf.String())
}

type htmlRenderer struct {
	w    *bytes.Buffer
	base *url.URL
}

func (r *htmlRenderer) children(s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		r.node(c)
	})
}

func (r *htmlRenderer) block(f func()) {
	r.w.WriteString("\n\n")
	f()
	r.w.WriteString("\n\n")
}

func (r *htmlRenderer) node(c *goquery.Selection) {
	switch name := goquery.NodeName(c); name {
	case "#text":
		r.w.WriteString(collapseSpace(c.Text()))
	case "#comment", "script", "style", "noscript", "template", "head", "svg", "iframe", "form":
	case "h1", "h2", "h3", "h4", "h5", "h6":
		r.block(func() {
			r.w.WriteString(strings.Repeat("#", int(name[1]-'0')) + " ")
			r.w.WriteString(strings.TrimSpace(collapseSpace(c.Text())))
		})
	case "p", "div", "section", "article", "main", "header", "footer", "aside", "figure", "ul", "ol", "dl":
		r.block(func() { r.children(c) })
	case "blockquote":
		r.block(func() {
			for _, l := range strings.Split(renderHTML(c, r.base), "\n") {
				r.w.WriteString("> " + l + "\n")
			}
		})
	case "li":
		r.w.WriteString("\n- ")
		r.children(c)
	case "dt":
		r.w.WriteString("\n**")
		r.w.WriteString(strings.TrimSpace(collapseSpace(c.Text())))
		r.w.WriteString("**\n")
	case "dd":
		r.w.WriteString("\n: ")
		r.children(c)
		r.w.WriteString("\n")
	case "br":
		r.w.WriteString("\n")
	case "hr":
		r.block(func() { r.w.WriteString("---") })
	case "pre":
		r.block(func() {
			r.w.WriteString("```\n")
			r.w.WriteString(strings.Trim(c.Text(), "\n"))
			r.w.WriteString("\n```")
		})
	case "code", "kbd", "samp":
		if t := strings.TrimSpace(c.Text()); t != "" {
			r.w.WriteString("`" + t + "`")
		}
	case "strong", "b":
		r.wrap(c, "**")
	case "em", "i":
		r.wrap(c, "*")
	case "a":
		text := strings.TrimSpace(collapseSpace(c.Text()))
		href, ok := c.Attr("href")
		if !ok || text == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			r.children(c)
			return
		}
		r.w.WriteString("[" + text + "](" + r.resolve(href) + ")")
	case "img":
		if alt := strings.TrimSpace(c.AttrOr("alt", "")); alt != "" {
			r.w.WriteString("![" + alt + "](" + r.resolve(c.AttrOr("src", "")) + ")")
		}
	case "table":
		r.block(func() { r.w.WriteString(table(htmlRows(c))) })
	default:
		r.children(c)
	}
}

func (r *htmlRenderer) wrap(c *goquery.Selection, mark string) {
	t := strings.TrimSpace(collapseSpace(c.Text()))
	if t == "" {
		return
	}
	r.w.WriteString(mark + t + mark)
}

func (r *htmlRenderer) resolve(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || r.base == nil || r.base.Scheme == "file" {
		return href
	}
	return r.base.ResolveReference(u).String()
}

func htmlRows(t *goquery.Selection) [][]string {
	var rows [][]string
	t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(collapseSpace(cell.Text())))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return rows
}

// collapseSpace replaces all whitespace runs with a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// tidy trims the lines outside of fenced code blocks.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	fenced := false
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			fenced = !fenced
			lines[i] = strings.TrimSpace(l)
			continue
		}
		if !fenced {
			lines[i] = strings.TrimSpace(l)
		}
	}
	return normalise(strings.Join(lines, "\n"))
}
