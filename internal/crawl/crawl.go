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

// Package crawl lists the URLs of a site under a base path.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"runtime/trace"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rusq/docfilter/internal/chttp"
)

// Crawler walks the pages of a site breadth first.
type Crawler struct {
	cl   *http.Client
	errW io.Writer
	lg   *slog.Logger
}

// Option configures the Crawler.
type Option func(*Crawler)

// WithClient sets the HTTP client.
func WithClient(cl *http.Client) Option {
	return func(c *Crawler) {
		if cl != nil {
			c.cl = cl
		}
	}
}

// WithErrWriter sets the writer of the fetch errors.
func WithErrWriter(w io.Writer) Option {
	return func(c *Crawler) {
		if w != nil {
			c.errW = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(c *Crawler) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// New returns a new Crawler.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		cl:   chttp.New(),
		errW: io.Discard,
		lg:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrInvalidURL is returned if the start URL is not an absolute HTTP(S) URL.
var ErrInvalidURL = errors.New("invalid start URL")

// Scope is the part of the site that is crawled.
type Scope struct {
	Host string
	// Path is the base path, always with the trailing slash.
	Path string
}

// NewScope returns the scope of the start URL.
func NewScope(start *url.URL) Scope {
	p := start.Path
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return Scope{Host: start.Host, Path: p}
}

// Contains reports whether u is within the scope.
func (s Scope) Contains(u *url.URL) bool {
	return u.Host == s.Host && strings.HasPrefix(u.Path, s.Path)
}

// Walk calls fn for the start URL and every URL found under its path, in
// the breadth first order.  Each URL is visited once.  Pages that fail to
// load are reported to the error writer, and are not followed.  If fn
// returns an error, the walk stops and the error is returned.
func (c *Crawler) Walk(ctx context.Context, start string, fn func(u string) error) error {
	su, err := url.Parse(start)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if (su.Scheme != "http" && su.Scheme != "https") || su.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidURL, start)
	}
	scope := NewScope(su)

	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		current := queue[0]
		queue = queue[1:]
		if err := fn(current); err != nil {
			return err
		}

		links, err := c.links(ctx, current)
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			fmt.Fprintf(c.errW, "Error fetching %s: %v\n", current, err)
			continue
		}
		for _, l := range links {
			if !scope.Contains(l) {
				continue
			}
			s := l.String()
			if _, seen := visited[s]; seen {
				continue
			}
			visited[s] = struct{}{}
			queue = append(queue, s)
		}
	}
	return nil
}

// links returns the links of the HTML page at pageURL, resolved, with the
// fragments removed.  Pages that are not HTML, or respond with a status
// other than 200, have no links.
func (c *Crawler) links(ctx context.Context, pageURL string) ([]*url.URL, error) {
	ctx, task := trace.NewTask(ctx, "links")
	defer task.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.cl.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.lg.DebugContext(ctx, "not following", "url", pageURL, "status", resp.StatusCode)
		return nil, nil
	}
	if !IsHTML(resp.Header.Get("Content-Type")) {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		u.Fragment = ""
		u.RawFragment = ""
		links = append(links, u)
	})
	return links, nil
}

// IsHTML reports whether the content type is text/html.
func IsHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "text/html")
	}
	return mt == "text/html"
}
