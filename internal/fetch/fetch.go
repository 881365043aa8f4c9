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

// Package fetch prints the text contents of web pages.
package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rusq/docfilter/internal/chttp"
	"github.com/rusq/docfilter/internal/converter"
)

// NoContent is printed when no text could be extracted from the page.
const NoContent = "(Content extraction failed or empty)"

// maxBody is the maximum size of the response body that is read.
const maxBody = 32 << 20

// Fetcher fetches the pages.
type Fetcher struct {
	cl *http.Client
	lg *slog.Logger
}

// New returns the new Fetcher.  If cl is nil, the default client is used.
func New(cl *http.Client, lg *slog.Logger) *Fetcher {
	if cl == nil {
		cl = chttp.New()
	}
	if lg == nil {
		lg = slog.Default()
	}
	return &Fetcher{cl: cl, lg: lg}
}

// Copy reads the URLs from r, one per line, and writes the contents of each
// to w, preceded by the "---- URL ----" header.  Blank lines are ignored.
// Errors fetching a page are written to w in place of the contents.  It
// returns the number of pages successfully fetched.
func (f *Fetcher) Copy(ctx context.Context, w io.Writer, r io.Reader) (int, error) {
	var n int
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		u := strings.TrimSpace(sc.Text())
		if u == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n---- %s ----\n", u); err != nil {
			return n, err
		}
		text, err := f.Text(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return n, context.Cause(ctx)
			}
			f.lg.DebugContext(ctx, "fetch failed", "url", u, "error", err)
			text = "Error: " + err.Error()
		} else {
			n++
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return n, err
		}
	}
	return n, sc.Err()
}

// StatusError is returned by Text when the server responds with a status
// other than 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Status %d", e.Code)
}

// Text returns the text contents of the page.  Plain text pages are
// returned as is, HTML pages are converted to markdown.  If no text could
// be extracted, it returns NoContent.
func (f *Fetcher) Text(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.cl.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}
	if isPlainText(resp.Header.Get("Content-Type"), pageURL) {
		return string(data), nil
	}
	md, err := converter.HTMLToMarkdown(string(data), resp.Request.URL)
	if err != nil || strings.TrimSpace(md) == "" {
		return NoContent, nil
	}
	return md, nil
}

func isPlainText(contentType string, pageURL string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "text/plain" {
		return true
	}
	if u, err := url.Parse(pageURL); err == nil {
		return strings.HasSuffix(u.Path, ".txt")
	}
	return strings.HasSuffix(pageURL, ".txt")
}
