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

package urls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/chttp"
	"github.com/rusq/docfilter/internal/crawl"
	"github.com/rusq/docfilter/internal/osext"
)

var CmdURLs = &base.Command{
	Run:       runURLs,
	UsageLine: "docfilter urls [flags] URL",
	Short:     "list the URLs of a site under the path",
	Long: `
Urls crawls the site starting from the URL, and prints every page URL that
is under the URL path, one per line.  Only the links on the same host are
followed.  The output can be piped to 'docfilter fetch':

    docfilter urls https://example.com/docs/ | docfilter fetch > docs.txt

Errors are printed to the standard error.
`,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

var (
	timeout   = chttp.DefTimeout
	userAgent string
)

func init() {
	CmdURLs.Flag.DurationVar(&timeout, "timeout", chttp.DefTimeout, "HTTP request `timeout`")
	CmdURLs.Flag.StringVar(&userAgent, "user-agent", chttp.DefUserAgent, "User-Agent header `value`")
}

func runURLs(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s\n", cmd.UsageLine)
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("URL is required")
	}
	cr := crawl.New(
		crawl.WithClient(chttp.New(chttp.WithTimeout(timeout), chttp.WithUserAgent(userAgent))),
		crawl.WithErrWriter(os.Stderr),
		crawl.WithLogger(cfg.Log),
	)
	if err := run(ctx, os.Stdout, os.Stderr, cr, args[0]); err != nil {
		switch {
		case osext.IsBrokenPipe(err):
		case errors.Is(err, crawl.ErrInvalidURL):
			base.SetExitStatus(base.SInvalidParameters)
		default:
			base.SetExitStatus(base.SApplicationError)
		}
		return err
	}
	return nil
}

func run(ctx context.Context, w, errW io.Writer, cr *crawl.Crawler, start string) error {
	fmt.Fprintf(errW, "Collecting URLs under: %s\n", start)
	return cr.Walk(ctx, start, func(u string) error {
		_, err := fmt.Fprintln(w, u)
		return err
	})
}
