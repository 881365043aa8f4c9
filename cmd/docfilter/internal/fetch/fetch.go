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

package fetch

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/chttp"
	"github.com/rusq/docfilter/internal/fetch"
	"github.com/rusq/docfilter/internal/osext"
)

var CmdFetch = &base.Command{
	Run:       runFetch,
	UsageLine: "docfilter fetch [flags] [URL ...] [< urls.txt]",
	Short:     "print the text contents of web pages",
	Long: `
Fetch prints the text of each page, preceded by the "---- URL ----" header.
The URLs are taken from the command line, or, if none are given, from the
standard input, one per line.

Plain text pages and URLs ending with ".txt" are printed as is.  The
article of HTML pages is extracted and printed as markdown.
`,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

var (
	timeout   = chttp.DefTimeout
	userAgent string
)

func init() {
	CmdFetch.Flag.DurationVar(&timeout, "timeout", chttp.DefTimeout, "HTTP request `timeout`")
	CmdFetch.Flag.StringVar(&userAgent, "user-agent", chttp.DefUserAgent, "User-Agent header `value`")
}

func runFetch(ctx context.Context, cmd *base.Command, args []string) error {
	var in io.Reader = os.Stdin
	if len(args) > 0 {
		in = strings.NewReader(strings.Join(args, "\n"))
	}
	f := fetch.New(chttp.New(chttp.WithTimeout(timeout), chttp.WithUserAgent(userAgent)), cfg.Log)
	n, err := f.Copy(ctx, os.Stdout, in)
	if err != nil {
		if !osext.IsBrokenPipe(err) {
			base.SetExitStatus(base.SApplicationError)
		}
		return err
	}
	cfg.Log.DebugContext(ctx, "pages fetched", "count", n)
	return nil
}
