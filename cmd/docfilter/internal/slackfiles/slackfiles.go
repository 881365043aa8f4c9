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

package slackfiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rusq/slack"
	"github.com/schollz/progressbar/v3"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/network"
	"github.com/rusq/docfilter/internal/osext"
	"github.com/rusq/docfilter/internal/slackfiles"
)

var CmdSlackfiles = &base.Command{
	Run:       runSlackfiles,
	UsageLine: "docfilter slackfiles [flags] CHANNEL_ID",
	Short:     "download files attached to the messages of a Slack channel",
	Long: `
Slackfiles downloads all files attached to the messages of the Slack channel.

The bot token is read from the standard input, if it is not a terminal,
otherwise from the SLACK_BOT_TOKEN environment variable, which can also be
set in the .env file.

By default, the files are written as a tar archive to the standard output,
with modification times set to the times of the messages, so that they can
be piped to 'docfilter markdown':

    echo $TOKEN | docfilter slackfiles C0123456 | docfilter markdown > md.tar

With -dir, the files are saved to the directory, and the files that already
exist there are not downloaded again.

Files are named "<message timestamp>_<file name>".
`,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

const envToken = "SLACK_BOT_TOKEN"

var (
	outputDir string
	retries   int
)

func init() {
	CmdSlackfiles.Flag.StringVar(&outputDir, "dir", "", "save files to the `directory` instead of writing a tar archive to STDOUT")
	CmdSlackfiles.Flag.IntVar(&retries, "retries", network.DefNumAttempts, "number of attempts for each request")
}

var (
	errNoToken = errors.New("token required via stdin or " + envToken + " environment variable")
	errChannel = errors.New("channel ID is required")
)

func runSlackfiles(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s\n", cmd.UsageLine)
		base.SetExitStatus(base.SInvalidParameters)
		return errChannel
	}
	token, err := readToken(os.Stdin, osext.IsTerminal(os.Stdin))
	if err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}
	if outputDir == "" && osext.IsTerminal(os.Stdout) {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("refusing to write a tar archive to the terminal, redirect the output or use -dir")
	}
	network.SetLogger(cfg.Log)

	cl := slack.New(token)
	st, err := run(ctx, cl, args[0], outputDir, os.Stdout, os.Stderr)
	if err != nil {
		if !osext.IsBrokenPipe(err) {
			base.SetExitStatus(base.SApplicationError)
		}
		return err
	}
	cfg.Log.InfoContext(ctx, "download complete", "downloaded", st.Downloaded, "existing", st.Existing, "failed", st.Failed)
	return nil
}

// readToken reads the token from r, unless it is a terminal, in which case
// the token is taken from the environment.
func readToken(r io.Reader, isTerminal bool) (string, error) {
	var token string
	if !isTerminal {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		token = strings.TrimSpace(string(data))
	}
	if token == "" {
		token = strings.TrimSpace(os.Getenv(envToken))
	}
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

func run(ctx context.Context, cl slackfiles.Client, channelID, dir string, stdout, stderr io.Writer) (slackfiles.Stats, error) {
	var (
		sink slackfiles.Sink
		rep  slackfiles.Reporter
	)
	if dir != "" {
		ds, err := slackfiles.NewDirSink(dir)
		if err != nil {
			return slackfiles.Stats{}, err
		}
		sink = ds
		rep = slackfiles.Printer{W: stdout, ErrW: stderr}
	} else {
		ts := slackfiles.NewTarSink(stdout)
		defer ts.Close()
		sink = ts
		rep = slackfiles.Printer{W: stderr, ErrW: stderr}
		if f, ok := stderr.(*os.File); ok && osext.IsTerminal(f) {
			rep = newBarReporter(stderr)
		}
	}

	dl := slackfiles.New(cl,
		slackfiles.WithLogger(cfg.Log),
		slackfiles.WithReporter(rep),
		slackfiles.WithRetries(retries),
	)
	st, err := dl.Download(ctx, channelID, sink)
	if closer, ok := rep.(io.Closer); ok {
		closer.Close()
	}
	if err != nil {
		return st, err
	}
	if c, ok := sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return st, err
		}
	}
	return st, nil
}

// barReporter displays a spinner with the number of downloaded files.
type barReporter struct {
	pb   *progressbar.ProgressBar
	errW io.Writer
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{
		pb: progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Downloading files"),
			progressbar.OptionSetWriter(w),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(8),
			progressbar.OptionShowCount(),
		),
		errW: w,
	}
}

func (r *barReporter) Downloading(fm slackfiles.FileMeta) {
	r.pb.Describe("Downloading " + fm.SafeName())
	_ = r.pb.Add(1)
}

func (r *barReporter) Failed(fm slackfiles.FileMeta, err error) {
	_ = r.pb.Clear()
	slackfiles.Printer{ErrW: r.errW}.Failed(fm, err)
}

func (r *barReporter) Close() error {
	return r.pb.Finish()
}
