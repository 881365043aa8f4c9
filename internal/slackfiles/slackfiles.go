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

// Package slackfiles downloads the files attached to the messages of a Slack
// channel.
package slackfiles

//go:generate mockgen -destination=mock_slackfiles/mock_slackfiles.go . Client,Sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"runtime/trace"
	"strings"
	"time"

	"github.com/rusq/slack"
	"golang.org/x/time/rate"

	"github.com/rusq/docfilter/internal/network"
)

// historyLimit is the number of messages requested per page.
const historyLimit = 100

// Client is the subset of the Slack client used by the Downloader.
type Client interface {
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetFileContext(ctx context.Context, downloadURL string, w io.Writer) error
}

// Sink stores the downloaded files.
type Sink interface {
	// Exists reports whether the file name is already stored.
	Exists(name string) bool
	// Store stores size bytes read from r under the name.
	Store(name string, modTime time.Time, size int64, r io.Reader) error
}

// Reporter receives the download progress.
type Reporter interface {
	Downloading(fm FileMeta)
	Failed(fm FileMeta, err error)
}

// FileMeta is the downloadable file attached to a message.
type FileMeta struct {
	Name string
	URL  string
	// Timestamp is the timestamp of the message, i.e. "1700000000.123456".
	Timestamp string
}

// SafeName returns the name under which the file is stored:
// "<timestamp>_<name>" with the slashes replaced by underscores.
func (fm FileMeta) SafeName() string {
	return strings.ReplaceAll(fm.Timestamp+"_"+fm.Name, "/", "_")
}

// ModTime returns the time of the message, or zero time, if the timestamp
// is not valid.
func (fm FileMeta) ModTime() time.Time {
	t, err := ParseTS(fm.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Extract returns the downloadable files of the message.  Deleted files and
// files without the download URL are skipped.
func Extract(msg slack.Message) []FileMeta {
	ts := msg.Timestamp
	if ts == "" {
		ts = "0"
	}
	var files []FileMeta
	for _, f := range msg.Files {
		if f.Mode == "tombstone" || f.URLPrivateDownload == "" {
			continue
		}
		name := f.Name
		if name == "" {
			name = "untitled"
		}
		files = append(files, FileMeta{Name: name, URL: f.URLPrivateDownload, Timestamp: ts})
	}
	return files
}

// Stats is the result of the download.
type Stats struct {
	Downloaded int
	Existing   int
	Failed     int
}

// Downloader downloads the channel files.
type Downloader struct {
	cl      Client
	histLim *rate.Limiter
	fileLim *rate.Limiter
	retries int
	rep     Reporter
	lg      *slog.Logger
	tempDir string
}

// Option configures the Downloader.
type Option func(*Downloader)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(d *Downloader) {
		if r != nil {
			d.rep = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(d *Downloader) {
		if lg != nil {
			d.lg = lg
		}
	}
}

// WithLimits sets the limiters of the history and file download requests.
func WithLimits(history, files *rate.Limiter) Option {
	return func(d *Downloader) {
		if history != nil {
			d.histLim = history
		}
		if files != nil {
			d.fileLim = files
		}
	}
}

// WithRetries sets the number of attempts for each request.
func WithRetries(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.retries = n
		}
	}
}

// WithTempDir sets the directory of the download buffers.
func WithTempDir(dir string) Option {
	return func(d *Downloader) {
		d.tempDir = dir
	}
}

// New returns a new Downloader.
func New(cl Client, opts ...Option) *Downloader {
	if cl == nil {
		panic("programming error:  client is nil")
	}
	d := &Downloader{
		cl:      cl,
		histLim: network.NewLimiter(network.Tier3, 1, 0),
		fileLim: network.NewLimiter(network.NoTier, 3, 0),
		retries: network.DefNumAttempts,
		rep:     nopReporter{},
		lg:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ErrAPI is returned when the Slack API call fails.
var ErrAPI = errors.New("API Error")

// Messages iterates over the channel history, newest first.
func (d *Downloader) Messages(ctx context.Context, channelID string) iter.Seq2[slack.Message, error] {
	return func(yield func(slack.Message, error) bool) {
		var cursor string
		for {
			params := &slack.GetConversationHistoryParameters{
				ChannelID: channelID,
				Cursor:    cursor,
				Limit:     historyLimit,
			}
			var resp *slack.GetConversationHistoryResponse
			if err := network.WithRetry(ctx, d.histLim, d.retries, func() error {
				var err error
				trace.WithRegion(ctx, "GetConversationHistoryContext", func() {
					resp, err = d.cl.GetConversationHistoryContext(ctx, params)
				})
				return err
			}); err != nil {
				yield(slack.Message{}, fmt.Errorf("%w: %w", ErrAPI, err))
				return
			}
			if !resp.Ok {
				yield(slack.Message{}, fmt.Errorf("%w: %s", ErrAPI, resp.Error))
				return
			}
			for _, m := range resp.Messages {
				if !yield(m, nil) {
					return
				}
			}
			if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
				return
			}
			cursor = resp.ResponseMetaData.NextCursor
		}
	}
}

// Download downloads all files of the channel to the sink.  Files that
// already exist in the sink are skipped.  Download failures are reported
// and do not stop the download, Slack API errors do.
func (d *Downloader) Download(ctx context.Context, channelID string, sink Sink) (Stats, error) {
	ctx, task := trace.NewTask(ctx, "Download")
	defer task.End()

	var st Stats
	for msg, err := range d.Messages(ctx, channelID) {
		if err != nil {
			return st, err
		}
		for _, fm := range Extract(msg) {
			if sink.Exists(fm.SafeName()) {
				d.lg.DebugContext(ctx, "file exists, skipping", "name", fm.SafeName())
				st.Existing++
				continue
			}
			d.rep.Downloading(fm)
			if err := d.save(ctx, fm, sink); err != nil {
				if ctx.Err() != nil {
					return st, context.Cause(ctx)
				}
				d.rep.Failed(fm, err)
				st.Failed++
				continue
			}
			st.Downloaded++
		}
	}
	return st, nil
}

// save downloads the file to a temporary file, and then stores it to the
// sink, so that the sink receives the complete file with a known size.
func (d *Downloader) save(ctx context.Context, fm FileMeta, sink Sink) error {
	tf, err := os.CreateTemp(d.tempDir, "slackfile-*")
	if err != nil {
		return err
	}
	defer func() {
		tf.Close()
		os.Remove(tf.Name())
	}()

	if err := network.WithRetry(ctx, d.fileLim, d.retries, func() error {
		region := trace.StartRegion(ctx, "GetFile")
		defer region.End()
		if _, err := tf.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if err := tf.Truncate(0); err != nil {
			return err
		}
		return d.cl.GetFileContext(ctx, fm.URL, tf)
	}); err != nil {
		return err
	}
	size, err := tf.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := tf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return sink.Store(fm.SafeName(), fm.ModTime(), size, tf)
}

type nopReporter struct{}

func (nopReporter) Downloading(FileMeta)    {}
func (nopReporter) Failed(FileMeta, error) {}

// Printer is the Reporter that prints the progress to W, and the failures
// to ErrW.
type Printer struct {
	W    io.Writer
	ErrW io.Writer
}

func (p Printer) Downloading(fm FileMeta) {
	fmt.Fprintf(p.W, "Downloading: %s\n", fm.SafeName())
}

func (p Printer) Failed(fm FileMeta, err error) {
	var sce slack.StatusCodeError
	if errors.As(err, &sce) {
		fmt.Fprintf(p.ErrW, "Failed: %d\n", sce.Code)
		return
	}
	fmt.Fprintf(p.ErrW, "Failed: %s: %v\n", fm.SafeName(), err)
}
