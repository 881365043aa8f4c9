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
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rusq/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"github.com/rusq/docfilter/internal/slackfiles/mock_slackfiles"
	"github.com/rusq/docfilter/internal/testutil"
)

func TestFileMeta_SafeName(t *testing.T) {
	tests := []struct {
		name string
		fm   FileMeta
		want string
	}{
		{"plain", FileMeta{Name: "a.pdf", Timestamp: "1700000000.000100"}, "1700000000.000100_a.pdf"},
		{"slashes", FileMeta{Name: "x/y/../z.txt", Timestamp: "1"}, "1_x_y_.._z.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fm.SafeName())
		})
	}
}

func TestParseTS(t *testing.T) {
	tests := []struct {
		name    string
		ts      string
		want    time.Time
		wantErr bool
	}{
		{"valid", "1638494510.037400", time.Unix(1638494510, 37400000), false},
		{"no fraction", "1638494510", time.Unix(1638494510, 0), false},
		{"short fraction", "1638494510.5", time.Unix(1638494510, 500000000), false},
		{"long fraction", "1638494510.1234567", time.Unix(1638494510, 123456000), false},
		{"zero", "0", time.Unix(0, 0), false},
		{"garbage", "x", time.Time{}, true},
		{"garbage fraction", "1.x", time.Time{}, true},
		{"empty", "", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTS(tt.ts)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotATimestamp)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func msg(ts string, files ...slack.File) slack.Message {
	return slack.Message{Msg: slack.Msg{Timestamp: ts, Files: files}}
}

func TestExtract(t *testing.T) {
	m := msg("1700000000.000100",
		slack.File{Name: "a.pdf", URLPrivateDownload: "https://files/a"},
		slack.File{Name: "deleted.pdf", Mode: "tombstone", URLPrivateDownload: "https://files/d"},
		slack.File{Name: "nourl.pdf"},
		slack.File{URLPrivateDownload: "https://files/u"},
	)
	got := Extract(m)
	assert.Equal(t, []FileMeta{
		{Name: "a.pdf", URL: "https://files/a", Timestamp: "1700000000.000100"},
		{Name: "untitled", URL: "https://files/u", Timestamp: "1700000000.000100"},
	}, got)
	assert.Empty(t, Extract(msg("1")))
	assert.Equal(t, "0", Extract(msg("", slack.File{Name: "x", URLPrivateDownload: "u"}))[0].Timestamp)
}

func page(next string, msgs ...slack.Message) *slack.GetConversationHistoryResponse {
	resp := &slack.GetConversationHistoryResponse{
		SlackResponse: slack.SlackResponse{Ok: true},
		HasMore:       next != "",
		Messages:      msgs,
	}
	resp.ResponseMetaData.NextCursor = next
	return resp
}

func cursor(c string) gomock.Matcher {
	return gomock.Cond(func(p *slack.GetConversationHistoryParameters) bool {
		return p.Cursor == c && p.ChannelID == "C1" && p.Limit == historyLimit
	})
}

func respond(body string) func(context.Context, string, io.Writer) error {
	return func(_ context.Context, _ string, w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	}
}

func testDownloader(cl Client, rep Reporter) *Downloader {
	return New(cl,
		WithLimits(rate.NewLimiter(rate.Inf, 1), rate.NewLimiter(rate.Inf, 1)),
		WithRetries(1),
		WithLogger(slog.New(slog.DiscardHandler)),
		WithReporter(rep),
	)
}

type recorder struct {
	downloading []string
	failed      []string
}

func (r *recorder) Downloading(fm FileMeta)       { r.downloading = append(r.downloading, fm.SafeName()) }
func (r *recorder) Failed(fm FileMeta, err error) { r.failed = append(r.failed, fm.SafeName()) }

func TestDownloader_Download(t *testing.T) {
	t.Run("paginates into the tar stream", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cl := mock_slackfiles.NewMockClient(ctrl)
		gomock.InOrder(
			cl.EXPECT().GetConversationHistoryContext(gomock.Any(), cursor("")).
				Return(page("next", msg("1700000001.000000", slack.File{Name: "b.txt", URLPrivateDownload: "https://f/b"})), nil),
			cl.EXPECT().GetConversationHistoryContext(gomock.Any(), cursor("next")).
				Return(page("", msg("1700000000.000000", slack.File{Name: "a.pdf", URLPrivateDownload: "https://f/a"}), msg("1699999999.000000")), nil),
		)
		cl.EXPECT().GetFileContext(gomock.Any(), "https://f/b", gomock.Any()).DoAndReturn(respond("bee"))
		cl.EXPECT().GetFileContext(gomock.Any(), "https://f/a", gomock.Any()).DoAndReturn(respond("ay"))

		var buf bytes.Buffer
		sink := NewTarSink(&buf)
		var rec recorder
		st, err := testDownloader(cl, &rec).Download(t.Context(), "C1", sink)
		require.NoError(t, err)
		require.NoError(t, sink.Close())
		assert.Equal(t, Stats{Downloaded: 2}, st)
		assert.Equal(t, []string{"1700000001.000000_b.txt", "1700000000.000000_a.pdf"}, rec.downloading)

		entries := testutil.Untar(t, &buf)
		require.Len(t, entries, 2)
		assert.Equal(t, "1700000001.000000_b.txt", entries[0].Name)
		assert.Equal(t, "bee", entries[0].Body)
		assert.Equal(t, int64(1700000000), entries[1].ModTime.Unix())
	})
	t.Run("download failure is reported", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cl := mock_slackfiles.NewMockClient(ctrl)
		cl.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).
			Return(page("", msg("1", slack.File{Name: "gone", URLPrivateDownload: "https://f/gone"}, slack.File{Name: "ok", URLPrivateDownload: "https://f/ok"})), nil)
		cl.EXPECT().GetFileContext(gomock.Any(), "https://f/gone", gomock.Any()).Return(slack.StatusCodeError{Code: 404, Status: "Not Found"})
		cl.EXPECT().GetFileContext(gomock.Any(), "https://f/ok", gomock.Any()).DoAndReturn(respond("ok"))

		var rec recorder
		sink := NewTarSink(io.Discard)
		st, err := testDownloader(cl, &rec).Download(t.Context(), "C1", sink)
		require.NoError(t, err)
		assert.Equal(t, Stats{Downloaded: 1, Failed: 1}, st)
		assert.Equal(t, []string{"1_gone"}, rec.failed)
	})
	t.Run("existing files are skipped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cl := mock_slackfiles.NewMockClient(ctrl)
		sink := mock_slackfiles.NewMockSink(ctrl)
		cl.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).
			Return(page("", msg("1", slack.File{Name: "a", URLPrivateDownload: "https://f/a"}, slack.File{Name: "b", URLPrivateDownload: "https://f/b"})), nil)
		sink.EXPECT().Exists("1_a").Return(true)
		sink.EXPECT().Exists("1_b").Return(false)
		cl.EXPECT().GetFileContext(gomock.Any(), "https://f/b", gomock.Any()).DoAndReturn(respond("bbb"))
		sink.EXPECT().Store("1_b", time.Unix(1, 0), int64(3), gomock.Any()).DoAndReturn(func(_ string, _ time.Time, _ int64, r io.Reader) error {
			data, err := io.ReadAll(r)
			assert.Equal(t, "bbb", string(data))
			return err
		})

		st, err := testDownloader(cl, nil).Download(t.Context(), "C1", sink)
		require.NoError(t, err)
		assert.Equal(t, Stats{Downloaded: 1, Existing: 1}, st)
	})
	t.Run("api error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cl := mock_slackfiles.NewMockClient(ctrl)
		cl.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).Return(nil, slack.SlackErrorResponse{Err: "channel_not_found"})

		_, err := testDownloader(cl, nil).Download(t.Context(), "C1", NewTarSink(io.Discard))
		assert.ErrorIs(t, err, ErrAPI)
	})
	t.Run("response not ok", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cl := mock_slackfiles.NewMockClient(ctrl)
		cl.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).
			Return(&slack.GetConversationHistoryResponse{SlackResponse: slack.SlackResponse{Ok: false, Error: "not_in_channel"}}, nil)

		_, err := testDownloader(cl, nil).Download(t.Context(), "C1", NewTarSink(io.Discard))
		assert.ErrorIs(t, err, ErrAPI)
		assert.ErrorContains(t, err, "not_in_channel")
	})
	t.Run("cancelled during download", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cl := mock_slackfiles.NewMockClient(ctrl)
		ctx, cancel := context.WithCancel(t.Context())
		cl.EXPECT().GetConversationHistoryContext(gomock.Any(), gomock.Any()).
			Return(page("", msg("1", slack.File{Name: "a", URLPrivateDownload: "https://f/a"})), nil)
		cl.EXPECT().GetFileContext(gomock.Any(), "https://f/a", gomock.Any()).DoAndReturn(func(context.Context, string, io.Writer) error {
			cancel()
			return context.Canceled
		})

		_, err := testDownloader(cl, nil).Download(ctx, "C1", NewTarSink(io.Discard))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := Printer{W: &out, ErrW: &errOut}
	fm := FileMeta{Name: "a.pdf", Timestamp: "1"}
	p.Downloading(fm)
	p.Failed(fm, slack.StatusCodeError{Code: 403, Status: "Forbidden"})
	p.Failed(fm, errors.New("connection reset"))
	assert.Equal(t, "Downloading: 1_a.pdf\n", out.String())
	assert.Equal(t, "Failed: 403\nFailed: 1_a.pdf: connection reset\n", errOut.String())
}
