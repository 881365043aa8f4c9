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
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("plain <b>text</b>"))
	})
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("notes"))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Page</title></head><body><article><p>Hello, world.  This is the page content.</p></article></body></html>`))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_Text(t *testing.T) {
	srv := testServer(t)
	f := New(srv.Client(), slog.New(slog.DiscardHandler))
	tests := []struct {
		name    string
		path    string
		want    string
		wantErr string
	}{
		{"plain text", "/plain", "plain <b>text</b>", ""},
		{"txt extension", "/notes.txt", "notes", ""},
		{"empty page", "/empty", NoContent, ""},
		{"not found", "/missing", "", "Status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Text(t.Context(), srv.URL+tt.path)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	t.Run("html", func(t *testing.T) {
		got, err := f.Text(t.Context(), srv.URL+"/page")
		require.NoError(t, err)
		assert.Contains(t, got, "This is the page content.")
	})
}

func TestFetcher_Copy(t *testing.T) {
	srv := testServer(t)
	f := New(srv.Client(), slog.New(slog.DiscardHandler))

	in := strings.Join([]string{srv.URL + "/plain", "", "  ", srv.URL + "/missing", "http://%zz"}, "\n")
	var out bytes.Buffer
	n, err := f.Copy(t.Context(), &out, strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "\n---- "+srv.URL+"/plain ----\nplain <b>text</b>\n"), s)
	assert.Contains(t, s, "\n---- "+srv.URL+"/missing ----\nError: Status 404\n")
	assert.Contains(t, s, "\n---- http://%zz ----\nError: ")
}

func Test_isPlainText(t *testing.T) {
	assert.True(t, isPlainText("text/plain", "https://x/a"))
	assert.True(t, isPlainText("text/html", "https://x/robots.txt?v=1"))
	assert.False(t, isPlainText("text/html", "https://x/a.txt.html"))
	assert.False(t, isPlainText("", "https://x/"))
}
