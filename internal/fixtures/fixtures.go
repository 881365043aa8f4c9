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

// Package fixtures contains the test helpers shared by the packages.
package fixtures

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// MkTestFileName creates a test file at the path, and copies the content into
// it.  Missing parent directories are created.
func MkTestFileName(t *testing.T, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal("mkdir:", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal("write file:", err)
	}

	return path
}

// MkTestTree creates the files in the directory dir.  The keys of files are
// the slash-separated file names relative to dir, the values are the
// contents.  It returns dir.
func MkTestTree(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		MkTestFileName(t, filepath.Join(dir, filepath.FromSlash(name)), content)
	}
	return dir
}

// TestServer returns a test HTTP server that responds with the given code and
// response. The caller should close the server when done.
func TestServer(t *testing.T, code int, response []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		w.Write(response)
	}))
}
