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

package osext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rusq/fsadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFile(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("contents"), 0o644))

	fsa := fsadapter.NewDirectory(dstDir)
	n, err := CopyFile(src, fsa, "sub/dst.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	got, err := os.ReadFile(filepath.Join(dstDir, "sub", "dst.txt"))
	require.NoError(t, err)
	assert.Equal(t, "contents", string(got))

	_, err = CopyFile(filepath.Join(srcDir, "missing"), fsa, "x")
	assert.Error(t, err)
}
