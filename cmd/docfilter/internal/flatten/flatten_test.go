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

package flatten

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docfilter/internal/fixtures"
	"github.com/rusq/docfilter/internal/flatten"
)

func Test_run(t *testing.T) {
	src := fixtures.MkTestTree(t, t.TempDir(), map[string]string{
		"docs/v1/api.md": "# API",
		"README.md":      "readme",
	})
	files, err := flatten.Collect(src)
	require.NoError(t, err)

	t.Run("creates the destination directory", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "a", "b")
		var out, errOut bytes.Buffer
		n, err := run(t.Context(), &out, &errOut, files, dst, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "cp 'README.md' -> 'README.md'\ncp 'docs/v1/api.md' -> 'docs__v1__api.md'\n", out.String())
		assert.Empty(t, errOut.String())
		data, err := os.ReadFile(filepath.Join(dst, "docs__v1__api.md"))
		require.NoError(t, err)
		assert.Equal(t, "# API", string(data))
	})
	t.Run("zip", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "out.ZIP")
		var out bytes.Buffer
		n, err := run(t.Context(), &out, &out, files, dst, false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		fi, err := os.Stat(dst)
		require.NoError(t, err)
		assert.True(t, fi.Mode().IsRegular())
	})
	t.Run("progress", func(t *testing.T) {
		var out, errOut bytes.Buffer
		n, err := run(t.Context(), &out, &errOut, files, t.TempDir(), true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func Test_isZip(t *testing.T) {
	assert.True(t, isZip("a.zip"))
	assert.True(t, isZip("dir/a.Zip"))
	assert.False(t, isZip("a.zip.d"))
	assert.False(t, isZip("zip"))
}

func Test_runFlatten(t *testing.T) {
	dir := t.TempDir()
	t.Run("same source and destination", func(t *testing.T) {
		err := runFlatten(context.Background(), CmdFlatten, []string{dir, filepath.Join(dir, ".")})
		assert.ErrorIs(t, err, errSame)
	})
	t.Run("wrong number of arguments", func(t *testing.T) {
		err := runFlatten(context.Background(), CmdFlatten, []string{dir})
		assert.ErrorIs(t, err, errArgs)
	})
}
