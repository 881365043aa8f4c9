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

package markdown

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/archive"
	"github.com/rusq/docfilter/internal/fixtures"
	"github.com/rusq/docfilter/internal/llm"
	"github.com/rusq/docfilter/internal/osext"
	"github.com/rusq/docfilter/internal/task"
	"github.com/rusq/docfilter/internal/testutil"
	"github.com/rusq/docfilter/internal/worker"
)

// noCredentials makes sure that no language model credentials are
// picked up from the environment running the tests.
func noCredentials(t *testing.T) {
	t.Helper()
	for _, env := range []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(env, "")
	}
	t.Setenv("NETRC", filepath.Join(t.TempDir(), "netrc"))
}

func TestRunnerFactory(t *testing.T) {
	noCredentials(t)
	lg := slog.New(slog.DiscardHandler)

	t.Run("external converter", func(t *testing.T) {
		if _, err := exec.LookPath("cat"); err != nil {
			t.Skip("cat is not available")
		}
		fc := cfg.DefFilter()
		fc.Converter = "cat -u"
		newRunner, err := runnerFactory(fc, true, lg)
		require.NoError(t, err)

		dir := t.TempDir()
		r, err := newRunner(dir)
		require.NoError(t, err)
		assert.IsType(t, &worker.Process{}, r)

		src := filepath.Join(t.TempDir(), "a.txt")
		fixtures.MkTestFileName(t, src, "Hello")
		o := r.Run(t.Context(), task.Task{Path: src, Name: "a.txt", ModTime: time.Now()})
		require.Equal(t, task.StatusSuccess, o.Status, o.Reason)
		data, err := os.ReadFile(o.ContentPath)
		require.NoError(t, err)
		assert.Equal(t, "Hello", string(data))
	})
	t.Run("in-process", func(t *testing.T) {
		newRunner, err := runnerFactory(cfg.DefFilter(), false, lg)
		require.NoError(t, err)
		r, err := newRunner(t.TempDir())
		require.NoError(t, err)
		assert.IsType(t, &worker.Func{}, r)

		src := filepath.Join(t.TempDir(), "a.txt")
		fixtures.MkTestFileName(t, src, "Hello\n")
		o := r.Run(t.Context(), task.Task{Path: src, Name: "a.txt"})
		require.Equal(t, task.StatusSuccess, o.Status, o.Reason)
	})
	t.Run("isolated", func(t *testing.T) {
		newRunner, err := runnerFactory(cfg.DefFilter(), true, lg)
		require.NoError(t, err)
		r, err := newRunner(t.TempDir())
		require.NoError(t, err)
		assert.IsType(t, &worker.Process{}, r)
	})
	t.Run("blank converter command", func(t *testing.T) {
		fc := cfg.DefFilter()
		fc.Converter = "  "
		_, err := runnerFactory(fc, true, lg)
		assert.Error(t, err)
	})
}

// setupCommand sets the package configuration for running the command
// in-process, with a non-terminal standard input.
func setupCommand(t *testing.T) {
	t.Helper()
	noCredentials(t)
	t.Setenv(llm.EnvProvider, string(llm.None))
	var (
		oldFilter  = cfg.Filter
		oldLog     = cfg.Log
		oldIsolate = cfg.Isolate
		oldConfig  = cfg.ConfigFile
		oldTerm    = isTerminal
	)
	cfg.Filter = cfg.DefFilter()
	cfg.Log = slog.New(slog.DiscardHandler)
	cfg.Isolate = false
	cfg.ConfigFile = ""
	isTerminal = func(*os.File) bool { return false }
	t.Cleanup(func() {
		cfg.Filter, cfg.Log, cfg.Isolate, cfg.ConfigFile = oldFilter, oldLog, oldIsolate, oldConfig
		isTerminal = oldTerm
	})
}

// setStdio replaces the standard input with a file holding in, and the
// standard output with out.
func setStdio(t *testing.T, in []byte, out *os.File) {
	t.Helper()
	name := fixtures.MkTestFileName(t, filepath.Join(t.TempDir(), "in.tar"), string(in))
	f, err := os.Open(name)
	require.NoError(t, err)
	oldIn, oldOut := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = f, out
	t.Cleanup(func() {
		os.Stdin, os.Stdout = oldIn, oldOut
		f.Close()
	})
}

func outputFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "out.tar"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// exit status only grows, so the cases run in the order of increasing
// status.
func TestRunMarkdown(t *testing.T) {
	setupCommand(t)
	input := testutil.Tar(t,
		testutil.TarEntry{Name: "docs/a.txt", Body: "Hello\n"},
		testutil.TarEntry{Name: "clip.mp4", Body: "not really a video"},
	)

	t.Run("closed output is a clean exit", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("pipe semantics differ on windows")
		}
		r, w, err := os.Pipe()
		require.NoError(t, err)
		require.NoError(t, r.Close())
		t.Cleanup(func() { w.Close() })
		setStdio(t, input, w)

		err = runMarkdown(t.Context(), CmdMarkdown, nil)
		require.Error(t, err)
		assert.True(t, osext.IsBrokenPipe(err), "got: %v", err)
		assert.Equal(t, base.SNoError, base.GetExitStatus())
	})
	t.Run("converts", func(t *testing.T) {
		out := outputFile(t)
		setStdio(t, input, out)

		require.NoError(t, runMarkdown(t.Context(), CmdMarkdown, nil))
		_, err := out.Seek(0, io.SeekStart)
		require.NoError(t, err)
		got := testutil.Untar(t, out)
		require.Len(t, got, 1)
		assert.Equal(t, "docs/a.md", got[0].Name)
		assert.Equal(t, "Hello", got[0].Body)
		assert.Equal(t, base.SNoError, base.GetExitStatus())
	})
	t.Run("empty input", func(t *testing.T) {
		out := outputFile(t)
		setStdio(t, nil, out)

		require.NoError(t, runMarkdown(t.Context(), CmdMarkdown, nil))
		_, err := out.Seek(0, io.SeekStart)
		require.NoError(t, err)
		assert.Empty(t, testutil.Untar(t, out))
		assert.Equal(t, base.SNoError, base.GetExitStatus())
	})
	t.Run("arguments", func(t *testing.T) {
		err := runMarkdown(t.Context(), CmdMarkdown, []string{"in.tar"})
		assert.Error(t, err)
		assert.Equal(t, base.SInvalidParameters, base.GetExitStatus())
	})
	t.Run("terminal input", func(t *testing.T) {
		isTerminal = func(*os.File) bool { return true }
		t.Cleanup(func() { isTerminal = func(*os.File) bool { return false } })
		setStdio(t, input, outputFile(t))

		err := runMarkdown(t.Context(), CmdMarkdown, nil)
		assert.ErrorIs(t, err, errTerminal)
		assert.Equal(t, base.SInvalidParameters, base.GetExitStatus())
	})
	t.Run("not a tar archive", func(t *testing.T) {
		setStdio(t, []byte(strings.Repeat("this is not a tar archive\n", 64)), outputFile(t))

		err := runMarkdown(t.Context(), CmdMarkdown, nil)
		assert.ErrorIs(t, err, archive.ErrNotArchive)
		assert.Equal(t, base.SApplicationError, base.GetExitStatus())
	})
	t.Run("interrupted", func(t *testing.T) {
		out := outputFile(t)
		setStdio(t, input, out)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := runMarkdown(ctx, CmdMarkdown, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotEqual(t, base.SNoError, base.GetExitStatus())
		fi, err := out.Stat()
		require.NoError(t, err)
		assert.Zero(t, fi.Size(), "no output on interrupt")
	})
}
