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

package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/rusq/docfilter/internal/task"
)

// ExitNoContent is the exit status of a converter process that found no
// convertible text in the file.
const ExitNoContent = 7

// maxStderr is the number of trailing bytes of the converter stderr kept
// for the failure reason.
const maxStderr = 8 << 10

// Process is the Runner that starts a new converter process for each task.
// The converter receives the file path as the last argument and writes the
// converted text to its standard output.  Each process runs in its own
// process group, which is killed when the task context is done.
type Process struct {
	name   string
	args   []string
	outDir string
	env    []string
	lg     *slog.Logger
}

// ProcessOption is the option for the Process runner.
type ProcessOption func(*Process)

// WithEnv adds environment variables in "KEY=value" form to the
// environment of each converter process.
func WithEnv(env ...string) ProcessOption {
	return func(p *Process) {
		p.env = append(p.env, env...)
	}
}

// WithProcessLogger sets the logger.
func WithProcessLogger(lg *slog.Logger) ProcessOption {
	return func(p *Process) {
		if lg != nil {
			p.lg = lg
		}
	}
}

// NewProcess returns the Process runner that runs the command name with
// args, storing the converted text in outDir.
func NewProcess(outDir string, name string, args []string, opts ...ProcessOption) *Process {
	p := &Process{
		name:   name,
		args:   slices.Clone(args),
		outDir: outDir,
		lg:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Self returns the Process runner that runs the "convert" subcommand of
// the current executable.
func Self(outDir string, opts ...ProcessOption) (*Process, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("unable to locate the executable: %w", err)
	}
	return NewProcess(outDir, exe, []string{"convert"}, opts...), nil
}

// Run runs the converter process for t and waits for it to finish or for
// ctx to be done, whichever comes first.
func (p *Process) Run(ctx context.Context, t task.Task) task.Outcome {
	out, f, err := createOutput(p.outDir)
	if err != nil {
		return task.Failed(t, err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(out)
	}

	var stderr tailBuffer
	cmd := exec.Command(p.name, append(slices.Clone(p.args), t.Path)...)
	cmd.Env = append(os.Environ(), p.env...)
	cmd.Stdin = nil
	cmd.Stdout = f
	cmd.Stderr = &stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		cleanup()
		return task.Failed(t, fmt.Errorf("unable to start converter: %w", err))
	}
	lg := p.lg.With("name", t.Name, "pid", cmd.Process.Pid)
	lg.DebugContext(ctx, "converter started")

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if err := killGroup(cmd.Process); err != nil {
			lg.DebugContext(ctx, "kill", "error", err)
		}
		<-done
		cleanup()
		return task.Failed(t, ctx.Err())
	case err = <-done:
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		os.Remove(out)
		return task.Failed(t, cerr)
	}

	if err != nil {
		os.Remove(out)
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return task.Failed(t, err)
		}
		lg.DebugContext(ctx, "converter exited", "status", ee.String())
		if ee.ExitCode() == ExitNoContent {
			return task.Skipped(t, task.ReasonNoContent)
		}
		if line := stderr.LastLine(); line != "" {
			return task.Failed(t, errors.New(line))
		}
		return task.Failed(t, ee)
	}
	return result(t, out)
}

// result returns Success if the file at out has non-blank content, otherwise
// it removes the file and returns Skipped.
func result(t task.Task, out string) task.Outcome {
	blank, err := isBlank(out)
	if err != nil {
		os.Remove(out)
		return task.Failed(t, err)
	}
	if blank {
		os.Remove(out)
		return task.Skipped(t, task.ReasonNoContent)
	}
	return task.Success(t, out)
}

// createOutput creates a uniquely named file for the converted text in dir.
func createOutput(dir string) (string, *os.File, error) {
	name := filepath.Join(dir, uuid.NewString()+".md")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", nil, err
	}
	return name, f, nil
}

// isBlank reports whether the file contains only whitespace.
func isBlank(name string) (bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return false, err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	for {
		r, _, err := br.ReadRune()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if !unicode.IsSpace(r) {
			return false, nil
		}
	}
}

func isBlankString(s string) bool {
	return strings.TrimSpace(s) == ""
}

// tailBuffer keeps the last maxStderr bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - maxStderr; over > 0 {
		b.buf = b.buf[over:]
	}
	return n, nil
}

// LastLine returns the last non-blank line.
func (b *tailBuffer) LastLine() string {
	lines := bytes.Split(b.buf, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(string(lines[i])); l != "" {
			return l
		}
	}
	return ""
}
