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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rusq/docfilter/internal/task"
)

// ConvertFunc converts the file at path to text.  Blank text means that the
// file has no convertible content.
type ConvertFunc func(ctx context.Context, path string) (string, error)

// Func is the Runner that calls the conversion function in a goroutine of
// the current process.  If ctx is done before the function returns, the
// goroutine is abandoned and the task fails.  It provides no memory or
// crash isolation, and is meant for debugging and tests.
type Func struct {
	fn     ConvertFunc
	outDir string
}

// NewFunc returns the Func runner, the converted text is stored in outDir.
func NewFunc(outDir string, fn ConvertFunc) *Func {
	return &Func{fn: fn, outDir: outDir}
}

type funcResult struct {
	text string
	err  error
}

func (r *Func) Run(ctx context.Context, t task.Task) task.Outcome {
	resC := make(chan funcResult, 1) // buffered: abandoned goroutine must not block
	go func() {
		defer func() {
			if p := recover(); p != nil {
				resC <- funcResult{err: fmt.Errorf("converter panic: %v", p)}
			}
		}()
		text, err := r.fn(ctx, t.Path)
		resC <- funcResult{text: text, err: err}
	}()

	var res funcResult
	select {
	case <-ctx.Done():
		return task.Failed(t, ctx.Err())
	case res = <-resC:
	}
	if res.err != nil {
		return task.Failed(t, res.err)
	}
	if isBlankString(res.text) {
		return task.Skipped(t, task.ReasonNoContent)
	}
	out, f, err := createOutput(r.outDir)
	if err != nil {
		return task.Failed(t, err)
	}
	_, err = io.WriteString(f, res.text)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return task.Failed(t, err)
	}
	return task.Success(t, out)
}
