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
	"log/slog"
	"runtime"
	"runtime/trace"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rusq/docfilter/internal/task"
)

const (
	// MaxWorkers is the upper limit of the concurrent conversions.
	MaxWorkers = 12
	// DefaultTimeout is the conversion timeout of a single task.
	DefaultTimeout = 180 * time.Second
	// defGrace is the time given to the runner to return after the timeout,
	// before the outcome is synthesised.
	defGrace = 5 * time.Second
)

// Bound returns the default number of concurrent conversions:
// the number of CPUs, but no more than MaxWorkers.
func Bound() int {
	return max(1, min(runtime.NumCPU(), MaxWorkers))
}

type schedOptions struct {
	workers int
	timeout time.Duration
	grace   time.Duration
	lg      *slog.Logger
}

// ScheduleOption is the option for Schedule.
type ScheduleOption func(*schedOptions)

// WithWorkers sets the number of concurrent conversions.  Values outside
// of 1..MaxWorkers are ignored.
func WithWorkers(n int) ScheduleOption {
	return func(o *schedOptions) {
		if 0 < n && n <= MaxWorkers {
			o.workers = n
		}
	}
}

// WithTimeout sets the conversion timeout.
func WithTimeout(d time.Duration) ScheduleOption {
	return func(o *schedOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithGrace sets the time the runner is given to return after the timeout.
func WithGrace(d time.Duration) ScheduleOption {
	return func(o *schedOptions) {
		if d >= 0 {
			o.grace = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) ScheduleOption {
	return func(o *schedOptions) {
		if lg != nil {
			o.lg = lg
		}
	}
}

// Schedule starts the conversion of tasks using the runner r, with at most
// Bound() (or WithWorkers) conversions running at the same time.  Outcomes
// are sent on the returned channel in the order of completion.  Exactly one
// outcome is sent for every task, after which the channel is closed.
//
// The tasks that have not started when ctx is cancelled fail with the
// context error.
func Schedule(ctx context.Context, tasks []task.Task, r Runner, opts ...ScheduleOption) <-chan task.Outcome {
	o := schedOptions{
		workers: Bound(),
		timeout: DefaultTimeout,
		grace:   defGrace,
		lg:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	// buffered for all outcomes, so that workers never wait on the consumer.
	outC := make(chan task.Outcome, len(tasks))
	go func() {
		defer close(outC)
		ctx, tsk := trace.NewTask(ctx, "Schedule")
		defer tsk.End()

		o.lg.DebugContext(ctx, "scheduling", "tasks", len(tasks), "workers", o.workers, "timeout", o.timeout)
		var (
			eg   errgroup.Group
			done atomic.Int64
		)
		eg.SetLimit(o.workers)
		for _, t := range tasks {
			eg.Go(func() error {
				res := o.supervise(ctx, r, t)
				outC <- res
				o.lg.DebugContext(ctx, "task finished",
					"progress", fmt.Sprintf("[%d/%d]", done.Add(1), len(tasks)),
					"name", t.Name,
					"status", res.Status)
				return nil
			})
		}
		_ = eg.Wait() // workers never return errors.
	}()
	return outC
}

// supervise runs the task with the timeout and guarantees that exactly one
// outcome for t is returned, even if the runner panics or never returns.
func (o *schedOptions) supervise(ctx context.Context, r Runner, t task.Task) task.Outcome {
	if err := ctx.Err(); err != nil {
		return task.Failed(t, err)
	}
	defer trace.StartRegion(ctx, "supervise").End()
	trace.Logf(ctx, "task", "%s", t.Name)

	tctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resC := make(chan task.Outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				resC <- task.Failed(t, fmt.Errorf("panic: %v", p))
			}
		}()
		resC <- r.Run(tctx, t)
	}()

	hard := time.NewTimer(o.timeout + o.grace)
	defer hard.Stop()

	var res task.Outcome
	select {
	case res = <-resC:
	case <-hard.C:
		o.lg.WarnContext(ctx, "runner did not stop after the timeout, abandoned", "name", t.Name)
		return o.expired(ctx, t)
	case <-ctx.Done():
		// the runner must observe tctx, but do not rely on it.
		grace := time.NewTimer(o.grace)
		defer grace.Stop()
		select {
		case res = <-resC:
		case <-grace.C:
			return task.Failed(t, ctx.Err())
		}
	}

	res.Task = t
	switch {
	case res.Status == task.StatusSuccess:
	case tctx.Err() != nil:
		return o.expired(ctx, t)
	case res.Status == 0:
		return task.Failed(t, fmt.Errorf("runner returned no status"))
	}
	return res
}

// expired returns the outcome of a task whose context is done.
func (o *schedOptions) expired(ctx context.Context, t task.Task) task.Outcome {
	if err := ctx.Err(); err != nil {
		return task.Failed(t, err)
	}
	return task.TimedOut(t, o.timeout)
}
