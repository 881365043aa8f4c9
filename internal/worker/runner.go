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

// Package worker runs conversion tasks in isolation and in parallel.
package worker

import (
	"context"

	"github.com/rusq/docfilter/internal/task"
)

//go:generate mockgen -destination=mock_worker/mock_worker.go . Runner

// Runner converts a single task.  Run must return exactly one outcome and
// must not panic on conversion errors.  The task is considered abandoned
// once ctx is done.
type Runner interface {
	Run(ctx context.Context, t task.Task) task.Outcome
}

// RunnerFunc is an adapter to use ordinary functions as Runners.
type RunnerFunc func(ctx context.Context, t task.Task) task.Outcome

func (f RunnerFunc) Run(ctx context.Context, t task.Task) task.Outcome {
	return f(ctx, t)
}
