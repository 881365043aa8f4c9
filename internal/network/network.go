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

// Package network provides the rate limited retries of the Slack API and
// file download calls.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/trace"
	"sync"
	"time"

	"github.com/rusq/slack"
	"golang.org/x/time/rate"
)

// DefNumAttempts is the default number of attempts.
const DefNumAttempts = 3

var (
	mu sync.RWMutex
	// maxAllowedWaitTime is the maximum time to wait for a transient error.
	maxAllowedWaitTime = 5 * time.Minute
	lg                 = slog.Default()
	// waitFn returns the time to wait before retrying a server error on the
	// given attempt, netWaitFn does the same for the network errors.
	waitFn    = cubicWait
	netWaitFn = expWait
)

// ErrRetryFailed is returned if the callback did not succeed within the
// allowed number of attempts.
var ErrRetryFailed = errors.New("callback was unable to complete without errors within the allowed number of retries")

// WithRetry calls fn, waiting for the limiter before each attempt.  If fn
// returns slack.RateLimitedError, it sleeps for the requested time, on
// server errors and transient network errors it backs off, and then calls
// fn again, up to maxAttempts times.  Other errors are returned immediately.
func WithRetry(ctx context.Context, lim *rate.Limiter, maxAttempts int, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefNumAttempts
	}
	for attempt := range maxAttempts {
		var err error
		trace.WithRegion(ctx, "WithRetry.wait", func() {
			err = lim.Wait(ctx)
		})
		if err != nil {
			return err
		}

		cbErr := fn()
		if cbErr == nil {
			return nil
		}
		tracelogf(ctx, "error", "WithRetry: %[1]s (%[1]T) after %[2]d attempts", cbErr, attempt+1)

		var (
			rle *slack.RateLimitedError
			sce slack.StatusCodeError
			ne  *net.OpError
		)
		var delay time.Duration
		switch {
		case errors.As(cbErr, &rle):
			delay = rle.RetryAfter
			tracelogf(ctx, "info", "got rate limited, sleeping %s", delay)
		case errors.As(cbErr, &sce) && isRecoverable(sce.Code):
			delay = waitFn(attempt)
			tracelogf(ctx, "info", "got server error %d, sleeping %s", sce.Code, delay)
		case errors.As(cbErr, &ne) && (ne.Op == "read" || ne.Op == "write" || ne.Op == "dial"):
			delay = netWaitFn(attempt)
			tracelogf(ctx, "info", "got network error %s, sleeping %s", ne.Op, delay)
		default:
			return fmt.Errorf("callback error: %w", cbErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return ErrRetryFailed
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

// isRecoverable returns true if the status code is a recoverable error.
func isRecoverable(statusCode int) bool {
	return (statusCode >= http.StatusInternalServerError && statusCode <= 599 && statusCode != http.StatusNotImplemented) ||
		statusCode == http.StatusRequestTimeout
}

// cubicWait is the wait time function.  Time is calculated as (x+2)^3
// seconds, where x is the current attempt number, capped at the maximum
// allowed wait time.
func cubicWait(attempt int) time.Duration {
	x := attempt + 2 // at least 8 seconds.
	return capWait(time.Duration(x*x*x) * time.Second)
}

// expWait returns 2^(attempt+1) seconds.
func expWait(attempt int) time.Duration {
	return capWait(time.Duration(2<<uint(attempt)) * time.Second)
}

func capWait(d time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return min(d, maxAllowedWaitTime)
}

func tracelogf(ctx context.Context, category string, format string, a ...any) {
	mu.RLock()
	defer mu.RUnlock()

	trace.Logf(ctx, category, format, a...)
	lg.DebugContext(ctx, fmt.Sprintf(format, a...))
}

// SetLogger sets the package logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = slog.Default()
	}
	lg = l
}

// SetMaxAllowedWaitTime sets the maximum time to wait for a transient error.
func SetMaxAllowedWaitTime(d time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	maxAllowedWaitTime = d
}
