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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/rusq/tracer"

	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
)

// newHandler returns the slog handler writing to w.
func newHandler(w io.Writer, jsonHandler bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if jsonHandler {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// initLog sets up the default logger and returns it.  Messages go to stderr,
// unless filename is set, in which case they are appended to the file, which
// is closed on exit.  Plain stderr output without verbose or json keeps the
// default handler.
func initLog(filename string, jsonHandler bool, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
		slog.SetLogLoggerLevel(level)
	}
	if filename == "" {
		if jsonHandler || verbose {
			slog.SetDefault(slog.New(newHandler(os.Stderr, jsonHandler, level)))
		}
		return slog.Default(), nil
	}

	lf, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
	if err != nil {
		return slog.Default(), fmt.Errorf("log file: %w", err)
	}
	// panics and stray log.Print calls end up in the file too.
	log.SetOutput(lf)
	slog.SetDefault(slog.New(newHandler(lf, jsonHandler, level)))
	base.AtExit(func() {
		if err := lf.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log file %s: %v\n", filename, err)
		}
	})
	return slog.Default(), nil
}

// initTrace starts the runtime trace into filename, if set, and returns the
// function that stops it.
func initTrace(filename string) (stop func()) {
	if filename == "" {
		return func() {}
	}
	trc := tracer.New(filename)
	if err := trc.Start(); err != nil {
		slog.Warn("trace is disabled", "filename", filename, "error", err)
		return func() {}
	}
	slog.Debug("tracing", "filename", filename)
	return func() {
		if err := trc.End(); err != nil {
			slog.Warn("trace file is incomplete", "filename", filename, "error", err)
		}
	}
}
