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
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/converter"
	"github.com/rusq/docfilter/internal/llm"
	"github.com/rusq/docfilter/internal/mdfilter"
	"github.com/rusq/docfilter/internal/osext"
	"github.com/rusq/docfilter/internal/worker"
)

//go:embed assets/markdown.md
var markdownMd string

var CmdMarkdown = &base.Command{
	Run:        runMarkdown,
	UsageLine:  "docfilter markdown [flags] < input.tar > output.tar",
	Short:      "convert documents in a tar archive to markdown",
	Long:       markdownMd,
	FlagMask:   cfg.DefaultFlags,
	PrintFlags: true,
}

var errTerminal = errors.New("the archive must be piped to the standard input")

// isTerminal is replaced in tests.
var isTerminal = osext.IsTerminal

func runMarkdown(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) > 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("unexpected arguments, the archive is read from the standard input")
	}
	if isTerminal(os.Stdin) {
		fmt.Fprintf(os.Stderr, "usage: %s\n", cmd.UsageLine)
		base.SetExitStatus(base.SInvalidParameters)
		return errTerminal
	}
	if err := cfg.ApplyConfig(&cmd.Flag, cfg.ConfigFile); err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}

	fc := cfg.Filter
	lg := cfg.Log
	newRunner, err := runnerFactory(fc, cfg.Isolate, lg)
	if err != nil {
		base.SetExitStatus(base.SInitializationError)
		return err
	}

	flt := mdfilter.New(
		newRunner,
		mdfilter.WithReporter(worker.NewDiag(os.Stderr, fc.Ext, osext.IsTerminal(os.Stderr))),
		mdfilter.WithLogger(lg),
		mdfilter.WithWorkers(fc.Workers),
		mdfilter.WithTimeout(fc.Timeout.Duration),
		mdfilter.WithExt(fc.Ext),
		mdfilter.WithSkipExt(fc.SkipExt...),
	)
	if err := flt.Run(ctx, os.Stdin, os.Stdout); err != nil {
		if !osext.IsBrokenPipe(err) {
			base.SetExitStatus(base.SApplicationError)
		}
		return err
	}
	return nil
}

// runnerFactory returns the factory of the runners for the configuration.
// The language model credentials are resolved once, here, and passed to
// each converter process.
func runnerFactory(fc cfg.FilterConfig, isolate bool, lg *slog.Logger) (mdfilter.RunnerFactory, error) {
	creds, ok := llm.Resolve()
	if ok {
		lg.Info("images will be described", "provider", creds.Provider, "model", creds.Model)
	}
	if fc.Converter != "" {
		argv := strings.Fields(fc.Converter)
		if len(argv) == 0 {
			return nil, errors.New("empty converter command")
		}
		return func(dir string) (worker.Runner, error) {
			return worker.NewProcess(dir, argv[0], argv[1:], worker.WithEnv(creds.Env()...), worker.WithProcessLogger(lg)), nil
		}, nil
	}
	if !isolate {
		lg.Warn("conversions run in-process, a hung conversion will not be terminated")
		client, err := llm.New(creds, llm.WithLogger(lg))
		if err != nil {
			return nil, err
		}
		opts := []converter.Option{converter.WithLogger(lg)}
		if client != nil {
			opts = append(opts, converter.WithDescriber(client))
		}
		reg := converter.New(opts...)
		return func(dir string) (worker.Runner, error) {
			return worker.NewFunc(dir, reg.Convert), nil
		}, nil
	}
	return func(dir string) (worker.Runner, error) {
		return worker.Self(dir, worker.WithEnv(creds.Env()...), worker.WithProcessLogger(lg))
	}, nil
}
