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

// Command docfilter converts document archives to markdown.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/trace"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rusq/docfilter/cmd/docfilter/internal/apiconfig"
	"github.com/rusq/docfilter/cmd/docfilter/internal/catall"
	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/convertcmd"
	"github.com/rusq/docfilter/cmd/docfilter/internal/fetch"
	"github.com/rusq/docfilter/cmd/docfilter/internal/flatten"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/help"
	"github.com/rusq/docfilter/cmd/docfilter/internal/markdown"
	"github.com/rusq/docfilter/cmd/docfilter/internal/slackfiles"
	"github.com/rusq/docfilter/cmd/docfilter/internal/urls"
	"github.com/rusq/docfilter/internal/osext"
)

// secrets defines the names of the supported secret files that we load our
// secrets from.  Inexperienced windows users might have bad experience trying
// to create .env file with the notepad as it will battle for having the
// "txt" extension.  Let it have it.
var secrets = []string{".env", ".env.txt", "secrets.txt"}

func init() {
	loadSecrets(secrets)

	base.Docfilter.Commands = []*base.Command{
		markdown.CmdMarkdown,
		convertcmd.CmdConvert,
		catall.CmdCatall,
		flatten.CmdFlatten,
		slackfiles.CmdSlackfiles,
		urls.CmdURLs,
		fetch.CmdFetch,
		apiconfig.CmdConfig,
		CmdVersion,
	}
}

func main() {
	// broken output pipe must surface as EPIPE, so that it can be handled.
	signal.Ignore(syscall.SIGPIPE)

	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
	}
	if args[0] == "help" {
		if !help.Help(os.Stdout, args[1:]) {
			base.SetExitStatus(base.SInvalidParameters)
		}
		base.Exit()
	}

BigCmdLoop:
	for bigCmd := base.Docfilter; ; {
		for _, cmd := range bigCmd.Commands {
			if cmd.Name() != args[0] {
				continue
			}
			if len(cmd.Commands) > 0 {
				bigCmd = cmd
				args = args[1:]
				if len(args) == 0 {
					help.PrintUsage(os.Stderr, bigCmd)
					base.SetExitStatus(base.SInvalidParameters)
					base.Exit()
				}
				if args[0] == "help" {
					// Accept 'docfilter config help' for 'docfilter help config'.
					help.Help(os.Stdout, append(strings.Split(bigCmd.LongName(), " "), args[1:]...))
					base.Exit()
				}
				continue BigCmdLoop
			}
			if !cmd.Runnable() {
				continue
			}
			invoke(cmd, args)
			base.Exit()
			return
		}
		helpArg := ""
		if name := bigCmd.LongName(); name != "" {
			helpArg = " " + name
		}
		fmt.Fprintf(os.Stderr, "%s%s %s: unknown command\nRun '%s help%s' for usage.\n", base.CmdName, helpArg, args[0], base.CmdName, helpArg)
		base.SetExitStatus(base.SInvalidParameters)
		base.Exit()
	}
}

func usage() {
	help.PrintUsage(os.Stderr, base.Docfilter)
	base.SetExitStatus(base.SInvalidParameters)
	base.Exit()
}

func invoke(cmd *base.Command, args []string) {
	if cmd.CustomFlags {
		args = args[1:]
	} else {
		cfg.SetBaseFlags(&cmd.Flag, cmd.FlagMask)
		cmd.Flag.Usage = func() { cmd.Usage() }
		cmd.Flag.Parse(args[1:])
		args = cmd.Flag.Args()
	}

	lg, err := initLog(cfg.LogFile, cfg.JSONHandler, cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		base.SetExitStatus(base.SInitializationError)
		return
	}
	cfg.Log = lg
	base.AtExit(initTrace(cfg.TraceFile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, task := trace.NewTask(ctx, "command")
	defer task.End()
	trace.Logf(ctx, "command", "running %s with %v", cmd.Name(), args)

	if err := cmd.Run(ctx, cmd, args); err != nil {
		switch {
		case osext.IsBrokenPipe(err):
			// the consumer has gone away, nothing else to do.
			lg.DebugContext(ctx, "output closed", "error", err)
			return
		case errors.Is(err, context.Canceled):
			lg.ErrorContext(ctx, "interrupted", "command", cmd.Name())
			base.SetExitStatus(base.SApplicationError)
			return
		}
		if base.GetExitStatus() == base.SNoError {
			base.SetExitStatus(base.SGenericError)
		}
		lg.ErrorContext(ctx, "command failed", "command", cmd.Name(), "error", err)
	}
}

// loadSecrets load secrets from the files in secrets slice.
func loadSecrets(files []string) {
	for _, f := range files {
		godotenv.Load(f)
	}
}
