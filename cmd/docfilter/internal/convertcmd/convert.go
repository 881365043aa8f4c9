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

// Package convertcmd implements the convert command, that converts a single
// file to markdown.  The markdown command runs it for each file in the
// archive.
package convertcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/converter"
	"github.com/rusq/docfilter/internal/llm"
)

var CmdConvert = &base.Command{
	Run:       runConvert,
	UsageLine: "docfilter convert [flags] <file>",
	Short:     "convert a single file to markdown",
	Long: `
Convert converts the file to markdown and prints it to the standard output.

If the file has no convertible text, nothing is printed and the exit status
is 3.  Images are described with the language model, if the credentials are
available, see 'docfilter help markdown'.
`,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

var output string

func init() {
	CmdConvert.Flag.StringVar(&output, "o", "", "output `file`, if not specified, the output is printed to STDOUT")
}

func runConvert(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 1 {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("exactly one file is required")
	}
	reg, err := registry(cfg.Log)
	if err != nil {
		base.SetExitStatus(base.SInitializationError)
		return err
	}

	text, err := reg.Convert(ctx, args[0])
	if err != nil {
		// the last line of stderr is reported by the markdown command as
		// the failure reason, keep it plain.
		fmt.Fprintln(os.Stderr, err)
		base.SetExitStatus(base.SApplicationError)
		return nil
	}
	if text == "" {
		base.SetExitStatus(base.SNoContent)
		return nil
	}
	return write(output, text)
}

// registry returns the converter registry.  The language model credentials
// are passed by the parent process, otherwise they are resolved from the
// environment.
func registry(lg *slog.Logger) (*converter.Registry, error) {
	creds, ok, err := llm.FromEnv()
	if err != nil {
		return nil, err
	}
	if !ok {
		creds, _ = llm.Resolve()
	}
	client, err := llm.New(creds, llm.WithLogger(lg))
	if err != nil {
		return nil, err
	}
	opts := []converter.Option{converter.WithLogger(lg)}
	if client != nil {
		opts = append(opts, converter.WithDescriber(client))
	}
	return converter.New(opts...), nil
}

func write(filename string, text string) error {
	var w io.Writer = os.Stdout
	if filename != "" {
		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	_, err := io.WriteString(w, text)
	return err
}
