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

package flatten

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rusq/fsadapter"
	"github.com/schollz/progressbar/v3"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/flatten"
	"github.com/rusq/docfilter/internal/osext"
)

//go:embed assets/flatten.md
var flattenMd string

var CmdFlatten = &base.Command{
	Run:        runFlatten,
	UsageLine:  "docfilter flatten [flags] SOURCE DEST",
	Short:      "flatten a directory tree into a single directory",
	Long:       flattenMd,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

var (
	errArgs = errors.New("source and destination are required")
	errSame = errors.New("source and destination must be different")
)

func runFlatten(ctx context.Context, cmd *base.Command, args []string) error {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s\n", cmd.UsageLine)
		base.SetExitStatus(base.SInvalidParameters)
		return errArgs
	}
	src, dst := args[0], args[1]
	if same, err := osext.IsSame(src, dst); err != nil || same {
		base.SetExitStatus(base.SInvalidParameters)
		if err != nil {
			return err
		}
		return errSame
	}

	files, err := flatten.Collect(src)
	if err != nil {
		if osext.IsPathError(err) || errors.Is(err, osext.ErrNotADir) {
			base.SetExitStatus(base.SInvalidParameters)
		} else {
			base.SetExitStatus(base.SApplicationError)
		}
		return err
	}
	n, err := run(ctx, os.Stdout, os.Stderr, files, dst, osext.IsTerminal(os.Stderr) && !osext.IsTerminal(os.Stdout))
	if err != nil {
		base.SetExitStatus(base.SApplicationError)
		return err
	}
	fmt.Printf("\nSuccessfully flattened %d files to '%s'.\n", n, dst)
	return nil
}

func isZip(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

func run(ctx context.Context, w, errW io.Writer, files []flatten.File, dst string, progress bool) (int, error) {
	var opt = flatten.Options{Logger: cfg.Log}
	if !isZip(dst) {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return 0, err
		}
		opt.Chtimes = flatten.DirChtimes(dst)
	}
	fsa, err := fsadapter.New(dst)
	if err != nil {
		return 0, err
	}
	defer fsa.Close()

	var rep flatten.Reporter = flatten.Printer{W: w, ErrW: errW}
	if progress {
		pb := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Flattening"),
			progressbar.OptionSetWriter(errW),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
		)
		defer pb.Finish()
		rep = barReporter{Reporter: rep, pb: pb}
	}

	n, err := flatten.Copy(ctx, fsa, files, rep, opt)
	if err != nil {
		return n, err
	}
	if err := fsa.Close(); err != nil {
		return n, fmt.Errorf("error closing %s: %w", dst, err)
	}
	return n, nil
}

type barReporter struct {
	flatten.Reporter
	pb *progressbar.ProgressBar
}

func (r barReporter) Copied(f flatten.File) {
	r.Reporter.Copied(f)
	_ = r.pb.Add(1)
}

func (r barReporter) Failed(f flatten.File, err error) {
	r.Reporter.Failed(f, err)
	_ = r.pb.Add(1)
}
