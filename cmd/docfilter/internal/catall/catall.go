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

package catall

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/catall"
	"github.com/rusq/docfilter/internal/osext"
)

var CmdCatall = &base.Command{
	Run:       runCatall,
	UsageLine: "docfilter catall [flags] [directory]",
	Short:     "print all text files of a directory tree",
	Long: `
Catall prints every text file under the directory (current directory, if not
specified) to the standard output, each preceded by a "--- path ---" header.
The output is suitable for pasting into a language model prompt.

Hidden files and directories, version control and dependency directories,
lock files and binary files are skipped.  Files are considered binary, if
they have a binary extension, or if the first kilobyte contains a NUL byte.
`,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

func runCatall(ctx context.Context, cmd *base.Command, args []string) error {
	dir := "."
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("at most one directory is allowed")
	}
	if err := osext.DirExists(dir); err != nil {
		base.SetExitStatus(base.SInvalidParameters)
		return err
	}
	if _, err := run(ctx, os.Stdout, dir); err != nil {
		if !osext.IsBrokenPipe(err) {
			base.SetExitStatus(base.SApplicationError)
		}
		return err
	}
	return nil
}

func run(ctx context.Context, w io.Writer, dir string) (int, error) {
	n, err := catall.Write(w, os.DirFS(dir))
	if err != nil {
		return n, err
	}
	cfg.Log.DebugContext(ctx, "files printed", slog.String("dir", dir), slog.Int("count", n))
	return n, nil
}
