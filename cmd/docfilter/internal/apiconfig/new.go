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

package apiconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/trace"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
	"github.com/rusq/docfilter/internal/osext"
)

var CmdConfigNew = &base.Command{
	UsageLine: "docfilter config new [flags] FILE",
	Short:     "creates a new filter config with the default values",
	Long: `
Creates a new filter configuration file containing default values. You will
need to specify the filename, for example:

    docfilter config new myconfig.toml

If the extension is omitted, ".toml" is automatically appended to the
filename.
`,
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
}

var fNewOverride = CmdConfigNew.Flag.Bool("y", false, "confirm the overwrite of the existing config")

// interactive is replaced in tests.
var interactive = osext.IsInteractive

func init() {
	CmdConfigNew.Run = runConfigNew
}

func runConfigNew(ctx context.Context, cmd *base.Command, args []string) error {
	_, task := trace.NewTask(ctx, "runConfigNew")
	defer task.End()

	if len(args) == 0 {
		base.SetExitStatus(base.SInvalidParameters)
		return errors.New("config file name must be specified")
	}

	filename := maybeFixExt(args[0])

	if !shouldOverwrite(filename, *fNewOverride) {
		base.SetExitStatus(base.SUserError)
		return fmt.Errorf("file or directory exists: %q, use -y flag to overwrite (will not overwrite directory)", filename)
	}

	if err := Save(filename, cfg.DefFilter()); err != nil {
		base.SetExitStatus(base.SApplicationError)
		return fmt.Errorf("error writing the filter config %q: %w", filename, err)
	}

	fmt.Printf("Your new filter config is ready: %q\n", filename)
	return nil
}

// shouldOverwrite returns true if the file does not exist, or if it exists
// and the override is set, or the user confirms the overwrite on the
// terminal.  Directories are never overwritten.
func shouldOverwrite(filename string, override bool) bool {
	fi, err := os.Stat(filename)
	if fi != nil && fi.IsDir() {
		return false
	}
	if err != nil || override {
		return true
	}
	return interactive() && base.YesNo(fmt.Sprintf("File %q exists. Overwrite", filename))
}

func maybeFixExt(filename string) string {
	if ext := filepath.Ext(filename); !(ext == ".toml" || ext == ".tml") {
		return maybeAppendExt(filename, ".toml")
	}
	return filename
}

func maybeAppendExt(filename string, ext string) string {
	if len(ext) == 0 {
		return filename
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	if filepath.Ext(filename) == ext {
		return filename
	}
	return filename + ext
}
