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

// Package apiconfig implements the commands to create and check the filter
// configuration files.
package apiconfig

import (
	"os"

	"github.com/rusq/docfilter/cmd/docfilter/internal/cfg"
	"github.com/rusq/docfilter/cmd/docfilter/internal/golang/base"
)

var CmdConfig = &base.Command{
	UsageLine: "docfilter config",
	Short:     "filter configuration",
	Long: `
Config command allows to perform different operations on the filter
configuration file, that can be passed to 'docfilter markdown' with the
-config flag.
`,
	Commands: []*base.Command{
		CmdConfigNew,
		CmdConfigCheck,
	},
}

// Save saves the filter configuration to the file.
func Save(filename string, fc cfg.FilterConfig) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := cfg.WriteFilter(f, fc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load loads and validates the filter configuration file.  The validation
// problems are printed to the standard error.
func Load(filename string) (cfg.FilterConfig, error) {
	fc, err := cfg.LoadFilter(filename)
	if err != nil {
		return cfg.FilterConfig{}, err
	}
	if err := fc.Validate(); err != nil {
		if err := cfg.PrintErrors(os.Stderr, err); err != nil {
			return cfg.FilterConfig{}, err
		}
		return cfg.FilterConfig{}, cfg.ErrConfigInvalid
	}
	return fc, nil
}
