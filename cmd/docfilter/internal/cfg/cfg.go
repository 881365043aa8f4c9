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

// Package cfg contains common configuration variables.
package cfg

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/docfilter/internal/archive"
	"github.com/rusq/docfilter/internal/worker"
)

var (
	TraceFile   string
	LogFile     string
	JSONHandler bool
	Verbose     bool

	ConfigFile string
	// Isolate enables running each conversion in its own process.
	Isolate bool

	// Filter is the effective markdown filter configuration.
	Filter = DefFilter()

	Log = slog.Default()
)

type FlagMask uint16

const (
	DefaultFlags   FlagMask = 0
	OmitConfigFlag FlagMask = 1 << iota
	OmitFilterFlags
	OmitIsolateFlag

	OmitAll = OmitConfigFlag |
		OmitFilterFlags |
		OmitIsolateFlag
)

// SetBaseFlags sets base flags
func SetBaseFlags(fs *flag.FlagSet, mask FlagMask) {
	fs.StringVar(&TraceFile, "trace", os.Getenv("TRACE_FILE"), "trace `filename`")
	fs.StringVar(&LogFile, "log", os.Getenv("LOG_FILE"), "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&JSONHandler, "log-json", osenv.Value("JSON_LOG", false), "log in JSON format")
	fs.BoolVar(&Verbose, "v", osenv.Value("DEBUG", false), "verbose messages")

	if mask&OmitConfigFlag == 0 {
		fs.StringVar(&ConfigFile, "config", osenv.Value("DOCFILTER_CONFIG", ""), "filter configuration `file` (TOML).\nYou can generate one with default values with 'docfilter config new'")
	}
	if mask&OmitFilterFlags == 0 {
		fs.IntVar(&Filter.Workers, "workers", Filter.Workers, "number of parallel conversions (1-12)")
		fs.DurationVar(&Filter.Timeout.Duration, "timeout", Filter.Timeout.Duration, "conversion `timeout` per file")
		fs.StringVar(&Filter.Ext, "ext", Filter.Ext, "output file `extension`")
		fs.StringVar(&Filter.Converter, "converter", osenv.Value("DOCFILTER_CONVERTER", ""), "external converter `command`, i.e. \"markitdown\".\nThe file name is appended to the command line, and the\nconverted text is read from its standard output.\nIf empty, the built-in converter is used")
		fs.Var(&Filter.SkipExt, "skip-ext", "comma separated list of additional `extensions` to skip")
	}
	if mask&OmitIsolateFlag == 0 {
		fs.BoolVar(&Isolate, "isolate", true, "run each conversion in a separate process")
	}
}

// DefFilter returns the default filter configuration.
func DefFilter() FilterConfig {
	return FilterConfig{
		Workers: worker.Bound(),
		Timeout: Duration{worker.DefaultTimeout},
		Ext:     archive.DefaultExt,
	}
}

// Duration is a time.Duration that is encoded as a string in the
// configuration file, i.e. "3m0s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}
