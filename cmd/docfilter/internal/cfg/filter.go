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

package cfg

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FilterConfig is the markdown filter configuration, as it appears in the
// configuration file.
type FilterConfig struct {
	// Workers is the number of parallel conversions.
	Workers int `toml:"workers" validate:"gte=1,lte=12"`
	// Timeout is the maximum duration of a single conversion.
	Timeout Duration `toml:"timeout" validate:"gt=0"`
	// Ext is the extension of the converted files.
	Ext string `toml:"ext" validate:"required,startswith=.,excludes=/"`
	// Converter is the external converter command line.  Empty means
	// built-in.
	Converter string `toml:"converter,omitempty"`
	// SkipExt lists the extensions skipped in addition to the default
	// media set.
	SkipExt StringSlice `toml:"skip_ext,omitempty" validate:"dive,required"`
}

var ErrConfigInvalid = errors.New("config validation failed")

var (
	validate = newValidator()
	// OptErrTranslations is the translator for the validation errors.
	OptErrTranslations ut.Translator
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		return f.Interface().(Duration).Duration
	}, Duration{})
	english := en.New()
	uni := ut.New(english, english)
	OptErrTranslations, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, OptErrTranslations); err != nil {
		panic(err)
	}
	return v
}

// Validate validates the configuration.
func (c FilterConfig) Validate() error {
	return validate.Struct(c)
}

// LoadFilter reads and parses the configuration file, overlaying the values
// on top of the defaults.  It does not validate the configuration.
func LoadFilter(filename string) (FilterConfig, error) {
	fc := DefFilter()
	md, err := toml.DecodeFile(filename, &fc)
	if err != nil {
		return FilterConfig{}, err
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return FilterConfig{}, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}
	return fc, nil
}

// WriteFilter writes the configuration in TOML format.
func WriteFilter(w io.Writer, fc FilterConfig) error {
	return toml.NewEncoder(w).Encode(fc)
}

// ApplyConfig loads the configuration file, if set, into Filter.  The flags
// explicitly set on the command line take precedence over the file values.
// The resulting configuration is validated.
func ApplyConfig(fs *flag.FlagSet, filename string) error {
	if filename != "" {
		set := make(map[string]string)
		fs.Visit(func(f *flag.Flag) {
			set[f.Name] = f.Value.String()
		})
		fc, err := LoadFilter(filename)
		if err != nil {
			return fmt.Errorf("config %s: %w", filename, err)
		}
		Filter = fc
		for name, val := range set {
			if err := fs.Set(name, val); err != nil {
				return err
			}
		}
	}
	if err := Filter.Validate(); err != nil {
		if pErr := PrintErrors(os.Stderr, err); pErr != nil {
			return pErr
		}
		return ErrConfigInvalid
	}
	return nil
}

// PrintErrors prints the validation errors to w.  If err is not a
// validation error, it is returned as is.
func PrintErrors(w io.Writer, err error) error {
	if err == nil {
		return nil
	}

	var wErr error
	var printErr = func(format string, a ...any) {
		if wErr != nil {
			return
		}
		_, wErr = fmt.Fprintf(w, format, a...)
	}

	var vErr validator.ValidationErrors
	if !errors.As(err, &vErr) {
		return err
	}
	printErr("Detected problems:\n")
	for i, entry := range vErr {
		printErr("\t%2d: %s\n", i+1, entry.Translate(OptErrTranslations))
	}
	return wErr
}
