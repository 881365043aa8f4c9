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

// Package llm is the optional client of the vision capable language
// models, used to describe the images.
package llm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdx/go-netrc"
	"github.com/rusq/osenv/v2"
)

// Provider is the model provider.
type Provider string

const (
	OpenRouter Provider = "openrouter"
	OpenAI     Provider = "openai"
	Anthropic  Provider = "anthropic"
	// None is passed to the converter processes when no credentials were
	// found.
	None Provider = "none"
)

// Environment variables that carry the resolved credentials into the
// converter processes.
const (
	EnvProvider = "DOCFILTER_LLM_PROVIDER"
	EnvKey      = "DOCFILTER_LLM_KEY"
	EnvModel    = "DOCFILTER_LLM_MODEL"
)

// Credentials are the resolved provider credentials.
type Credentials struct {
	Provider Provider
	Key      string
	Model    string
	// BaseURL overrides the provider API endpoint.
	BaseURL string
}

// IsZero reports whether the credentials are empty.
func (c Credentials) IsZero() bool {
	return c.Provider == "" || c.Key == ""
}

type provider struct {
	id       Provider
	keyEnv   string
	host     string
	baseURL  string
	modelEnv string
	model    string
}

// providers in the order of preference.
var providers = []provider{
	{OpenRouter, "OPENROUTER_API_KEY", "openrouter.ai", "https://openrouter.ai/api/v1", "OPENROUTER_MODEL", "google/gemini-2.0-flash-001"},
	{OpenAI, "OPENAI_API_KEY", "api.openai.com", "", "OPENAI_MODEL", "gpt-4o"},
	{Anthropic, "ANTHROPIC_API_KEY", "api.anthropic.com", "", "ANTHROPIC_MODEL", "claude-sonnet-4-5"},
}

func lookup(id Provider) (provider, bool) {
	for _, p := range providers {
		if p.id == id {
			return p, true
		}
	}
	return provider{}, false
}

// Resolve returns the credentials of the first provider that has the API key
// in the environment, or in the user's netrc file.  The environment takes
// precedence over netrc.  It returns false if there are no credentials.
func Resolve() (Credentials, bool) {
	return resolve(func(key string) string { return osenv.Value(key, "") }, netrcPath())
}

func resolve(getenv func(string) string, netrcFile string) (Credentials, bool) {
	var rc *netrc.Netrc
	if netrcFile != "" {
		if n, err := netrc.Parse(netrcFile); err == nil {
			rc = n
		}
	}
	for _, p := range providers {
		key := strings.TrimSpace(getenv(p.keyEnv))
		if key == "" && rc != nil {
			if m := rc.Machine(p.host); m != nil {
				key = m.Get("password")
			}
		}
		if key == "" {
			continue
		}
		model := getenv(p.modelEnv)
		if model == "" {
			model = p.model
		}
		return Credentials{Provider: p.id, Key: key, Model: model, BaseURL: p.baseURL}, true
	}
	return Credentials{}, false
}

// netrcPath returns the location of the user's netrc file, $NETRC overrides
// it.
func netrcPath() string {
	if p := os.Getenv("NETRC"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".netrc")
}

// Env returns the credentials as environment variables for the converter
// process.  Empty credentials are passed as the None provider, so that the
// process does not resolve them again.
func (c Credentials) Env() []string {
	if c.IsZero() {
		return []string{EnvProvider + "=" + string(None)}
	}
	return []string{
		EnvProvider + "=" + string(c.Provider),
		EnvKey + "=" + c.Key,
		EnvModel + "=" + c.Model,
	}
}

var errUnknownProvider = errors.New("unknown llm provider")

// FromEnv returns the credentials passed by the parent process with Env.
// The key variable is removed from the environment.  It returns false if
// the parent process has not passed the credentials.  If the parent has
// found no credentials, it returns empty credentials and true.
func FromEnv() (Credentials, bool, error) {
	id := Provider(osenv.Value(EnvProvider, ""))
	key := osenv.Secret(EnvKey, "")
	if id == None {
		return Credentials{}, true, nil
	}
	if id == "" || key == "" {
		return Credentials{}, false, nil
	}
	p, ok := lookup(id)
	if !ok {
		return Credentials{}, false, errUnknownProvider
	}
	model := osenv.Value(EnvModel, p.model)
	return Credentials{Provider: id, Key: key, Model: model, BaseURL: p.baseURL}, true, nil
}
