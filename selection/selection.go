// Package selection loads the names of implementations chosen at boot
// and turns them into tinyinject.Choice values for Binding.ToSelected.
//
// A YAML file:
//
//	store: postgres
//	cache: redis
//
// or environment variables:
//
//	APP_SELECT_STORE=postgres
//	APP_SELECT_CACHE=redis
package selection

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/andriiyaremenko/tinyinject"
)

var ErrNotSelected = errors.New("no alternative selected")

// Set maps setting names to alternative names. Setting names are case insensitive.
type Set map[string]string

// ParseYAML reads a flat YAML mapping of setting names to alternative names.
func ParseYAML(data []byte) (Set, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse selection: %w", err)
	}

	set := make(Set, len(raw))
	for name, alternative := range raw {
		set[normalize(name)] = strings.TrimSpace(alternative)
	}

	return set, nil
}

// LoadYAML reads the selection from the YAML file at path.
func LoadYAML(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	return ParseYAML(data)
}

// LoadEnv reads the selection from dotenv files, keeping variables starting with prefix.
// Variables set in the process environment take precedence over the files.
func LoadEnv(prefix string, files ...string) (Set, error) {
	vars, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	set := fromVars(prefix, vars)
	for name, alternative := range FromEnviron(prefix) {
		set[name] = alternative
	}

	return set, nil
}

// FromEnviron reads the selection from process environment variables starting with prefix.
func FromEnviron(prefix string) Set {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			vars[name] = value
		}
	}

	return fromVars(prefix, vars)
}

func fromVars(prefix string, vars map[string]string) Set {
	set := make(Set)
	for name, value := range vars {
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		if name = strings.TrimPrefix(name, prefix); name == "" || value == "" {
			continue
		}

		set[normalize(name)] = strings.TrimSpace(value)
	}

	return set
}

// Lookup returns the alternative selected for name.
func (s Set) Lookup(name string) (string, bool) {
	alternative, ok := s[normalize(name)]
	return alternative, ok && alternative != ""
}

// Choice returns a tinyinject.Choice selecting the alternative configured for name.
// When nothing is configured fallback is used; an empty fallback makes the Choice fail
// with ErrNotSelected.
//
//	tinyinject.Bind[Store](r).ToSelected(set.Choice("store", "memory"), stores)
func (s Set) Choice(name, fallback string) tinyinject.Choice {
	return func() (string, error) {
		if alternative, ok := s.Lookup(name); ok {
			return alternative, nil
		}

		if fallback == "" {
			return "", fmt.Errorf("%w for %q", ErrNotSelected, name)
		}

		return fallback, nil
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
