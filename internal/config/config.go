// Package config loads the optional YAML configuration file: host aliases,
// initial option values and the cache store selection. A missing file is not
// an error, everything has a default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/nodesh/nodesh/pkg/options"
)

// File is the decoded configuration file.
type File struct {
	// Hosts maps a short alias to a full target URL.
	Hosts map[string]string `mapstructure:"hosts"`
	// Options holds initial values applied to the option registry before
	// command-line flags. Values keep their YAML type until application.
	Options map[string]any `mapstructure:"options"`
	// CacheStore selects the persistent cache backend. Empty means the
	// default file store; `redis://...` selects Redis.
	CacheStore string `mapstructure:"cache_store"`
	// CacheDir overrides the file store directory.
	CacheDir string `mapstructure:"cache_dir"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nodesh", "config.yaml")
}

// Load reads and decodes the file at path. A missing file yields an empty
// configuration; a malformed one is an error.
func Load(path string) (*File, error) {
	if path == "" {
		path = DefaultPath()
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) || path == "" {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes configuration bytes. The YAML goes through a loose map first
// so unknown keys are tolerated, then mapstructure shapes the known ones.
func Parse(raw []byte) (*File, error) {
	var loose map[string]any
	if err := yaml.Unmarshal(raw, &loose); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	var f File
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &f,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(loose); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &f, nil
}

// ResolveHost expands a bare alias into its configured target URL. Anything
// that is not a known alias passes through unchanged.
func (f *File) ResolveHost(target string) string {
	if url, ok := f.Hosts[target]; ok {
		return url
	}
	return target
}

// ApplyOptions feeds the configured option values into the registry, in
// sorted order so failures are reported deterministically.
func (f *File) ApplyOptions(reg *options.Registry) error {
	names := make([]string, 0, len(f.Options))
	for name := range f.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := reg.Set(name, optionValue(f.Options[name])); err != nil {
			return fmt.Errorf("config option %s: %w", name, err)
		}
	}
	return nil
}

// optionValue renders a YAML scalar the way the registry parses values.
func optionValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
