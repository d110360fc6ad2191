package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/loupe-search/loupe/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore answers typed lookups against a user-edited TOML file.
// Keys are dot paths into the document, so "index.roots" reads the
// roots key of the [index] table. The file is read once at
// construction; a missing file behaves as an empty document.
type ConfigStore struct {
	path string
	doc  map[string]any
}

// NewConfigStore loads dir/config.toml. An empty dir defaults to
// ~/.loupe.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".loupe")
	}
	s := &ConfigStore{path: filepath.Join(dir, "config.toml")}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return s, nil
}

// lookup descends the document one table per dot-separated key part.
func (s *ConfigStore) lookup(key string) (any, bool) {
	var cur any = s.doc
	for _, part := range strings.Split(key, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = table[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.lookup(key)
	str, _ := v.(string)
	return str
}

// GetInt retrieves an integer configuration value. TOML integers
// decode as int64.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.lookup(key)
	n, _ := v.(int64)
	return int(n)
}

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.lookup(key)
	b, _ := v.(bool)
	return b
}

// GetStringSlice retrieves a string list configuration value.
// Non-string elements are dropped.
func (s *ConfigStore) GetStringSlice(key string) []string {
	v, ok := s.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// Path returns the configuration file location.
func (s *ConfigStore) Path() string {
	return s.path
}
