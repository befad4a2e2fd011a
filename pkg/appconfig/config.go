// Package appconfig holds bindgraph's own application configuration:
// recognized module file extensions, default package-cache roots, the
// native dump utility invocation, and analyzer worker-pool sizing.
//
// The embedded-default-then-local-override idiom is carried over verbatim
// from the teacher's pkg/config/config.go, including the TOML decoding via
// github.com/BurntSushi/toml.
package appconfig

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/smith-xyz/bindgraph/pkg/utils"
)

// Embedded default configuration.
// Use 'go generate ./pkg/appconfig' to update from root config.toml
//
//go:generate cp ../../config.toml default_config.toml
//go:embed default_config.toml
var embeddedConfigData []byte

// Config holds bindgraph's application configuration.
type Config struct {
	Modules   ModuleConfig   `toml:"modules"`
	Packages  PackagesConfig `toml:"packages"`
	Native    NativeConfig   `toml:"native"`
	Analyzer  AnalyzerConfig `toml:"analyzer"`
}

// ModuleConfig controls which files the directory walk treats as candidate
// modules (spec §4.5 "extension matches the runtime's module extensions").
type ModuleConfig struct {
	Extensions []string `toml:"extensions"`
}

// PackagesConfig controls the package index (C7).
type PackagesConfig struct {
	DefaultRoots     []string `toml:"default_roots"`
	HashCachePath    string   `toml:"hash_cache_path"`
	InMemoryCacheLRU int      `toml:"in_memory_cache_lru"`
}

// NativeConfig controls the native inspector's (C4) external dump utility.
type NativeConfig struct {
	DumpCommand string   `toml:"dump_command"`
	DumpArgs    []string `toml:"dump_args"`
}

// AnalyzerConfig controls the analyzer/graph builder's (C6) concurrency.
type AnalyzerConfig struct {
	WorkerCount int `toml:"worker_count"`
}

// DefaultConfig returns the default configuration with optional local
// overrides. It always starts with the embedded config; if a local
// bindgraph.toml is found and loads, that file alone is returned in place
// of the embedded config (fields it omits are not filled from the embedded
// defaults).
func DefaultConfig() (*Config, error) {
	var config Config
	if err := toml.Unmarshal(embeddedConfigData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse embedded config: %w", err)
	}

	localConfigPaths := []string{
		"bindgraph.toml",
		"../bindgraph.toml",
		"../../bindgraph.toml",
	}

	for _, path := range localConfigPaths {
		if utils.FileExists(path) {
			localConfig, err := LoadFromFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load local config %s: %v\n", path, err)
				break
			}
			return localConfig, nil
		}
	}

	return &config, nil
}

// LoadFromFile loads configuration from a TOML file.
func LoadFromFile(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return &config, nil
}

// IsCandidateModule reports whether path's extension matches one of the
// configured module extensions, case-insensitively (spec §4.5).
func (c *Config) IsCandidateModule(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range c.Modules.Extensions {
		if strings.ToLower(candidate) == ext {
			return true
		}
	}
	return false
}

// DefaultPackageRoots resolves the configured default package-cache roots,
// replacing a leading "~" with the user's home directory (spec §6:
// "well-known directories under the per-user profile").
func (c *Config) DefaultPackageRoots() []string {
	if env := os.Getenv("BINDGRAPH_PACKAGE_ROOT"); env != "" {
		return []string{env}
	}

	home, err := os.UserHomeDir()
	roots := make([]string, 0, len(c.Packages.DefaultRoots))
	for _, root := range c.Packages.DefaultRoots {
		if err == nil && strings.HasPrefix(root, "~") {
			root = filepath.Join(home, strings.TrimPrefix(root, "~"))
		}
		roots = append(roots, root)
	}
	return roots
}
