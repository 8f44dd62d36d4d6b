// Package config handles layered configuration for jiro.
// Scopes mirror the asset tiers: local (working tree), project (home
// namespace), global (home), plus built-in defaults and JIRO_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownKey is returned for keys jiro does not define.
	ErrUnknownKey = errors.New("unknown configuration key")
	// ErrScopeUnavailable is returned when a scope has no config file location.
	ErrScopeUnavailable = errors.New("configuration scope unavailable")
)

// Config holds all configuration for jiro.
type Config struct {
	Mode     string         `mapstructure:"mode"`
	Project  ProjectConfig  `mapstructure:"project"`
	Commands CommandsConfig `mapstructure:"commands"`
	Models   ModelsConfig   `mapstructure:"models"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProjectConfig holds project identity settings.
type ProjectConfig struct {
	Name string `mapstructure:"name"`
}

// CommandsConfig holds the project's quality commands.
type CommandsConfig struct {
	Test string `mapstructure:"test"`
	Lint string `mapstructure:"lint"`
}

// ModelsConfig holds model selection settings.
type ModelsConfig struct {
	Execution string `mapstructure:"execution"`
	Planning  string `mapstructure:"planning"`
}

// AssetsConfig holds asset resolution settings.
type AssetsConfig struct {
	PackageDir string `mapstructure:"package_dir"`
}

// LogConfig holds debug log settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Scope identifies where a configuration value came from.
type Scope string

const (
	ScopeDefault Scope = "default"
	ScopeGlobal  Scope = "global"
	ScopeProject Scope = "project"
	ScopeLocal   Scope = "local"
	ScopeEnv     Scope = "env"
)

// fileScopes lists the file-backed scopes from lowest to highest precedence.
var fileScopes = []Scope{ScopeGlobal, ScopeProject, ScopeLocal}

// ParseScope converts a scope name to a file-backed Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(s)) {
	case ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeProject:
		return ScopeProject, nil
	case ScopeLocal:
		return ScopeLocal, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Paths locates the config file of each file-backed scope.
// An empty path disables that scope.
type Paths struct {
	Global  string
	Project string
	Local   string
}

// For returns the file path of a scope.
func (p Paths) For(scope Scope) (string, error) {
	var path string
	switch scope {
	case ScopeGlobal:
		path = p.Global
	case ScopeProject:
		path = p.Project
	case ScopeLocal:
		path = p.Local
	default:
		return "", fmt.Errorf("%w: %s is not file-backed", ErrScopeUnavailable, scope)
	}
	if path == "" {
		return "", fmt.Errorf("%w: %s", ErrScopeUnavailable, scope)
	}
	return path, nil
}

// Value is a configuration value together with its source scope.
type Value struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Scope Scope  `json:"scope"`
}

// Store reads and writes layered configuration.
type Store struct {
	paths  Paths
	layers map[Scope]*viper.Viper
	merged *viper.Viper
}

// Open loads every scope. Missing files are treated as empty scopes.
// Precedence (highest to lowest):
// 1. Environment variables (JIRO_MODE, JIRO_COMMANDS_TEST, ...)
// 2. Local config (<repo>/.jiro-dreams-of-code/config.yaml)
// 3. Project config (~/.jiro-dreams-of-code/<project>/config.yaml)
// 4. Global config (~/.jiro-dreams-of-code/config.yaml)
// 5. Built-in defaults
func Open(paths Paths) (*Store, error) {
	s := &Store{paths: paths}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Paths returns the file locations the store was opened with.
func (s *Store) Paths() Paths {
	return s.paths
}

func (s *Store) reload() error {
	layers := make(map[Scope]*viper.Viper, len(fileScopes))
	merged := viper.New()
	setDefaults(merged)

	for _, scope := range fileScopes {
		path, _ := s.paths.For(scope)
		layer, err := readLayer(path)
		if err != nil {
			return fmt.Errorf("reading %s config: %w", scope, err)
		}
		layers[scope] = layer
		if err := merged.MergeConfigMap(layer.AllSettings()); err != nil {
			return fmt.Errorf("merging %s config: %w", scope, err)
		}
	}

	merged.SetEnvPrefix("JIRO")
	merged.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	merged.AutomaticEnv()

	s.layers = layers
	s.merged = merged
	return nil
}

// readLayer reads one scope file. A missing or disabled file yields an empty layer.
func readLayer(path string) (*viper.Viper, error) {
	v := viper.New()
	if path == "" {
		return v, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return v, nil
		}
		return nil, err
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return v, nil
}

// Config returns the effective configuration.
func (s *Store) Config() (*Config, error) {
	cfg := &Config{}
	if err := s.merged.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Get returns the effective value of key and the scope it came from.
func (s *Store) Get(key string) (Value, error) {
	spec, err := lookupKey(key)
	if err != nil {
		return Value{}, err
	}

	// An empty variable is unset, the same as viper's AutomaticEnv sees it.
	if v := os.Getenv(envName(spec.key)); v != "" {
		return Value{Key: spec.key, Value: v, Scope: ScopeEnv}, nil
	}
	for i := len(fileScopes) - 1; i >= 0; i-- {
		layer := s.layers[fileScopes[i]]
		if layer.IsSet(spec.key) {
			return Value{Key: spec.key, Value: layer.GetString(spec.key), Scope: fileScopes[i]}, nil
		}
	}
	return Value{Key: spec.key, Value: spec.def, Scope: ScopeDefault}, nil
}

// List returns values for every key. An empty scope lists effective values;
// a file-backed scope lists only the keys set in that scope's file.
func (s *Store) List(scope Scope) ([]Value, error) {
	var values []Value
	for _, key := range Keys() {
		switch scope {
		case "":
			v, err := s.Get(key)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		case ScopeDefault:
			spec, _ := lookupKey(key)
			values = append(values, Value{Key: key, Value: spec.def, Scope: ScopeDefault})
		default:
			layer, ok := s.layers[scope]
			if !ok {
				return nil, fmt.Errorf("unknown scope %q", scope)
			}
			if layer.IsSet(key) {
				values = append(values, Value{Key: key, Value: layer.GetString(key), Scope: scope})
			}
		}
	}
	return values, nil
}

// Set writes key=value into a single scope's file, leaving other keys in that
// file untouched, and reloads the store.
func (s *Store) Set(scope Scope, key, value string) error {
	spec, err := lookupKey(key)
	if err != nil {
		return err
	}
	if spec.validate != nil {
		if err := spec.validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", spec.key, err)
		}
	}

	path, err := s.paths.For(scope)
	if err != nil {
		return err
	}

	doc, err := readRaw(path)
	if err != nil {
		return err
	}
	setNested(doc, strings.Split(spec.key, "."), value)

	if err := writeRaw(path, doc); err != nil {
		return err
	}
	return s.reload()
}

// Unset removes key from a single scope's file.
func (s *Store) Unset(scope Scope, key string) error {
	spec, err := lookupKey(key)
	if err != nil {
		return err
	}
	path, err := s.paths.For(scope)
	if err != nil {
		return err
	}

	doc, err := readRaw(path)
	if err != nil {
		return err
	}
	if !deleteNested(doc, strings.Split(spec.key, ".")) {
		return nil
	}
	if err := writeRaw(path, doc); err != nil {
		return err
	}
	return s.reload()
}

// readRaw reads a scope file as a plain YAML document.
func readRaw(path string) (map[string]any, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func writeRaw(path string, doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func setNested(doc map[string]any, parts []string, value string) {
	if len(parts) == 1 {
		doc[parts[0]] = value
		return
	}
	child, ok := doc[parts[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		doc[parts[0]] = child
	}
	setNested(child, parts[1:], value)
}

func deleteNested(doc map[string]any, parts []string) bool {
	if len(parts) == 1 {
		if _, ok := doc[parts[0]]; !ok {
			return false
		}
		delete(doc, parts[0])
		return true
	}
	child, ok := doc[parts[0]].(map[string]any)
	if !ok {
		return false
	}
	removed := deleteNested(child, parts[1:])
	if removed && len(child) == 0 {
		delete(doc, parts[0])
	}
	return removed
}

func envName(key string) string {
	return "JIRO_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	for _, k := range knownKeys {
		v.SetDefault(k.key, k.def)
	}
}
