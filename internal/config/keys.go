package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/jiro/internal/log"
)

// keySpec describes one supported configuration key.
type keySpec struct {
	key      string
	def      string
	help     string
	validate func(string) error
}

// knownKeys lists every key `jiro config` accepts.
var knownKeys = []keySpec{
	{key: "mode", help: "Storage mode: local or stealth (empty infers from the working tree)", validate: validateMode},
	{key: "project.name", help: "Project name used for the home namespace"},
	{key: "commands.test", help: "Command that runs the project's tests"},
	{key: "commands.lint", help: "Command that runs the project's linters"},
	{key: "models.execution", def: "claude-sonnet-4-5", help: "Model used for task execution"},
	{key: "models.planning", def: "claude-opus-4-1", help: "Model used for specs and planning"},
	{key: "assets.package_dir", help: "Directory replacing the bundled package assets"},
	{key: "log.level", def: "info", help: "Minimum level written to the debug log", validate: validateLogLevel},
	{key: "log.file", help: "Debug log path (defaults to <data dir>/logs/jiro-debug.log)"},
}

// Keys returns every supported key in sorted order.
func Keys() []string {
	out := make([]string, len(knownKeys))
	for i, k := range knownKeys {
		out[i] = k.key
	}
	sort.Strings(out)
	return out
}

// Help returns the description of a key.
func Help(key string) string {
	spec, err := lookupKey(key)
	if err != nil {
		return ""
	}
	return spec.help
}

// lookupKey finds the definition of a dot-notation key (case-insensitive).
func lookupKey(key string) (keySpec, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, k := range knownKeys {
		if k.key == key {
			return k, nil
		}
	}
	return keySpec{}, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

func validateMode(v string) error {
	switch v {
	case "", "local", "stealth":
		return nil
	default:
		return fmt.Errorf("mode must be \"local\" or \"stealth\", got %q", v)
	}
}

func validateLogLevel(v string) error {
	_, err := log.ParseLevel(v)
	return err
}
