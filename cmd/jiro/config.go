package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/jiro/internal/config"
	"github.com/ShayCichocki/jiro/internal/log"
)

var (
	configGlobal  bool
	configProject bool
	configLocal   bool
	configJSON    bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View or modify jiro configuration.

Configuration is layered like assets (highest precedence first):
  env     - JIRO_* environment variables (JIRO_COMMANDS_TEST, ...)
  local   - <repo>/.jiro-dreams-of-code/config.yaml (local mode only)
  project - ~/.jiro-dreams-of-code/<project>/config.yaml
  global  - ~/.jiro-dreams-of-code/config.yaml
  default - built into jiro`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configuration values",
	Long: `List every configuration key with its effective value and source scope.

With a scope flag, only the keys set in that scope's file are listed.`,
	Args: cobra.NoArgs,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print the effective value of a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a key in one scope",
	Long: `Set a key in exactly one scope file.

A scope flag is required:
  jiro config set commands.test "go test ./..." --project`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove a key from one scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	for _, c := range []*cobra.Command{configListCmd, configSetCmd, configUnsetCmd} {
		c.Flags().BoolVar(&configGlobal, "global", false, "Use the global scope")
		c.Flags().BoolVar(&configProject, "project", false, "Use the project scope")
		c.Flags().BoolVar(&configLocal, "local", false, "Use the local scope")
	}
	for _, c := range []*cobra.Command{configListCmd, configGetCmd} {
		c.Flags().BoolVar(&configJSON, "json", false, "Output as JSON")
	}

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

// errNoScope is returned when a write command is missing its scope flag.
var errNoScope = errors.New("a scope flag is required: --global, --project or --local")

// selectScope maps the scope flags to a scope. No flag yields "".
func selectScope(global, project, local bool) (config.Scope, error) {
	var scopes []config.Scope
	if global {
		scopes = append(scopes, config.ScopeGlobal)
	}
	if project {
		scopes = append(scopes, config.ScopeProject)
	}
	if local {
		scopes = append(scopes, config.ScopeLocal)
	}
	switch len(scopes) {
	case 0:
		return "", nil
	case 1:
		return scopes[0], nil
	default:
		return "", fmt.Errorf("only one scope flag may be given, got %d", len(scopes))
	}
}

func requireScope() (config.Scope, error) {
	scope, err := selectScope(configGlobal, configProject, configLocal)
	if err != nil {
		return "", err
	}
	if scope == "" {
		return "", errNoScope
	}
	return scope, nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	scope, err := selectScope(configGlobal, configProject, configLocal)
	if err != nil {
		return err
	}

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	values, err := env.store.List(scope)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if configJSON {
		if values == nil {
			values = []config.Value{}
		}
		return writeJSON(out, values)
	}
	if len(values) == 0 {
		fmt.Fprintf(out, "No keys set in %s scope.\n", scope)
		return nil
	}
	fmt.Fprintln(out, configTable(values))
	return nil
}

func configTable(values []config.Value) string {
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		value := v.Value
		if value == "" {
			value = "(not set)"
		}
		rows = append(rows, []string{v.Key, value, string(v.Scope)})
	}
	return renderTable([]string{"KEY", "VALUE", "SCOPE"}, rows)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	v, err := env.store.Get(args[0])
	if err != nil {
		return withKeyHint(err)
	}

	out := cmd.OutOrStdout()
	if configJSON {
		return writeJSON(out, v)
	}
	fmt.Fprintln(out, v.Value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	scope, err := requireScope()
	if err != nil {
		return err
	}

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	key, value := args[0], args[1]
	if err := env.store.Set(scope, key, value); err != nil {
		return scopeError(withKeyHint(err), scope)
	}
	env.logger.Info(log.CatConfig, "set config value", "key", key, "scope", scope)

	printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Set %s = %s (%s)", strings.ToLower(key), value, scope), color.FgGreen)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	scope, err := requireScope()
	if err != nil {
		return err
	}

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.store.Unset(scope, args[0]); err != nil {
		return scopeError(withKeyHint(err), scope)
	}
	env.logger.Info(log.CatConfig, "unset config value", "key", args[0], "scope", scope)

	printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Removed %s from %s config", strings.ToLower(args[0]), scope), color.FgGreen)
	return nil
}

// withKeyHint appends the list of known keys to unknown-key errors.
func withKeyHint(err error) error {
	if errors.Is(err, config.ErrUnknownKey) {
		return fmt.Errorf("%w\n\nKnown keys:\n%s", err, knownKeyList())
	}
	return err
}

func scopeError(err error, scope config.Scope) error {
	if errors.Is(err, config.ErrScopeUnavailable) && scope == config.ScopeLocal {
		return fmt.Errorf("%w (stealth mode has no local config; use --project)", err)
	}
	return err
}

func knownKeyList() string {
	var b strings.Builder
	for _, k := range config.Keys() {
		fmt.Fprintf(&b, "  %-20s %s\n", k, config.Help(k))
	}
	return strings.TrimRight(b.String(), "\n")
}
