package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/jiro/internal/assets"
	"github.com/ShayCichocki/jiro/internal/defaults"
	"github.com/ShayCichocki/jiro/internal/log"
	"github.com/ShayCichocki/jiro/internal/project"
)

var (
	assetsJSON  bool
	assetsTable bool

	customizeLocal   bool
	customizeProject bool
	customizeGlobal  bool
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Inspect and customize prompts and templates",
	Long: `Inspect and customize the prompts and templates jiro uses.

Each asset is looked up in the local, project, global and package tiers in
that order; the first tier holding the file wins.`,
}

var assetsListCmd = &cobra.Command{
	Use:   "list [PATTERN]",
	Short: "List every asset and the tier it resolves from",
	Long: `List every asset and the tier it resolves from.

An optional glob narrows the list; "**" matches any number of directories.

Examples:
  jiro assets list
  jiro assets list 'prompts/*'
  jiro assets list '**/default.*' --table`,
	Args: cobra.MaximumNArgs(1),
	RunE:  runAssetsList,
}

var assetsWhichCmd = &cobra.Command{
	Use:   "which PATH",
	Short: "Print the file an asset resolves to",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsWhich,
}

var assetsShowCmd = &cobra.Command{
	Use:   "show PATH",
	Short: "Print the resolved content of an asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsShow,
}

var assetsCustomizeCmd = &cobra.Command{
	Use:   "customize PATH",
	Short: "Copy an asset into a tier for editing",
	Long: `Copy the currently winning version of an asset into a writable tier.

Without a tier flag the asset goes to the local tier, or to the project tier
in stealth mode. Customizing an asset that already lives in the target tier
leaves it untouched.

Examples:
  jiro assets customize prompts/dreaming_agent.md
  jiro assets customize templates/commit/default.txt --global`,
	Args: cobra.ExactArgs(1),
	RunE: runAssetsCustomize,
}

func init() {
	assetsListCmd.Flags().BoolVar(&assetsJSON, "json", false, "Output as JSON")
	assetsListCmd.Flags().BoolVar(&assetsTable, "table", false, "Output as a table")
	assetsWhichCmd.Flags().BoolVar(&assetsJSON, "json", false, "Output as JSON")

	assetsCustomizeCmd.Flags().BoolVar(&customizeLocal, "local", false, "Copy into the local tier")
	assetsCustomizeCmd.Flags().BoolVar(&customizeProject, "project", false, "Copy into the project tier")
	assetsCustomizeCmd.Flags().BoolVar(&customizeGlobal, "global", false, "Copy into the global tier")

	assetsCmd.AddCommand(assetsListCmd)
	assetsCmd.AddCommand(assetsWhichCmd)
	assetsCmd.AddCommand(assetsShowCmd)
	assetsCmd.AddCommand(assetsCustomizeCmd)
}

func runAssetsList(cmd *cobra.Command, args []string) error {
	if assetsJSON && assetsTable {
		return errors.New("--json and --table are mutually exclusive")
	}

	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	index, err := env.resolver.ListAll()
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}
	if len(args) == 1 {
		index = index.Filter(args[0])
	}

	out := cmd.OutOrStdout()
	switch {
	case assetsJSON:
		return writeJSON(out, index.Entries())
	case assetsTable:
		fmt.Fprintln(out, assetsTableView(index))
	default:
		printAssetList(out, index)
	}
	return nil
}

func printAssetList(out io.Writer, index assets.Index) {
	if len(index) == 0 {
		fmt.Fprintln(out, "No assets found.")
		return
	}
	for _, a := range index.Entries() {
		fmt.Fprintf(out, "%-8s %s\n", a.Tier, a.Path)
	}
}

func assetsTableView(index assets.Index) string {
	rows := make([][]string, 0, len(index))
	for _, a := range index.Entries() {
		rows = append(rows, []string{a.Path, a.Tier.String(), defaults.Describe(a.Path), a.Location})
	}
	return renderTable([]string{"ASSET", "TIER", "DESCRIPTION", "LOCATION"}, rows)
}

func runAssetsWhich(cmd *cobra.Command, args []string) error {
	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	hit, err := env.resolver.Which(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if assetsJSON {
		return writeJSON(out, hit)
	}
	fmt.Fprintln(out, hit.Location)
	return nil
}

func runAssetsShow(cmd *cobra.Command, args []string) error {
	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	asset, err := env.resolver.Resolve(args[0])
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(asset.Content)
	return err
}

// selectCustomizeTier maps the tier flags to a target level. Without a flag
// the local tier is used, or the project tier in stealth mode.
func selectCustomizeTier(local, projectFlag, global bool, mode project.Mode) (assets.Level, error) {
	var levels []assets.Level
	if local {
		levels = append(levels, assets.LevelLocal)
	}
	if projectFlag {
		levels = append(levels, assets.LevelProject)
	}
	if global {
		levels = append(levels, assets.LevelGlobal)
	}

	switch len(levels) {
	case 0:
		if mode == project.ModeStealth {
			return assets.LevelProject, nil
		}
		return assets.LevelLocal, nil
	case 1:
		return levels[0], nil
	default:
		return 0, fmt.Errorf("only one of --local, --project or --global may be given")
	}
}

func runAssetsCustomize(cmd *cobra.Command, args []string) error {
	env, err := loadEnv("")
	if err != nil {
		return err
	}
	defer env.Close()

	target, err := selectCustomizeTier(customizeLocal, customizeProject, customizeGlobal, env.layout.Mode)
	if err != nil {
		return err
	}

	before, err := env.resolver.Which(args[0])
	if err != nil {
		return err
	}

	copied, err := env.resolver.Customize(args[0], target)
	if err != nil {
		if errors.Is(err, assets.ErrTierUnavailable) && target == assets.LevelLocal {
			return fmt.Errorf("%w (use --project in stealth mode)", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if before.Location == copied.Location {
		printStatus(out, "⚠", fmt.Sprintf("%s is already customized in the %s tier", copied.Path, target), color.FgYellow)
	} else {
		printStatus(out, "✓", fmt.Sprintf("Copied %s from the %s tier", copied.Path, before.Tier), color.FgGreen)
	}
	if before.Tier < target {
		env.logger.Warn(log.CatAssets, "customized copy is shadowed", "path", copied.Path, "by", before.Tier)
		printStatus(out, "⚠", fmt.Sprintf("The %s tier copy still wins: %s", before.Tier, before.Location), color.FgYellow)
	}
	fmt.Fprintf(out, "  Edit: %s\n", copied.Location)
	return nil
}
