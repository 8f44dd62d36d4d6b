// Package project discovers where jiro keeps its data for the current
// working directory: the repository root, the project name, the storage
// mode and, from those, the asset tier roots and config scope files.
//
// Discovery is the only place that consults the process environment; the
// resulting Layout is passed explicitly to the asset resolver and config
// store.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ShayCichocki/jiro/internal/assets"
	"github.com/ShayCichocki/jiro/internal/config"
	"github.com/ShayCichocki/jiro/internal/defaults"
	"github.com/ShayCichocki/jiro/internal/git"
	"github.com/ShayCichocki/jiro/internal/log"
)

// DirName is the name of jiro's data directory, both in the working tree
// and in the home directory.
const DirName = ".jiro-dreams-of-code"

// Mode selects where project data lives.
type Mode string

const (
	// ModeLocal keeps project data in <repo>/.jiro-dreams-of-code.
	ModeLocal Mode = "local"
	// ModeStealth keeps project data in ~/.jiro-dreams-of-code/<project>
	// and leaves the working tree untouched.
	ModeStealth Mode = "stealth"
)

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLocal:
		return ModeLocal, nil
	case ModeStealth:
		return ModeStealth, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want local or stealth)", s)
	}
}

// NameSource records where the project name came from.
type NameSource string

const (
	NameFromOption    NameSource = "option"
	NameFromEnv       NameSource = "env"
	NameFromGlobal    NameSource = "global"
	NameFromLocal     NameSource = "local"
	NameFromRepo      NameSource = "repository"
	NameFromDirectory NameSource = "directory"
	NameFromDefault   NameSource = "default"
)

// Persistent returns true if every later invocation from the same working
// tree finds the name again regardless of mode.
func (s NameSource) Persistent() bool {
	return s != NameFromOption && s != NameFromLocal
}

// ErrNameNotPersistent is returned when switching to stealth mode would
// lose the project name and with it the project namespace.
var ErrNameNotPersistent = errors.New("project name would not survive the switch to stealth mode")

// HomeDir returns the home namespace: $JIRO_HOME if set, otherwise
// ~/.jiro-dreams-of-code.
func HomeDir() (string, error) {
	if dir := os.Getenv("JIRO_HOME"); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Layout is the result of discovery.
type Layout struct {
	WorkDir     string
	RepoRoot    string // empty outside a git repository
	Home        string
	ProjectName string
	NameSource  NameSource
	Mode        Mode
	PackageDir  string
	// Bundled is true when PackageDir holds the materialized bundled defaults.
	Bundled bool
}

// InRepo returns true if the working directory is inside a git repository.
func (l *Layout) InRepo() bool {
	return l.RepoRoot != ""
}

// ProjectRoot is the repository root, or the working directory outside a repository.
func (l *Layout) ProjectRoot() string {
	if l.RepoRoot != "" {
		return l.RepoRoot
	}
	return l.WorkDir
}

// LocalDir is the data directory inside the working tree.
func (l *Layout) LocalDir() string {
	return filepath.Join(l.ProjectRoot(), DirName)
}

// ProjectDir is the project's namespace under the home directory.
func (l *Layout) ProjectDir() string {
	return filepath.Join(l.Home, l.ProjectName)
}

// DataDir is where the current mode keeps project data (logs, specs).
func (l *Layout) DataDir() string {
	if l.Mode == ModeStealth {
		return l.ProjectDir()
	}
	return l.LocalDir()
}

// Initialized returns true if the data directory for the current mode exists.
func (l *Layout) Initialized() bool {
	info, err := os.Stat(l.DataDir())
	return err == nil && info.IsDir()
}

// ConfigPaths returns the config file of each scope. Stealth mode has no
// local scope.
func (l *Layout) ConfigPaths() config.Paths {
	paths := config.Paths{
		Global:  filepath.Join(l.Home, "config.yaml"),
		Project: filepath.Join(l.ProjectDir(), "config.yaml"),
	}
	if l.Mode != ModeStealth {
		paths.Local = filepath.Join(l.LocalDir(), "config.yaml")
	}
	return paths
}

// TierRoot returns the asset root of a tier, or "" when the tier is disabled.
func (l *Layout) TierRoot(level assets.Level) string {
	switch level {
	case assets.LevelLocal:
		if l.Mode == ModeStealth {
			return ""
		}
		return filepath.Join(l.LocalDir(), "assets")
	case assets.LevelProject:
		return filepath.Join(l.ProjectDir(), "assets")
	case assets.LevelGlobal:
		return filepath.Join(l.Home, "assets")
	case assets.LevelPackage:
		return l.PackageDir
	default:
		return ""
	}
}

// Tiers builds the resolver's tier list.
func (l *Layout) Tiers() []assets.Tier {
	tiers := make([]assets.Tier, 0, 4)
	for _, level := range assets.Levels() {
		tiers = append(tiers, assets.Tier{Level: level, Root: l.TierRoot(level)})
	}
	return tiers
}

// LogPath returns the debug log location: log.file if configured, otherwise
// <data dir>/logs/jiro-debug.log.
func (l *Layout) LogPath(cfg *config.Config) string {
	if cfg != nil && cfg.Log.File != "" {
		return cfg.Log.File
	}
	return filepath.Join(l.DataDir(), "logs", "jiro-debug.log")
}

// Options controls discovery. Zero values fall back to the process
// environment.
type Options struct {
	WorkDir     string
	Home        string
	ProjectName string
	Version     string
	Fs          afero.Fs
	Logger      *log.Logger
	// Git opens repository queries for a directory. Defaults to the git binary.
	Git func(dir string) git.RepoOperations
}

// Discover locates the project for opts.WorkDir and opens its config store.
func Discover(opts Options) (*Layout, *config.Store, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Git == nil {
		opts.Git = execGit
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("get working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve working directory: %w", err)
	}

	home := opts.Home
	if home == "" {
		if home, err = HomeDir(); err != nil {
			return nil, nil, err
		}
	}

	l := &Layout{WorkDir: workDir, Home: home, Mode: ModeLocal}
	if root, ok := FindRepoRoot(workDir); ok {
		l.RepoRoot = root
	}

	// The project name decides where the project scope lives, so it can only
	// come from the global or local scope.
	pre, err := config.Open(config.Paths{
		Global: filepath.Join(home, "config.yaml"),
		Local:  filepath.Join(l.LocalDir(), "config.yaml"),
	})
	if err != nil {
		return nil, nil, err
	}
	l.ProjectName, l.NameSource, err = projectName(opts, pre, l)
	if err != nil {
		return nil, nil, err
	}

	store, err := config.Open(l.ConfigPaths())
	if err != nil {
		return nil, nil, err
	}
	modeValue, err := store.Get("mode")
	if err != nil {
		return nil, nil, err
	}
	if modeValue.Value != "" {
		if l.Mode, err = ParseMode(modeValue.Value); err != nil {
			return nil, nil, fmt.Errorf("%s config: %w", modeValue.Scope, err)
		}
	}
	if l.Mode == ModeStealth {
		if store, err = config.Open(l.ConfigPaths()); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := store.Config()
	if err != nil {
		return nil, nil, err
	}
	if err := l.locatePackage(opts, cfg); err != nil {
		return nil, nil, err
	}

	opts.Logger.Debug(log.CatProject, "discovered project",
		"name", l.ProjectName, "source", l.NameSource, "mode", l.Mode, "root", l.ProjectRoot(), "package", l.PackageDir)
	return l, store, nil
}

func projectName(opts Options, store *config.Store, l *Layout) (string, NameSource, error) {
	if opts.ProjectName != "" {
		if name := SanitizeName(opts.ProjectName); name != "" {
			return name, NameFromOption, nil
		}
		return "", "", fmt.Errorf("invalid project name %q", opts.ProjectName)
	}

	v, err := store.Get("project.name")
	if err != nil {
		return "", "", err
	}
	if name := SanitizeName(v.Value); name != "" {
		switch v.Scope {
		case config.ScopeEnv:
			return name, NameFromEnv, nil
		case config.ScopeLocal:
			return name, NameFromLocal, nil
		default:
			return name, NameFromGlobal, nil
		}
	}

	if l.InRepo() {
		if name := DetectName(opts.Git(l.RepoRoot), l.RepoRoot); name != "" {
			return name, NameFromRepo, nil
		}
	} else if name := SanitizeName(filepath.Base(l.WorkDir)); name != "" {
		return name, NameFromDirectory, nil
	}
	return "default", NameFromDefault, nil
}

// locatePackage picks the package tier: an explicitly configured directory,
// or the bundled defaults materialized into the version's cache directory.
func (l *Layout) locatePackage(opts Options, cfg *config.Config) error {
	if cfg.Assets.PackageDir != "" {
		dir, err := filepath.Abs(cfg.Assets.PackageDir)
		if err != nil {
			return fmt.Errorf("resolve assets.package_dir: %w", err)
		}
		l.PackageDir = dir
		return nil
	}

	dir, err := defaults.CacheDir(opts.Version)
	if err != nil {
		return err
	}
	n, err := defaults.Materialize(opts.Fs, dir)
	if err != nil {
		return fmt.Errorf("materialize bundled assets: %w", err)
	}
	if n > 0 {
		opts.Logger.Info(log.CatDefaults, "materialized bundled assets", "dir", dir, "files", n)
	}
	l.PackageDir = dir
	l.Bundled = true
	return nil
}
