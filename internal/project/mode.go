package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ShayCichocki/jiro/internal/assets"
	"github.com/ShayCichocki/jiro/internal/config"
)

// EnsureDirs creates the data directory for the current mode and the root
// of every writable asset tier. It returns the directories it created.
func EnsureDirs(fsys afero.Fs, l *Layout) ([]string, error) {
	dirs := []string{
		l.DataDir(),
		filepath.Join(l.DataDir(), "logs"),
	}
	for _, level := range []assets.Level{assets.LevelLocal, assets.LevelProject, assets.LevelGlobal} {
		if root := l.TierRoot(level); root != "" {
			dirs = append(dirs, root)
		}
	}

	var created []string
	for _, dir := range dirs {
		exists, err := afero.DirExists(fsys, dir)
		if err != nil {
			return created, fmt.Errorf("stat %s: %w", dir, err)
		}
		if exists {
			continue
		}
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return created, fmt.Errorf("create %s: %w", dir, err)
		}
		created = append(created, dir)
	}
	return created, nil
}

// Migration describes what a mode switch moved.
type Migration struct {
	From        Mode
	To          Mode
	Moved       []string // files copied from the working tree, relative to the data dir
	Overwritten []string // moved files that replaced an existing project file
	ConfigKeys  []string // local config keys folded into the project scope
}

// Changed returns true if the switch did anything.
func (m *Migration) Changed() bool {
	return m.From != m.To
}

// SwitchMode moves project data between the working tree and the home
// namespace and records the new mode in the project config.
//
// local → stealth copies everything under <repo>/.jiro-dreams-of-code into
// ~/.jiro-dreams-of-code/<project> (working-tree files win, matching their
// precedence), folds local config keys into the project scope and removes the
// working-tree directory. stealth → local only creates the working-tree
// directory; project-scope data stays valid in both modes.
//
// Stealth mode cannot read the working tree, so a switch is refused with
// ErrNameNotPersistent while the project name comes from local config or an
// explicit option.
func SwitchMode(fsys afero.Fs, l *Layout, store *config.Store, target Mode) (*Migration, error) {
	m := &Migration{From: l.Mode, To: target}
	if !m.Changed() {
		return m, nil
	}

	switch target {
	case ModeStealth:
		if !l.NameSource.Persistent() {
			origin := "local config"
			if l.NameSource == NameFromOption {
				origin = "the command line"
			}
			return m, fmt.Errorf("%w: %q is set by %s; export JIRO_PROJECT_NAME=%s to keep it",
				ErrNameNotPersistent, l.ProjectName, origin, l.ProjectName)
		}
		if err := moveToStealth(fsys, l, store, m); err != nil {
			return m, err
		}
	case ModeLocal:
		if err := fsys.MkdirAll(filepath.Join(l.LocalDir(), "assets"), 0755); err != nil {
			return m, fmt.Errorf("create local data directory: %w", err)
		}
	default:
		return m, fmt.Errorf("unknown mode %q", target)
	}

	if err := store.Set(config.ScopeProject, "mode", string(target)); err != nil {
		return m, fmt.Errorf("record mode: %w", err)
	}

	l.Mode = target
	if err := rebindStore(store, l); err != nil {
		return m, err
	}
	return m, nil
}

func moveToStealth(fsys afero.Fs, l *Layout, store *config.Store, m *Migration) error {
	src := l.LocalDir()
	dst := l.ProjectDir()
	localConfig := filepath.Join(src, "config.yaml")

	exists, err := afero.DirExists(fsys, src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if exists {
		err = afero.Walk(fsys, src, func(p string, info os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if info.IsDir() || p == localConfig {
				return nil
			}
			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			replaced, err := copyFile(fsys, p, filepath.Join(dst, rel))
			if err != nil {
				return err
			}
			m.Moved = append(m.Moved, filepath.ToSlash(rel))
			if replaced {
				m.Overwritten = append(m.Overwritten, filepath.ToSlash(rel))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("copy working-tree data: %w", err)
		}
	}

	local, err := store.List(config.ScopeLocal)
	if err != nil && !errors.Is(err, config.ErrScopeUnavailable) {
		return err
	}
	for _, v := range local {
		// The project scope lives under the name, so it cannot hold it.
		if v.Key == "mode" || v.Key == "project.name" {
			continue
		}
		if err := store.Set(config.ScopeProject, v.Key, v.Value); err != nil {
			return fmt.Errorf("move config key %s: %w", v.Key, err)
		}
		m.ConfigKeys = append(m.ConfigKeys, v.Key)
	}

	if exists {
		if err := fsys.RemoveAll(src); err != nil {
			return fmt.Errorf("remove %s: %w", src, err)
		}
	}
	return nil
}

// copyFile copies src to dst, creating parent directories. It reports
// whether dst already existed.
func copyFile(fsys afero.Fs, src, dst string) (bool, error) {
	data, err := afero.ReadFile(fsys, src)
	if err != nil {
		return false, err
	}

	replaced := true
	if _, err := fsys.Stat(dst); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		replaced = false
	}

	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, err
	}
	if err := afero.WriteFile(fsys, dst, data, 0644); err != nil {
		return false, err
	}
	return replaced, nil
}

// rebindStore reopens the store on the scope files of the new mode.
func rebindStore(store *config.Store, l *Layout) error {
	rebound, err := config.Open(l.ConfigPaths())
	if err != nil {
		return err
	}
	*store = *rebound
	return nil
}
