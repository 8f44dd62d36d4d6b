// Package assets resolves customizable assets (prompts and templates)
// against an ordered list of storage tiers.
//
// Resolution order (highest precedence first):
//  1. Local   - <repo>/.jiro-dreams-of-code/assets/
//  2. Project - ~/.jiro-dreams-of-code/<project>/assets/
//  3. Global  - ~/.jiro-dreams-of-code/assets/
//  4. Package - defaults bundled with jiro
//
// The first tier holding a file wins outright; contents are never merged.
// The resolver does not discover tier roots itself: callers build the tier
// list (see internal/project) and pass it to New.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/afero"

	"github.com/ShayCichocki/jiro/internal/log"
)

// ResolvedAsset is the outcome of a lookup.
// Content is only populated by Resolve and Customize.
type ResolvedAsset struct {
	Path     string `json:"path"`
	Tier     Level  `json:"tier"`
	Location string `json:"location"`
	Content  []byte `json:"-"`
}

// Index maps every asset identifier seen in any tier to its winning asset.
type Index map[string]ResolvedAsset

// Paths returns the identifiers in lexicographic order.
func (ix Index) Paths() []string {
	paths := make([]string, 0, len(ix))
	for p := range ix {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns the winning assets ordered by identifier.
func (ix Index) Entries() []ResolvedAsset {
	entries := make([]ResolvedAsset, 0, len(ix))
	for _, p := range ix.Paths() {
		entries = append(entries, ix[p])
	}
	return entries
}

// Resolver looks up assets across a fixed list of four tiers.
// It holds no mutable state; every call inspects the tiers afresh.
type Resolver struct {
	fs     afero.Fs
	tiers  [tierCount]Tier
	logger *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a debug logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a resolver over fsys. tiers must hold exactly one tier per
// level, ordered Local, Project, Global, Package, and the Package tier must
// have a root. Roots are made absolute.
func New(fsys afero.Fs, tiers []Tier, opts ...Option) (*Resolver, error) {
	if fsys == nil {
		return nil, errors.New("assets: nil file system")
	}
	if len(tiers) != tierCount {
		return nil, fmt.Errorf("assets: expected %d tiers, got %d", tierCount, len(tiers))
	}

	r := &Resolver{fs: fsys}
	for i, t := range tiers {
		if t.Level != Level(i) {
			return nil, fmt.Errorf("assets: tier %d has level %s, want %s", i, t.Level, Level(i))
		}
		if t.Root != "" {
			abs, err := filepath.Abs(t.Root)
			if err != nil {
				return nil, fmt.Errorf("assets: resolve %s tier root: %w", t.Level, err)
			}
			t.Root = abs
		}
		r.tiers[i] = t
	}
	if !r.tiers[LevelPackage].Enabled() {
		return nil, errors.New("assets: package tier requires a root")
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Tiers reports every tier with its current accessibility.
func (r *Resolver) Tiers() ([]TierStatus, error) {
	statuses := make([]TierStatus, 0, tierCount)
	for _, t := range r.tiers {
		exists, err := r.tierExists(t)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, TierStatus{Tier: t, Exists: exists})
	}
	return statuses, nil
}

// Resolve returns the content of the highest-precedence file for assetPath.
func (r *Resolver) Resolve(assetPath string) (ResolvedAsset, error) {
	hit, err := r.Which(assetPath)
	if err != nil {
		return ResolvedAsset{}, err
	}

	content, err := afero.ReadFile(r.fs, hit.Location)
	if err != nil {
		return ResolvedAsset{}, fmt.Errorf("read %s from %s tier: %w", hit.Path, hit.Tier, err)
	}
	hit.Content = content

	r.logger.Debug(log.CatAssets, "resolved asset", "path", hit.Path, "tier", hit.Tier, "bytes", len(content))
	return hit, nil
}

// Which returns the location Resolve would read, without reading it.
func (r *Resolver) Which(assetPath string) (ResolvedAsset, error) {
	rel, err := ValidatePath(assetPath)
	if err != nil {
		return ResolvedAsset{}, err
	}

	var searched []Level
	for _, t := range r.tiers {
		exists, err := r.tierExists(t)
		if err != nil {
			return ResolvedAsset{}, err
		}
		if !exists {
			continue
		}
		searched = append(searched, t.Level)

		loc := filepath.Join(t.Root, filepath.FromSlash(rel))
		info, err := r.fs.Stat(loc)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return ResolvedAsset{}, fmt.Errorf("stat %s in %s tier: %w", rel, t.Level, err)
		}
		if info.IsDir() {
			continue
		}

		return ResolvedAsset{Path: rel, Tier: t.Level, Location: loc}, nil
	}

	return ResolvedAsset{}, &AssetNotFoundError{Path: rel, Searched: searched}
}

// ListAll walks every tier from lowest to highest precedence and returns the
// winning asset for every identifier found in any of them.
func (r *Resolver) ListAll() (Index, error) {
	index := make(Index)

	for i := tierCount - 1; i >= 0; i-- {
		t := r.tiers[i]
		exists, err := r.tierExists(t)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		root, err := r.fs.Stat(t.Root)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %s tier root: %w", t.Level, err)
		}
		err = r.walkTier(t.Root, []os.FileInfo{root}, func(p string) error {
			rel, err := filepath.Rel(t.Root, p)
			if err != nil {
				return err
			}
			key := filepath.ToSlash(rel)
			index[key] = ResolvedAsset{Path: key, Tier: t.Level, Location: p}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s tier: %w", t.Level, err)
		}
	}

	r.logger.Debug(log.CatAssets, "listed assets", "count", len(index))
	return index, nil
}

// walkTier calls fn for every regular file below dir in lexical order.
// Symlinks are followed the way Stat follows them in Which, so a linked
// file or directory lists exactly what resolution would find. A directory
// already on the current path is skipped to break link cycles.
func (r *Resolver) walkTier(dir string, ancestors []os.FileInfo, fn func(p string) error) error {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		info := entry
		if entry.Mode()&os.ModeSymlink != 0 {
			target, err := r.fs.Stat(p)
			if err != nil {
				if isNotExist(err) {
					// Dangling link
					continue
				}
				return err
			}
			info = target
		}

		switch {
		case info.IsDir():
			if onPath(info, ancestors) {
				continue
			}
			if err := r.walkTier(p, append(ancestors, info), fn); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := fn(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func onPath(dir os.FileInfo, ancestors []os.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(dir, a) {
			return true
		}
	}
	return false
}

// Customize copies the currently winning content of assetPath into the
// target tier so it can be edited there. An existing override at the target
// is overwritten.
func (r *Resolver) Customize(assetPath string, target Level) (ResolvedAsset, error) {
	rel, err := ValidatePath(assetPath)
	if err != nil {
		return ResolvedAsset{}, err
	}

	if !target.Valid() {
		return ResolvedAsset{}, &TierUnavailableError{Tier: target, Reason: "unknown tier"}
	}
	t := r.tiers[target]
	switch {
	case t.Level == LevelPackage:
		return ResolvedAsset{}, &TierUnavailableError{Tier: target, Reason: "package defaults are read-only"}
	case !t.Enabled():
		return ResolvedAsset{}, &TierUnavailableError{Tier: target, Reason: "tier is disabled in this mode"}
	}

	src, err := r.Resolve(rel)
	if err != nil {
		return ResolvedAsset{}, err
	}

	dest := filepath.Join(t.Root, filepath.FromSlash(rel))
	out := ResolvedAsset{Path: rel, Tier: target, Location: dest, Content: src.Content}
	if src.Location == dest {
		return out, nil
	}

	if err := r.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return ResolvedAsset{}, fmt.Errorf("create %s tier directory: %w", target, err)
	}
	if err := afero.WriteFile(r.fs, dest, src.Content, 0644); err != nil {
		return ResolvedAsset{}, fmt.Errorf("write %s to %s tier: %w", rel, target, err)
	}

	r.logger.Info(log.CatAssets, "customized asset", "path", rel, "from", src.Tier, "to", target)
	return out, nil
}

// tierExists reports whether a tier's root is an accessible directory.
// The package tier always exists.
func (r *Resolver) tierExists(t Tier) (bool, error) {
	if t.Level == LevelPackage {
		return true, nil
	}
	if !t.Enabled() {
		return false, nil
	}

	info, err := r.fs.Stat(t.Root)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s tier root: %w", t.Level, err)
	}
	return info.IsDir(), nil
}

// isNotExist treats a missing file and a file standing in for a parent
// directory the same way: the asset is simply not in that tier.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
