// Package defaults holds the prompts and templates bundled with jiro.
// They back the package tier of the asset resolver.
package defaults

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// bundled embeds every default asset from the assets directory.
//
//go:embed assets
var bundled embed.FS

const bundleRoot = "assets"

// FS returns the bundled assets with the "assets/" prefix removed.
func FS() fs.FS {
	sub, err := fs.Sub(bundled, bundleRoot)
	if err != nil {
		// bundleRoot is a constant directory inside the embed.
		panic(err)
	}
	return sub
}

// Files returns the slash-separated identifiers of every bundled asset in
// lexicographic order.
func Files() ([]string, error) {
	var files []string
	err := fs.WalkDir(FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk bundled assets: %w", err)
	}
	return files, nil
}

// CacheDir returns the directory the bundled assets of a jiro version are
// materialized into: $XDG_CACHE_HOME/jiro/<version>/assets, falling back to
// the platform cache directory.
func CacheDir(version string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return "", fmt.Errorf("locate cache directory: %w", err)
		}
		base = dir
	}
	if version == "" {
		version = "dev"
	}
	return filepath.Join(base, "jiro", version, bundleRoot), nil
}

// Materialize writes the bundled assets below dir so the resolver can treat
// them like any other tier. Files whose content already matches are left
// alone. It returns the number of files written.
func Materialize(fsys afero.Fs, dir string) (int, error) {
	files, err := Files()
	if err != nil {
		return 0, err
	}

	written := 0
	for _, name := range files {
		want, err := fs.ReadFile(FS(), name)
		if err != nil {
			return written, fmt.Errorf("read bundled %s: %w", name, err)
		}

		dest := filepath.Join(dir, filepath.FromSlash(name))
		have, err := afero.ReadFile(fsys, dest)
		if err == nil && bytes.Equal(have, want) {
			continue
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("read materialized %s: %w", name, err)
		}

		if err := fsys.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return written, fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
		}
		if err := afero.WriteFile(fsys, dest, want, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", dest, err)
		}
		written++
	}
	return written, nil
}

// Verify reports bundled assets that are missing from dir. A package
// directory configured by the user may change contents but should still ship
// every default.
func Verify(fsys afero.Fs, dir string) ([]string, error) {
	files, err := Files()
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range files {
		info, err := fsys.Stat(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, name)
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Describe returns the first heading of a bundled Markdown asset, or "".
func Describe(name string) string {
	if path.Ext(name) != ".md" {
		return ""
	}
	data, err := fs.ReadFile(FS(), name)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
