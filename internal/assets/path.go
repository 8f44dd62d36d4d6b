package assets

import (
	"path"
	"path/filepath"
	"strings"
)

// ValidatePath checks an asset identifier and returns its clean slash form.
// Identifiers must be relative, must not contain ".." segments, backslashes
// or NUL bytes, and must name something below the tier root.
func ValidatePath(assetPath string) (string, error) {
	invalid := func(reason string) (string, error) {
		return "", &InvalidPathError{Path: assetPath, Reason: reason}
	}

	if strings.TrimSpace(assetPath) == "" {
		return invalid("empty path")
	}
	if strings.ContainsRune(assetPath, 0) {
		return invalid("contains NUL byte")
	}
	if strings.Contains(assetPath, `\`) {
		return invalid("contains backslash")
	}
	if path.IsAbs(assetPath) || filepath.IsAbs(assetPath) || filepath.VolumeName(assetPath) != "" {
		return invalid("absolute path")
	}
	for _, seg := range strings.Split(assetPath, "/") {
		if seg == ".." {
			return invalid("path traversal")
		}
	}

	clean := path.Clean(assetPath)
	if clean == "." {
		return invalid("path names the tier root")
	}
	return clean, nil
}
