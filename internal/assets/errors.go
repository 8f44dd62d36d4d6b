package assets

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is. The typed errors below unwrap to them.
var (
	ErrInvalidPath     = errors.New("invalid asset path")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrTierUnavailable = errors.New("tier unavailable")
)

// InvalidPathError reports an identifier that is absolute or escapes its tier root.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid asset path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// AssetNotFoundError reports an asset that no tier contains.
type AssetNotFoundError struct {
	Path     string
	Searched []Level
}

func (e *AssetNotFoundError) Error() string {
	names := make([]string, len(e.Searched))
	for i, l := range e.Searched {
		names[i] = l.String()
	}
	return fmt.Sprintf("asset %q not found (searched: %s)", e.Path, strings.Join(names, ", "))
}

func (e *AssetNotFoundError) Unwrap() error { return ErrAssetNotFound }

// TierUnavailableError reports a customize target that cannot be written.
type TierUnavailableError struct {
	Tier   Level
	Reason string
}

func (e *TierUnavailableError) Error() string {
	return fmt.Sprintf("%s tier unavailable: %s", e.Tier, e.Reason)
}

func (e *TierUnavailableError) Unwrap() error { return ErrTierUnavailable }
