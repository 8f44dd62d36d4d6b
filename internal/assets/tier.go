package assets

import (
	"fmt"
	"strings"
)

// Level is the precedence rank of a tier. Lower levels win.
type Level int

const (
	// LevelLocal holds overrides in the project's working tree.
	LevelLocal Level = iota
	// LevelProject holds per-project overrides under the home namespace.
	LevelProject
	// LevelGlobal holds user-wide overrides.
	LevelGlobal
	// LevelPackage holds the defaults shipped with jiro. It is read-only.
	LevelPackage
)

// tierCount is the fixed number of tiers a resolver searches.
const tierCount = 4

// Levels returns every level in precedence order.
func Levels() []Level {
	return []Level{LevelLocal, LevelProject, LevelGlobal, LevelPackage}
}

func (l Level) String() string {
	switch l {
	case LevelLocal:
		return "local"
	case LevelProject:
		return "project"
	case LevelGlobal:
		return "global"
	case LevelPackage:
		return "package"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid returns true if the level names one of the four tiers.
func (l Level) Valid() bool {
	return l >= LevelLocal && l <= LevelPackage
}

// ParseLevel converts a tier name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local":
		return LevelLocal, nil
	case "project":
		return LevelProject, nil
	case "global":
		return LevelGlobal, nil
	case "package":
		return LevelPackage, nil
	default:
		return 0, fmt.Errorf("unknown tier %q", s)
	}
}

// MarshalText encodes the level as its tier name.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid tier level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a tier name.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Tier is one ranked storage location. Assets live at Root/<asset path>.
// An empty Root disables the tier: it is never searched and never written.
type Tier struct {
	Level Level
	Root  string
}

// Enabled returns true if the tier has a root to search.
func (t Tier) Enabled() bool {
	return t.Root != ""
}

// Writable returns true if customize may copy assets into the tier.
func (t Tier) Writable() bool {
	return t.Enabled() && t.Level != LevelPackage
}

// TierStatus is a tier together with its accessibility at the time of the call.
type TierStatus struct {
	Tier
	Exists bool
}
