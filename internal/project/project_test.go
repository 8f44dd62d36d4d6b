package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/jiro/internal/assets"
	"github.com/ShayCichocki/jiro/internal/config"
	"github.com/ShayCichocki/jiro/internal/git"
)

// fakeRepo answers repository queries without running git.
type fakeRepo struct {
	url string
	err error
}

func (f fakeRepo) TopLevel() (string, error)        { return "", errors.New("not implemented") }
func (f fakeRepo) RemoteURL(string) (string, error) { return f.url, f.err }

// remote returns an Options.Git that reports url as the origin remote.
func remote(url string, err error) func(string) git.RepoOperations {
	return func(string) git.RepoOperations { return fakeRepo{url: url, err: err} }
}

// newRepo creates a fake repository and an isolated home/cache and returns
// discovery options rooted in it.
func newRepo(t *testing.T, name string) Options {
	t.Helper()
	base := t.TempDir()
	repo := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	return Options{
		WorkDir: repo,
		Home:    filepath.Join(base, "home"),
		Version: "test",
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscover_DefaultsToLocalModeWithRemoteName(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("git@github.com:acme/widgets.git", nil)

	l, store, err := Discover(opts)
	require.NoError(t, err)
	require.NotNil(t, store)

	assert.Equal(t, opts.WorkDir, l.RepoRoot)
	assert.Equal(t, "widgets", l.ProjectName)
	assert.Equal(t, ModeLocal, l.Mode)
	assert.True(t, l.Bundled)
	assert.False(t, l.Initialized())

	assert.Equal(t, filepath.Join(opts.WorkDir, DirName, "assets"), l.TierRoot(assets.LevelLocal))
	assert.Equal(t, filepath.Join(opts.Home, "widgets", "assets"), l.TierRoot(assets.LevelProject))
	assert.Equal(t, filepath.Join(opts.Home, "assets"), l.TierRoot(assets.LevelGlobal))
	assert.FileExists(t, filepath.Join(l.PackageDir, "prompts", "execution_agent.md"))
}

func TestDiscover_FromSubdirectoryFindsRepoRoot(t *testing.T) {
	opts := newRepo(t, "my repo")
	opts.Git = remote("", errors.New("no remote"))
	sub := filepath.Join(opts.WorkDir, "pkg", "deep")
	require.NoError(t, os.MkdirAll(sub, 0755))
	opts.WorkDir = sub

	l, _, err := Discover(opts)
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(filepath.Dir(sub)), l.RepoRoot)
	assert.Equal(t, "my-repo", l.ProjectName)
}

func TestDiscover_ProjectNameFromLocalConfig(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	writeFile(t, filepath.Join(opts.WorkDir, DirName, "config.yaml"), "project:\n  name: gadgets\n")

	l, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, "gadgets", l.ProjectName)
}

func TestDiscover_ExplicitNameWins(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	opts.ProjectName = "my tool"

	l, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, "my-tool", l.ProjectName)

	opts.ProjectName = "///"
	_, _, err = Discover(opts)
	assert.Error(t, err)
}

func TestDiscover_StealthFromProjectConfig(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	writeFile(t, filepath.Join(opts.Home, "widgets", "config.yaml"), "mode: stealth\ncommands:\n  test: make test\n")
	// Ignored in stealth mode.
	writeFile(t, filepath.Join(opts.WorkDir, DirName, "config.yaml"), "commands:\n  test: go test ./...\n")

	l, store, err := Discover(opts)
	require.NoError(t, err)

	assert.Equal(t, ModeStealth, l.Mode)
	assert.Empty(t, l.TierRoot(assets.LevelLocal))
	assert.Empty(t, l.ConfigPaths().Local)
	assert.Equal(t, l.ProjectDir(), l.DataDir())

	v, err := store.Get("commands.test")
	require.NoError(t, err)
	assert.Equal(t, "make test", v.Value)
	assert.Equal(t, config.ScopeProject, v.Scope)
}

func TestDiscover_InvalidModeFails(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("", errors.New("no remote"))
	writeFile(t, filepath.Join(opts.Home, "config.yaml"), "mode: hidden\n")

	_, _, err := Discover(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global config")
}

func TestDiscover_ExplicitPackageDir(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("", errors.New("no remote"))
	pkg := filepath.Join(t.TempDir(), "pkg-assets")
	writeFile(t, filepath.Join(opts.Home, "config.yaml"), "assets:\n  package_dir: "+pkg+"\n")

	l, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, pkg, l.PackageDir)
	assert.False(t, l.Bundled)
}

func TestDiscover_OutsideRepository(t *testing.T) {
	base := t.TempDir()
	work := filepath.Join(base, "scratch")
	require.NoError(t, os.MkdirAll(work, 0755))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))

	l, _, err := Discover(Options{WorkDir: work, Home: filepath.Join(base, "home")})
	require.NoError(t, err)

	assert.False(t, l.InRepo())
	assert.Equal(t, work, l.ProjectRoot())
	assert.Equal(t, "scratch", l.ProjectName)
}

func TestDetectName(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		err    error
		want   string
	}{
		{"https", "https://github.com/acme/widgets.git", nil, "widgets"},
		{"ssh", "git@github.com:acme/widgets.git", nil, "widgets"},
		{"scp without org", "host:widgets", nil, "widgets"},
		{"trailing slash", "https://example.com/acme/widgets/", nil, "widgets"},
		{"no suffix", "https://example.com/acme/widgets", nil, "widgets"},
		{"no remote", "", errors.New("exit status 1"), "fallback-dir"},
		{"empty remote", "", nil, "fallback-dir"},
		{"reserved remote name", "https://github.com/acme/assets.git", nil, "assets-project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := fakeRepo{url: tt.remote, err: tt.err}
			assert.Equal(t, tt.want, DetectName(repo, "/src/fallback-dir"))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my-project", SanitizeName("  my project  "))
	assert.Equal(t, "a.b_c-d", SanitizeName("a.b_c-d"))
	assert.Equal(t, "x-y", SanitizeName("x/../y"))
	assert.Equal(t, "", SanitizeName(".."))

	for _, reserved := range []string{"assets", "Assets", "logs", "config.yaml", " assets "} {
		got := SanitizeName(reserved)
		assert.Equal(t, strings.TrimSpace(reserved)+"-project", got)
	}
	assert.Equal(t, "assets-kit", SanitizeName("assets-kit"))
}

func TestDiscover_ReservedNameStaysOutOfGlobalTier(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("git@github.com:acme/assets.git", nil)
	writeFile(t, filepath.Join(opts.Home, "assets", "prompts", "shared.md"), "global prompt")

	l, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, "assets-project", l.ProjectName)

	global := l.TierRoot(assets.LevelGlobal)
	project := l.TierRoot(assets.LevelProject)
	rel, err := filepath.Rel(global, project)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, ".."), "project tier %s is inside global tier %s", project, global)
	writeFile(t, filepath.Join(project, "prompts", "own.md"), "project prompt")

	r, err := assets.New(afero.NewOsFs(), l.Tiers())
	require.NoError(t, err)
	index, err := r.ListAll()
	require.NoError(t, err)
	require.Contains(t, index, "prompts/shared.md")
	assert.Equal(t, assets.LevelGlobal, index["prompts/shared.md"].Tier)
	require.Contains(t, index, "prompts/own.md")
	assert.Equal(t, assets.LevelProject, index["prompts/own.md"].Tier)
	for _, p := range index.Paths() {
		assert.False(t, strings.HasPrefix(p, "assets/"), "global tier leaked into project tier: %s", p)
	}
}

func TestDiscover_NameSource(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, opts *Options)
		want  NameSource
	}{
		{"option", func(t *testing.T, opts *Options) { opts.ProjectName = "cli" }, NameFromOption},
		{"env", func(t *testing.T, opts *Options) { t.Setenv("JIRO_PROJECT_NAME", "from-env") }, NameFromEnv},
		{"global", func(t *testing.T, opts *Options) {
			writeFile(t, filepath.Join(opts.Home, "config.yaml"), "project:\n  name: shared\n")
		}, NameFromGlobal},
		{"local", func(t *testing.T, opts *Options) {
			writeFile(t, filepath.Join(opts.WorkDir, DirName, "config.yaml"), "project:\n  name: gadgets\n")
		}, NameFromLocal},
		{"repository", func(t *testing.T, opts *Options) {}, NameFromRepo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newRepo(t, "checkout")
			opts.Git = remote("https://example.com/acme/widgets.git", nil)
			tt.setup(t, &opts)

			l, _, err := Discover(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.NameSource)
			assert.Equal(t, tt.want != NameFromOption && tt.want != NameFromLocal, l.NameSource.Persistent())
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("stealth")
	require.NoError(t, err)
	assert.Equal(t, ModeStealth, m)

	_, err = ParseMode("Local ")
	assert.Error(t, err)
}

func TestEnsureDirs(t *testing.T) {
	fsys := afero.NewMemMapFs()
	l := &Layout{WorkDir: "/repo", RepoRoot: "/repo", Home: "/home/jiro", ProjectName: "app", Mode: ModeLocal, PackageDir: "/pkg"}

	created, err := EnsureDirs(fsys, l)
	require.NoError(t, err)
	assert.Contains(t, created, "/repo/"+DirName+"/assets")
	assert.Contains(t, created, "/repo/"+DirName+"/logs")
	assert.Contains(t, created, "/home/jiro/app/assets")
	assert.Contains(t, created, "/home/jiro/assets")
	assert.NotContains(t, created, "/pkg")

	created, err = EnsureDirs(fsys, l)
	require.NoError(t, err)
	assert.Empty(t, created)

	l.Mode = ModeStealth
	created, err = EnsureDirs(fsys, l)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/jiro/app/logs"}, created)
}

func TestSwitchMode_LocalToStealthMovesData(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	localDir := filepath.Join(opts.WorkDir, DirName)
	projectDir := filepath.Join(opts.Home, "widgets")

	writeFile(t, filepath.Join(localDir, "assets", "prompts", "execution_agent.md"), "local prompt")
	writeFile(t, filepath.Join(localDir, "specs", "feature.md"), "spec")
	writeFile(t, filepath.Join(projectDir, "specs", "feature.md"), "stale spec")
	writeFile(t, filepath.Join(localDir, "config.yaml"), "commands:\n  lint: golangci-lint run\n")

	l, store, err := Discover(opts)
	require.NoError(t, err)

	fsys := afero.NewOsFs()
	m, err := SwitchMode(fsys, l, store, ModeStealth)
	require.NoError(t, err)

	assert.True(t, m.Changed())
	assert.ElementsMatch(t, []string{"assets/prompts/execution_agent.md", "specs/feature.md"}, m.Moved)
	assert.Equal(t, []string{"specs/feature.md"}, m.Overwritten)
	assert.Equal(t, []string{"commands.lint"}, m.ConfigKeys)
	assert.NoDirExists(t, localDir)

	data, err := os.ReadFile(filepath.Join(projectDir, "specs", "feature.md"))
	require.NoError(t, err)
	assert.Equal(t, "spec", string(data))

	// The store now reads the stealth scopes.
	assert.Equal(t, ModeStealth, l.Mode)
	assert.Empty(t, store.Paths().Local)
	v, err := store.Get("commands.lint")
	require.NoError(t, err)
	assert.Equal(t, config.ScopeProject, v.Scope)

	// A fresh discovery agrees.
	again, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, ModeStealth, again.Mode)

	// The moved prompt still wins over the bundled default.
	r, err := assets.New(fsys, again.Tiers())
	require.NoError(t, err)
	got, err := r.Resolve("prompts/execution_agent.md")
	require.NoError(t, err)
	assert.Equal(t, assets.LevelProject, got.Tier)
	assert.Equal(t, "local prompt", string(got.Content))
}

func TestSwitchMode_RefusesLocalProjectName(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	localDir := filepath.Join(opts.WorkDir, DirName)
	writeFile(t, filepath.Join(localDir, "config.yaml"), "project:\n  name: gadgets\n")
	writeFile(t, filepath.Join(localDir, "assets", "prompts", "execution_agent.md"), "local prompt")

	l, store, err := Discover(opts)
	require.NoError(t, err)
	require.Equal(t, "gadgets", l.ProjectName)

	m, err := SwitchMode(afero.NewOsFs(), l, store, ModeStealth)
	require.ErrorIs(t, err, ErrNameNotPersistent)
	assert.Contains(t, err.Error(), "JIRO_PROJECT_NAME=gadgets")
	assert.Empty(t, m.Moved)

	// Nothing moved and nothing was recorded.
	assert.FileExists(t, filepath.Join(localDir, "assets", "prompts", "execution_agent.md"))
	assert.NoFileExists(t, filepath.Join(opts.Home, "gadgets", "config.yaml"))
	assert.Equal(t, ModeLocal, l.Mode)

	again, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, "gadgets", again.ProjectName)
	assert.Equal(t, ModeLocal, again.Mode)
}

func TestSwitchMode_ExplicitNameRefused(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	opts.ProjectName = "gadgets"

	l, store, err := Discover(opts)
	require.NoError(t, err)

	_, err = SwitchMode(afero.NewOsFs(), l, store, ModeStealth)
	require.ErrorIs(t, err, ErrNameNotPersistent)
	assert.NoDirExists(t, filepath.Join(opts.Home, "gadgets"))
}

func TestSwitchMode_EnvProjectNameSurvivesStealth(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	localDir := filepath.Join(opts.WorkDir, DirName)
	writeFile(t, filepath.Join(localDir, "config.yaml"), "project:\n  name: gadgets\n")
	writeFile(t, filepath.Join(localDir, "assets", "prompts", "execution_agent.md"), "local prompt")
	t.Setenv("JIRO_PROJECT_NAME", "gadgets")

	l, store, err := Discover(opts)
	require.NoError(t, err)
	require.Equal(t, NameFromEnv, l.NameSource)

	m, err := SwitchMode(afero.NewOsFs(), l, store, ModeStealth)
	require.NoError(t, err)
	assert.NotContains(t, m.ConfigKeys, "project.name")

	again, _, err := Discover(opts)
	require.NoError(t, err)
	assert.Equal(t, "gadgets", again.ProjectName)
	assert.Equal(t, ModeStealth, again.Mode)
	assert.FileExists(t, filepath.Join(again.TierRoot(assets.LevelProject), "prompts", "execution_agent.md"))
}

func TestSwitchMode_StealthToLocal(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)
	writeFile(t, filepath.Join(opts.Home, "widgets", "config.yaml"), "mode: stealth\n")

	l, store, err := Discover(opts)
	require.NoError(t, err)
	require.Equal(t, ModeStealth, l.Mode)

	m, err := SwitchMode(afero.NewOsFs(), l, store, ModeLocal)
	require.NoError(t, err)
	assert.True(t, m.Changed())
	assert.DirExists(t, filepath.Join(opts.WorkDir, DirName, "assets"))
	assert.NotEmpty(t, store.Paths().Local)

	v, err := store.Get("mode")
	require.NoError(t, err)
	assert.Equal(t, "local", v.Value)
}

func TestSwitchMode_SameModeIsNoop(t *testing.T) {
	fsys := afero.NewMemMapFs()
	l := &Layout{WorkDir: "/repo", RepoRoot: "/repo", Home: "/home", ProjectName: "app", Mode: ModeLocal}

	m, err := SwitchMode(fsys, l, nil, ModeLocal)
	require.NoError(t, err)
	assert.False(t, m.Changed())
}

func TestDiscover_ResolveAndCustomizeBundledPrompt(t *testing.T) {
	opts := newRepo(t, "checkout")
	opts.Git = remote("https://example.com/acme/widgets.git", nil)

	l, _, err := Discover(opts)
	require.NoError(t, err)

	fsys := afero.NewOsFs()
	r, err := assets.New(fsys, l.Tiers())
	require.NoError(t, err)

	got, err := r.Resolve("prompts/execution_agent.md")
	require.NoError(t, err)
	assert.Equal(t, assets.LevelPackage, got.Tier)
	assert.Contains(t, string(got.Content), "# Execution Agent")

	copied, err := r.Customize("prompts/execution_agent.md", assets.LevelLocal)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.WorkDir, DirName, "assets", "prompts", "execution_agent.md"), copied.Location)

	writeFile(t, copied.Location, "# Execution Agent\ncustomized\n")
	got, err = r.Resolve("prompts/execution_agent.md")
	require.NoError(t, err)
	assert.Equal(t, assets.LevelLocal, got.Tier)
	assert.Contains(t, string(got.Content), "customized")
}
