package repowatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/repowatch/repowatch/internal/config"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func intp(i int) *int { return &i }
func boolp(b bool) *bool { return &b }

func TestPickPrecedence(t *testing.T) {
	assert.Equal(t, "cli", pickString("cli", strp("local"), strp("global")))
	assert.Equal(t, "local", pickString("", strp("local"), strp("global")))
	assert.Equal(t, "global", pickString("", strp(""), strp("global")))
	assert.Equal(t, "", pickString("", nil, nil))

	assert.Equal(t, 4, pickInt(4, intp(2), intp(1)))
	assert.Equal(t, 2, pickInt(0, intp(2), intp(1)))
	assert.Equal(t, 1, pickInt(0, nil, intp(1)))

	assert.True(t, pickBool(true, boolp(false), nil))
	assert.False(t, pickBool(false, boolp(false), boolp(true)))
	assert.True(t, pickBool(false, nil, boolp(true)))
}

func TestRelocate(t *testing.T) {
	tmp := filepath.Join("/tmp", "repowatch-git-123")
	fs := []types.Finding{
		{Rule: "env_file", Path: tmp + "/app/.env", Message: "Environment file " + tmp + "/app/.env is committed"},
		{Rule: "log_file", Path: "/elsewhere/x.log"},
	}
	got := relocate(fs, tmp+"/", "acme/api")
	assert.Equal(t, "acme/api/app/.env", got[0].Path)
	assert.Equal(t, "Environment file acme/api/app/.env is committed", got[0].Message)
	assert.Equal(t, "/elsewhere/x.log", got[1].Path)
	assert.Equal(t, tmp+"/app/.env", fs[0].Path, "input must not be modified")

	assert.Equal(t, fs, relocate(fs, tmp, ""), "local targets keep absolute paths")
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		in      string
		kind    types.SourceKind
		locator string
	}{
		{dir, types.SourceLocal, dir},
		{"image:nginx:1.27", types.SourceImage, "nginx:1.27"},
		{"acme/api", types.SourceGitHub, "acme/api"},
		{"https://github.com/acme/api.git", types.SourceGitHub, "https://github.com/acme/api.git"},
	}
	for _, c := range cases {
		kind, loc := classify(c.in)
		assert.Equal(t, c.kind, kind, c.in)
		assert.Equal(t, c.locator, loc, c.in)
	}
}

func TestResolveSettings(t *testing.T) {
	resetFlags(rootCmd)
	root := t.TempDir()

	st := resolveSettings(root, config.FileConfig{}, config.FileConfig{})
	assert.Equal(t, "text", st.format)
	assert.Equal(t, "medium", st.failOn)
	assert.Equal(t, filepath.Join(root, DefaultIgnoreFile), st.engine.IgnoreFile)

	local := config.FileConfig{Format: strp("table"), Threads: intp(4), IgnoreFile: strp("/etc/ignore")}
	global := config.FileConfig{Format: strp("json"), FailOn: strp("high"), Threads: intp(2)}
	st = resolveSettings(root, global, local)
	assert.Equal(t, "table", st.format)
	assert.Equal(t, "high", st.failOn)
	assert.Equal(t, 4, st.engine.Threads)
	assert.Equal(t, "/etc/ignore", st.engine.IgnoreFile)

	flagSARIF = true
	defer func() { flagSARIF = false }()
	st = resolveSettings(root, global, local)
	assert.Equal(t, "sarif", st.format)
}

func TestResolveSettings_FileRoot(t *testing.T) {
	resetFlags(rootCmd)
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0644))

	st := resolveSettings(file, config.FileConfig{}, config.FileConfig{})
	assert.Empty(t, st.engine.IgnoreFile, "a file root gets no default ignore file")

	st = resolveSettings(file, config.FileConfig{}, config.FileConfig{IgnoreFile: strp("custom.ignore")})
	assert.Equal(t, filepath.Join(dir, "custom.ignore"), st.engine.IgnoreFile)
}
