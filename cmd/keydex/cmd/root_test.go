package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/pkg/keyword"
)

// setupProject moves the test into a fresh temp project and isolates
// user-level state (config, logs) under it. Returns the project root.
func setupProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeProjectConfig(t, root, "version: 1\n")

	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Chdir(root)

	return root
}

// writeProjectConfig writes .keydex.yaml, which also pins the project root.
func writeProjectConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".keydex.yaml"), []byte(content), 0644))
}

// executeCommand runs the CLI with args and returns combined output.
func executeCommand(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// When: executing with --help
	output, err := executeCommand(t, nil, "--help")

	// Then: it should show usage information
	require.NoError(t, err)
	assert.Contains(t, output, "keydex", "Help should mention program name")
	assert.Contains(t, output, "Usage:", "Help should show usage")
	assert.Contains(t, output, "keyword", "Help should describe the keyword index")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	// When: executing with --version
	output, err := executeCommand(t, nil, "--version")

	// Then: it should show the version template
	require.NoError(t, err)
	assert.Contains(t, output, "keydex version", "Version output should use the template")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	var commandNames []string
	for _, subcmd := range cmd.Commands() {
		commandNames = append(commandNames, subcmd.Name())
	}

	for _, name := range []string{"serve", "index", "search", "clear", "stats", "watch", "config", "logs", "version"} {
		assert.Contains(t, commandNames, name, "Should have %s subcommand", name)
	}
}

func TestRootCmd_HasProfilingFlags(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"profile-cpu", "profile-mem", "profile-trace"} {
		flag := cmd.PersistentFlags().Lookup(name)
		assert.NotNil(t, flag, "Should have --%s flag", name)
	}
}

func TestRootCmd_HasDebugFlag(t *testing.T) {
	cmd := NewRootCmd()

	flag := cmd.PersistentFlags().Lookup("debug")
	assert.NotNil(t, flag, "Should have --debug flag")
	assert.Equal(t, "false", flag.DefValue)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", ".keydex", "index"), resolvePath("/work", filepath.Join(".keydex", "index")))

	abs := filepath.Join(string(filepath.Separator), "elsewhere", "index")
	assert.Equal(t, abs, resolvePath("/work", abs))
}

func TestBuildIndex_MemoryWhenPathEmpty(t *testing.T) {
	// Given: a configuration without an index path
	cfg := config.NewConfig()
	cfg.Index.Path = ""

	// When: building the index
	ix, err := buildIndex(cfg, t.TempDir())
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	// Then: it runs in memory
	stats, err := ix.Stats()
	require.NoError(t, err)
	assert.Empty(t, stats.Path)
}

func TestBuildIndex_ResolvesRelativePath(t *testing.T) {
	// Given: the default configuration and a project root
	root := t.TempDir()
	cfg := config.NewConfig()

	// When: building the index and touching the store
	ix, err := buildIndex(cfg, root)
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	stats, err := ix.Stats()
	require.NoError(t, err)

	// Then: the index directory sits under the project's data dir
	assert.Equal(t, filepath.Join(root, ".keydex", "index"), stats.Path)
}

func TestDescribeErr_AddsLockHint(t *testing.T) {
	err := describeErr(keyword.ErrLocked)

	require.Error(t, err)
	assert.ErrorIs(t, err, keyword.ErrLocked)
	assert.Contains(t, err.Error(), "another keydex process")
}

func TestDescribeErr_PassesOthersThrough(t *testing.T) {
	assert.NoError(t, describeErr(nil))
	assert.ErrorIs(t, describeErr(keyword.ErrClosed), keyword.ErrClosed)
}

func TestOpenMetrics_DisabledReturnsNil(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Telemetry.Disabled = true

	metrics, cleanup := openMetrics(cfg, t.TempDir())
	defer cleanup()

	assert.Nil(t, metrics)
}

func TestOpenMetrics_CreatesStore(t *testing.T) {
	root := t.TempDir()
	cfg := config.NewConfig()

	metrics, cleanup := openMetrics(cfg, root)
	require.NotNil(t, metrics)
	cleanup()

	assert.FileExists(t, filepath.Join(root, ".keydex", "telemetry.db"))
}
