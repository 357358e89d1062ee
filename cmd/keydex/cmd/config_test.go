package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keydex/keydex/internal/config"
)

func TestConfigInitCmd_CreatesUserConfig(t *testing.T) {
	setupProject(t)

	// When: creating the user config
	output, err := executeCommand(t, nil, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, output, "Created user configuration")

	// Then: the template lands at the XDG location
	data, err := os.ReadFile(config.GetUserConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1")
	assert.Contains(t, string(data), "grace_delay")
}

func TestConfigInitCmd_ExistingWithoutForce(t *testing.T) {
	setupProject(t)
	_, err := executeCommand(t, nil, "config", "init")
	require.NoError(t, err)

	// When: running init again without --force
	output, err := executeCommand(t, nil, "config", "init")

	// Then: the existing file is left alone
	require.NoError(t, err)
	assert.Contains(t, output, "already exists")
}

func TestConfigInitCmd_ForceBacksUpExisting(t *testing.T) {
	setupProject(t)
	_, err := executeCommand(t, nil, "config", "init")
	require.NoError(t, err)

	// Given: local edits to the user config
	custom := "version: 1\nsearch:\n  default_limit: 42\n"
	require.NoError(t, os.WriteFile(config.GetUserConfigPath(), []byte(custom), 0644))

	// When: re-initializing with --force
	output, err := executeCommand(t, nil, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, output, "Backed up existing config")

	// Then: the template replaces the file and a backup holds the edits
	data, err := os.ReadFile(config.GetUserConfigPath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "default_limit: 42")

	backups, err := config.ListUserConfigBackups()
	require.NoError(t, err)
	require.NotEmpty(t, backups)

	backup, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Contains(t, string(backup), "default_limit: 42")
}

func TestConfigInitCmd_Project(t *testing.T) {
	// A bare directory: no .git, no .keydex.yaml yet.
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Chdir(root)

	// When: creating the project config
	output, err := executeCommand(t, nil, "config", "init", "--project")

	require.NoError(t, err)
	assert.Contains(t, output, "Created project configuration")
	assert.FileExists(t, filepath.Join(root, ".keydex.yaml"))

	// And: a second run refuses to overwrite
	output, err = executeCommand(t, nil, "config", "init", "--project")
	require.NoError(t, err)
	assert.Contains(t, output, "already exists")
}

func TestConfigShowCmd_Merged(t *testing.T) {
	root := setupProject(t)
	writeProjectConfig(t, root, "version: 1\nsearch:\n  default_limit: 25\n")

	output, err := executeCommand(t, nil, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, output, "Configuration source: merged")
	assert.Contains(t, output, "default_limit: 25")
}

func TestConfigShowCmd_JSON(t *testing.T) {
	root := setupProject(t)
	writeProjectConfig(t, root, "version: 1\nsearch:\n  default_limit: 25\n")

	output, err := executeCommand(t, nil, "config", "show", "--json")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(output), &cfg))
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestConfigShowCmd_Defaults(t *testing.T) {
	setupProject(t)

	output, err := executeCommand(t, nil, "config", "show", "--source", "defaults")

	require.NoError(t, err)
	assert.Contains(t, output, "defaults (built-in)")
	assert.Contains(t, output, "grace_delay: 30s")
	assert.Contains(t, output, "debounce: 500ms")
}

func TestConfigShowCmd_ProjectSourceMissing(t *testing.T) {
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "xdg"))
	t.Chdir(root)

	output, err := executeCommand(t, nil, "config", "show", "--source", "project")

	require.NoError(t, err)
	assert.Contains(t, output, "No project configuration file found")
}

func TestConfigShowCmd_InvalidSource(t *testing.T) {
	setupProject(t)

	_, err := executeCommand(t, nil, "config", "show", "--source", "bogus")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid source")
}

func TestConfigPathCmd(t *testing.T) {
	setupProject(t)

	output, err := executeCommand(t, nil, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, config.GetUserConfigPath(), strings.TrimSpace(output))
}

func TestConfigRestoreCmd_ListEmpty(t *testing.T) {
	setupProject(t)

	output, err := executeCommand(t, nil, "config", "restore", "--list")

	require.NoError(t, err)
	assert.Contains(t, output, "No backups found")
}

func TestConfigRestoreCmd_RoundTrip(t *testing.T) {
	setupProject(t)
	_, err := executeCommand(t, nil, "config", "init")
	require.NoError(t, err)

	// Given: local edits that get displaced by a forced re-init
	custom := "version: 1\nsearch:\n  default_limit: 42\n"
	require.NoError(t, os.WriteFile(config.GetUserConfigPath(), []byte(custom), 0644))
	_, err = executeCommand(t, nil, "config", "init", "--force")
	require.NoError(t, err)

	// When: restoring the most recent backup
	output, err := executeCommand(t, nil, "config", "restore")

	// Then: the edits are back
	require.NoError(t, err)
	assert.Contains(t, output, "Restored user configuration")

	data, err := os.ReadFile(config.GetUserConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_limit: 42")
}

func TestConfigRestoreCmd_NothingToRestore(t *testing.T) {
	setupProject(t)

	output, err := executeCommand(t, nil, "config", "restore")

	require.NoError(t, err)
	assert.Contains(t, output, "No backups found")
}
