package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearCmd_Force(t *testing.T) {
	setupProject(t)
	_, err := executeCommand(t, nil, "index", "--words", "alpha", "beta", "gamma")
	require.NoError(t, err)

	// When: clearing without a prompt
	output, err := executeCommand(t, nil, "clear", "--force")

	require.NoError(t, err)
	assert.Contains(t, output, "Removed 3 keywords")

	// Then: the next search sees an empty index
	output, err = executeCommand(t, nil, "search")
	require.NoError(t, err)
	assert.Contains(t, output, "The index is empty")
}

func TestClearCmd_PromptAccepted(t *testing.T) {
	setupProject(t)
	_, err := executeCommand(t, nil, "index", "--words", "alpha")
	require.NoError(t, err)

	output, err := executeCommand(t, strings.NewReader("y\n"), "clear")

	require.NoError(t, err)
	assert.Contains(t, output, "Proceed?")
	assert.Contains(t, output, "Removed 1 keywords")
}

func TestClearCmd_PromptDeclined(t *testing.T) {
	setupProject(t)
	_, err := executeCommand(t, nil, "index", "--words", "alpha")
	require.NoError(t, err)

	// When: answering anything but yes
	output, err := executeCommand(t, strings.NewReader("n\n"), "clear")

	require.NoError(t, err)
	assert.Contains(t, output, "Aborted")

	// Then: the keyword survives
	output, err = executeCommand(t, nil, "search", "alpha")
	require.NoError(t, err)
	assert.Contains(t, output, "Found 1 of 1")
}

func TestClearCmd_EmptyIndex(t *testing.T) {
	setupProject(t)

	output, err := executeCommand(t, nil, "clear")

	require.NoError(t, err)
	assert.Contains(t, output, "already empty")
}
