package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCmd_ArgumentsFormOneDocument(t *testing.T) {
	setupProject(t)

	// When: indexing a sentence given as arguments
	output, err := executeCommand(t, nil, "index", "hello world running")

	// Then: every surviving word is committed
	require.NoError(t, err)
	assert.Contains(t, output, "Indexed 1 document(s)")
	assert.Contains(t, output, "3 keywords at epoch 3")
}

func TestIndexCmd_ThenSearchFindsKeyword(t *testing.T) {
	setupProject(t)

	_, err := executeCommand(t, nil, "index", "hello world")
	require.NoError(t, err)

	// A later invocation reopens the same on-disk index.
	output, err := executeCommand(t, nil, "search", "hello")
	require.NoError(t, err)
	assert.Contains(t, output, "hello")
	assert.Contains(t, output, "Found 1 of 1")
}

func TestIndexCmd_WordsMode(t *testing.T) {
	setupProject(t)

	// When: indexing pre-split words
	output, err := executeCommand(t, nil, "index", "--words", "alpha", "beta")

	// Then: they are committed without tokenization
	require.NoError(t, err)
	assert.Contains(t, output, "2 keywords at epoch 2")
}

func TestIndexCmd_WordsModeRequiresArguments(t *testing.T) {
	setupProject(t)

	_, err := executeCommand(t, nil, "index", "--words")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one word")
}

func TestIndexCmd_ReadsStdin(t *testing.T) {
	setupProject(t)

	// When: piping a document
	output, err := executeCommand(t, strings.NewReader("alpha beta gamma"), "index")

	require.NoError(t, err)
	assert.Contains(t, output, "Indexed 1 document(s)")
	assert.Contains(t, output, "3 keywords")
}

func TestIndexCmd_StopWordsOnlyDocumentIsNoOp(t *testing.T) {
	setupProject(t)

	// When: indexing a document that filtering empties out
	output, err := executeCommand(t, nil, "index", "the and of")

	// Then: nothing is committed and the epoch stays put
	require.NoError(t, err)
	assert.Contains(t, output, "0 keywords at epoch 0")
}

func TestIndexCmd_Files(t *testing.T) {
	root := setupProject(t)

	require.NoError(t, os.WriteFile(filepath.Join(root, "one.txt"), []byte("alpha beta"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "two.txt"), []byte("gamma delta"), 0644))

	// When: indexing both files in --plain mode to keep output stable
	output, err := executeCommand(t, nil, "index", "--plain",
		"--file", filepath.Join(root, "one.txt"),
		"--file", filepath.Join(root, "two.txt"))

	require.NoError(t, err)
	assert.Contains(t, output, "Indexed 2 document(s)")
	assert.Contains(t, output, "4 keywords")
}

func TestIndexCmd_FileNotFound(t *testing.T) {
	setupProject(t)

	_, err := executeCommand(t, nil, "index", "--plain", "--file", "missing.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestIndexCmd_DirHonorsExtensions(t *testing.T) {
	root := setupProject(t)

	docs := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.md"), []byte("beta"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "c.bin"), []byte("gamma"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, ".hidden", "d.txt"), []byte("delta"), 0644))

	// When: indexing the directory
	output, err := executeCommand(t, nil, "index", "--plain", "--dir", docs)

	// Then: only .txt and .md outside hidden directories are indexed
	require.NoError(t, err)
	assert.Contains(t, output, "Indexed 2 document(s)")
	assert.Contains(t, output, "2 keywords")
}

func TestCollectFiles_MergesDirsAndFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.go"), []byte("x"), 0644))

	explicit := filepath.Join(dir, "b.go")
	paths, err := collectFiles([]string{explicit}, []string{dir}, []string{".txt"})
	require.NoError(t, err)

	// Walks filter by extension; explicit files are taken as-is.
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.txt"), explicit}, paths)
}

func TestMatchesExtension(t *testing.T) {
	exts := []string{".txt", ".MD"}

	assert.True(t, matchesExtension("notes.txt", exts))
	assert.True(t, matchesExtension("README.md", exts), "matching is case-insensitive")
	assert.False(t, matchesExtension("main.go", exts))
	assert.False(t, matchesExtension("noext", exts))
}
