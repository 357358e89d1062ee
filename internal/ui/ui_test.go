package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTTY_BufferIsNotTerminal(t *testing.T) {
	// Given: a plain buffer writer
	var buf bytes.Buffer

	// Then: it is never a terminal
	assert.False(t, IsTTY(&buf))
}

func TestUsePlain_ForcePlainWins(t *testing.T) {
	// Even on a terminal, an explicit plain request is honored.
	var buf bytes.Buffer
	assert.True(t, UsePlain(&buf, true))
}

func TestUsePlain_NonTTYFallsBack(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, UsePlain(&buf, false))
}

func TestDetectNoColor(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		assert.True(t, DetectNoColor())
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv("NO_COLOR", "")
		assert.False(t, DetectNoColor())
	})
}

func TestDetectCI(t *testing.T) {
	t.Run("generic CI variable", func(t *testing.T) {
		t.Setenv("CI", "true")
		assert.True(t, DetectCI())
	})

	t.Run("github actions", func(t *testing.T) {
		t.Setenv("CI", "")
		t.Setenv("GITHUB_ACTIONS", "true")
		assert.True(t, DetectCI())
	})
}
