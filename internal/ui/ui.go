// Package ui provides terminal output helpers for the keydex CLI: styled
// text, bulk-indexing progress, and index status rendering.
//
// Styling is downgraded automatically: plain output is used for pipes,
// CI environments, and NO_COLOR sessions.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether the NO_COLOR convention is in effect.
func DetectNoColor() bool {
	return os.Getenv("NO_COLOR") != ""
}

// DetectCI reports whether the process appears to run under a CI system.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// UsePlain decides whether output to w should skip styling and progress
// animation. forcePlain wins unconditionally; otherwise pipes and CI runs
// get plain output.
func UsePlain(w io.Writer, forcePlain bool) bool {
	if forcePlain {
		return true
	}
	if !IsTTY(w) {
		return true
	}
	return DetectCI()
}
