package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor decides whether output gets ANSI styling.
// Precedence: NO_COLOR > CLICOLOR_FORCE > CLICOLOR=0 > TTY detection.
func ShouldUseColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" && os.Getenv("CLICOLOR_FORCE") != "0" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	return IsTerminal()
}

// ShouldUseEmoji reports whether icon glyphs are appropriate.
// LASSO_NO_EMOJI disables them; otherwise follows TTY detection.
func ShouldUseEmoji() bool {
	if os.Getenv("LASSO_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}

// IsAgentMode reports whether output is being consumed by a program rather
// than a human. LASSO_AGENT forces it on; piped stdout implies it.
func IsAgentMode() bool {
	if os.Getenv("LASSO_AGENT") != "" {
		return true
	}
	return !IsTerminal()
}
