package main

import (
	"os"

	"golang.org/x/term"
)

const shortIDLength = 8

// shortID is the display form of an entity ID. Any unique prefix is
// accepted back as a reference.
func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func interactiveTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
