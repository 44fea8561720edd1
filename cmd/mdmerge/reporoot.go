package main

import (
	"os"
	"path/filepath"
)

// guessRepoRoot ascends from start looking for the repository root.
// Preference order: nearest directory containing .git, else the highest
// directory containing README.md, else the parent when it holds a src
// directory (checkouts without markers), else start itself.
func guessRepoRoot(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	var bestReadme string
	for cur := abs; ; {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur
		}
		if _, err := os.Stat(filepath.Join(cur, "README.md")); err == nil {
			bestReadme = cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	if bestReadme != "" {
		return bestReadme
	}
	if parent := filepath.Dir(abs); parent != abs {
		if info, err := os.Stat(filepath.Join(parent, "src")); err == nil && info.IsDir() {
			return parent
		}
	}
	return start
}
