// Package verdict interprets raw oracle output that may be either a plain
// digest or a structured exclusion object wrapped in prose or code fences.
package verdict

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Pre-compiled patterns; compiling per parse is measurably slower.
var (
	// Matches ```json ... ``` or ``` ... ``` anywhere in the text.
	codeFenceRegex = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")

	// Trailing commas before a closing brace or bracket.
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
)

// Exclusion is the oracle's structured refusal to summarize.
type Exclusion struct {
	Excluded bool     `json:"excluded"`
	Matched  []string `json:"matched"`
	Reason   string   `json:"reason"`
}

// Kind discriminates the two possible interpretations of oracle output.
type Kind int

const (
	// Text means the output is an ordinary digest.
	Text Kind = iota
	// Excluded means the output is a well-formed exclusion verdict.
	Excluded
)

// Outcome is the typed result of interpreting one oracle response.
type Outcome struct {
	Kind      Kind
	Text      string
	Exclusion Exclusion
}

// ParseExclusionOrText classifies a raw oracle response. Anything that is
// not a well-formed exclusion object, malformed JSON included, falls through
// as digest text so a parse failure can never block processing.
func ParseExclusionOrText(raw string) Outcome {
	s := strings.TrimSpace(raw)
	if ex, ok := parseExclusion(s); ok {
		return Outcome{Kind: Excluded, Exclusion: ex}
	}
	return Outcome{Kind: Text, Text: s}
}

// parseExclusion tries progressively more forgiving readings of the input:
// the text as-is, with code fences stripped, then the first balanced object
// span. An object with excluded=false is not a verdict.
func parseExclusion(s string) (Exclusion, bool) {
	if s == "" {
		return Exclusion{}, false
	}
	unfenced := stripCodeFences(s)
	for _, candidate := range []string{s, unfenced, FirstJSONObject(unfenced)} {
		if candidate == "" {
			continue
		}
		candidate = trailingCommaRegex.ReplaceAllString(candidate, "$1")
		var ex Exclusion
		if err := json.Unmarshal([]byte(candidate), &ex); err != nil {
			continue
		}
		if !ex.Excluded {
			slog.Debug("parsed JSON is not an exclusion verdict", "candidate", truncate(candidate, 100))
			continue
		}
		ex.Matched = CleanTopics(ex.Matched)
		ex.Reason = strings.TrimSpace(ex.Reason)
		return ex, true
	}
	return Exclusion{}, false
}

// FirstJSONObject returns the first balanced {...} span in s, or "" when no
// balanced object exists. The scan is string-aware so braces inside JSON
// string values do not confuse the nesting count.
func FirstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// CleanTopics trims, drops empties, de-duplicates and sorts a topic list.
func CleanTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func stripCodeFences(s string) string {
	cleaned := codeFenceRegex.ReplaceAllString(s, "$1")
	cleaned = strings.TrimSpace(cleaned)
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") && len(cleaned) > 1 {
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "`"), "`")
	}
	return strings.TrimSpace(cleaned)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
