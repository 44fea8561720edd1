// Package corpus scans configured directories for timestamp-named Markdown
// documents and produces a deterministic, totally ordered corpus.
package corpus

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// timestampName matches basenames like "1700000000_notes.md": a 10-digit
// unix-seconds prefix, an underscore, and a non-empty suffix.
var timestampName = regexp.MustCompile(`^(\d{10})_.+\.md$`)

// Document is one ingested unit of the corpus. Immutable after scanning.
type Document struct {
	Timestamp int64  // unix seconds parsed from the filename prefix
	RelPath   string // repo-relative, forward-slash normalized
	Name      string // basename
	RawText   string // full decoded content
}

// Time returns the document timestamp as UTC.
func (d Document) Time() time.Time {
	return time.Unix(d.Timestamp, 0).UTC()
}

// ResolveSourceDirs resolves configured directories against the repo root,
// preferring root-relative paths and falling back to the literal path.
// Directories that do not exist are dropped.
func ResolveSourceDirs(root string, dirs []string) []string {
	resolved := make([]string, 0, len(dirs))
	for _, d := range dirs {
		p := filepath.Join(root, filepath.FromSlash(d))
		if _, err := os.Stat(p); err != nil {
			if home, herr := os.UserHomeDir(); herr == nil && strings.HasPrefix(d, "~") {
				d = filepath.Join(home, strings.TrimPrefix(d, "~"))
			}
			abs, aerr := filepath.Abs(d)
			if aerr != nil {
				continue
			}
			p = abs
		}
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			continue
		}
		resolved = append(resolved, p)
	}
	return resolved
}

// Scan walks the given directories recursively and returns every document
// whose basename matches the timestamp pattern, sorted by (timestamp,
// relative path). Unreadable directories and files are skipped; content that
// is not valid UTF-8 is decoded lossily. An empty result is a valid corpus.
func Scan(root string, dirs []string) []Document {
	var docs []Document
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				if entry != nil && entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			doc, ok := parseDocument(root, path)
			if !ok {
				return nil
			}
			docs = append(docs, doc)
			return nil
		})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Timestamp != docs[j].Timestamp {
			return docs[i].Timestamp < docs[j].Timestamp
		}
		return docs[i].RelPath < docs[j].RelPath
	})
	return docs
}

// parseDocument reads one candidate file. Returns false when the name does
// not match the pattern or the file cannot be read at all.
func parseDocument(root, path string) (Document, bool) {
	name := filepath.Base(path)
	m := timestampName.FindStringSubmatch(name)
	if m == nil {
		return Document{}, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Document{}, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, false
	}
	// Lossy fallback: one bad file must never abort the scan.
	content := strings.ToValidUTF8(string(raw), "�")

	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	return Document{
		Timestamp: ts,
		RelPath:   filepath.ToSlash(rel),
		Name:      name,
		RawText:   content,
	}, true
}
