// Package report holds the durable per-document result model and the
// crash-safe writers for the summary JSON and Markdown artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/corpus"
)

// Provider identifies the oracle backend in persisted metadata.
const Provider = "anthropic"

// CompressionMeta records the outcome of the compression request for one
// document. OK and Error are pointers so "not requested" serializes as null,
// keeping the artifact distinguishable from an explicit false/empty.
type CompressionMeta struct {
	Enabled   bool    `json:"enabled"`
	Requested bool    `json:"requested"`
	OK        *bool   `json:"ok"`
	Error     *string `json:"error"`
}

// GuardMeta records the content-guard outcome for one document.
type GuardMeta struct {
	Enabled       bool     `json:"enabled"`
	Provider      string   `json:"provider"`
	Requested     bool     `json:"requested"`
	Hit           bool     `json:"hit"`
	MatchedTopics []string `json:"matched_topics"`
	Error         *string  `json:"error"`
}

// SummaryRecord is the durable, per-document result. Exactly one record per
// processed document, in corpus order. skipped=true implies an empty summary
// and a guard hit.
type SummaryRecord struct {
	Path        string          `json:"path"`
	Filename    string          `json:"filename"`
	Timestamp   int64           `json:"timestamp"`
	DatetimeUTC string          `json:"datetime_utc"`
	Summary     string          `json:"summary"`
	Compression CompressionMeta `json:"compression"`
	Guard       GuardMeta       `json:"content_guard"`
	Skipped     bool            `json:"skipped"`
}

// CompressionInfo describes the run-level compression settings stamped into
// both JSON artifacts.
type CompressionInfo struct {
	Enabled       bool     `json:"enabled"`
	Provider      string   `json:"provider"`
	ModelAlias    string   `json:"model_alias"`
	ModelResolved string   `json:"model_resolved"`
	MaxChars      int      `json:"max_chars"`
	Principles    []string `json:"principles"`
}

type summaryPayload struct {
	GeneratedAt string           `json:"generated_at"`
	RunID       string           `json:"run_id"`
	SourceDirs  []string         `json:"source_dirs"`
	TotalFiles  int              `json:"total_files"`
	Compression *CompressionInfo `json:"compression,omitempty"`
	Files       []SummaryRecord  `json:"files"`
}

type corpusFile struct {
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Timestamp   int64  `json:"timestamp"`
	DatetimeUTC string `json:"datetime_utc"`
	Content     string `json:"content"`
}

type corpusPayload struct {
	GeneratedAt string           `json:"generated_at"`
	RunID       string           `json:"run_id"`
	SourceDirs  []string         `json:"source_dirs"`
	TotalFiles  int              `json:"total_files"`
	Compression *CompressionInfo `json:"compression,omitempty"`
	Files       []corpusFile     `json:"files"`
}

// Writer persists run output. The JSON artifact is always rewritten as a
// complete snapshot; the Markdown artifact is appended to, except for the
// resume-prefix rewrite at the start of a run.
type Writer struct {
	JSONPath     string
	MarkdownPath string
	Title        string
	SourceDirs   []string
	Compression  *CompressionInfo
	RunID        string

	now func() time.Time
}

// NewWriter builds a Writer for the given artifact paths.
func NewWriter(jsonPath, markdownPath, title, runID string, sourceDirs []string, info *CompressionInfo) *Writer {
	return &Writer{
		JSONPath:     jsonPath,
		MarkdownPath: markdownPath,
		Title:        title,
		SourceDirs:   sourceDirs,
		Compression:  info,
		RunID:        runID,
		now:          time.Now,
	}
}

// WriteSnapshot rewrites the summary JSON artifact as a full, consistent
// snapshot of every record so far.
func (w *Writer) WriteSnapshot(records []SummaryRecord) error {
	payload := summaryPayload{
		GeneratedAt: w.timestamp(),
		RunID:       w.RunID,
		SourceDirs:  w.SourceDirs,
		TotalFiles:  len(records),
		Compression: w.Compression,
		Files:       records,
	}
	return writeJSONFile(w.JSONPath, payload)
}

// RewritePrefix rewrites the Markdown artifact from scratch: the header plus
// one section per already-completed record in [0, upto). Paths and times
// come from the freshly scanned corpus so the rendered file stays consistent
// even when the prior run used different roots.
func (w *Writer) RewritePrefix(docs []corpus.Document, prior []SummaryRecord, upto, total int) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", w.Title)
	fmt.Fprintf(&b, "Generated (UTC): %s\n", w.timestamp())
	fmt.Fprintf(&b, "Total files: %d\n\n", total)
	for i := 0; i < upto && i < len(docs) && i < len(prior); i++ {
		body := strings.TrimSpace(prior[i].Summary)
		if prior[i].Skipped {
			body = ExclusionNote(prior[i].Guard.MatchedTopics)
		}
		b.WriteString(section(docs[i], i, total, body))
	}
	return os.WriteFile(w.MarkdownPath, []byte(b.String()), 0644)
}

// AppendSection appends one document's section to the Markdown artifact.
func (w *Writer) AppendSection(doc corpus.Document, idx, total int, body string) error {
	f, err := os.OpenFile(w.MarkdownPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening markdown artifact: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(section(doc, idx, total, body)); err != nil {
		return fmt.Errorf("appending markdown section: %w", err)
	}
	return nil
}

// WriteCorpusJSON writes the unabridged artifact containing the raw text of
// every document.
func (w *Writer) WriteCorpusJSON(path string, docs []corpus.Document) error {
	files := make([]corpusFile, len(docs))
	for i, d := range docs {
		files[i] = corpusFile{
			Path:        d.RelPath,
			Filename:    d.Name,
			Timestamp:   d.Timestamp,
			DatetimeUTC: d.Time().Format(time.RFC3339),
			Content:     d.RawText,
		}
	}
	payload := corpusPayload{
		GeneratedAt: w.timestamp(),
		RunID:       w.RunID,
		SourceDirs:  w.SourceDirs,
		TotalFiles:  len(docs),
		Compression: w.Compression,
		Files:       files,
	}
	return writeJSONFile(path, payload)
}

// ExclusionNote renders the Markdown placeholder body for a policy-skipped
// document.
func ExclusionNote(topics []string) string {
	label := "restricted topics"
	if len(topics) > 0 {
		label = strings.Join(topics, ", ")
	}
	return fmt.Sprintf("Note: this entry matches restricted topics (%s) and was skipped as configured.", label)
}

// NewRecord builds the invariant part of a record for a document.
func NewRecord(doc corpus.Document) SummaryRecord {
	return SummaryRecord{
		Path:        doc.RelPath,
		Filename:    doc.Name,
		Timestamp:   doc.Timestamp,
		DatetimeUTC: doc.Time().Format(time.RFC3339),
	}
}

// LoadPriorRecords reads the files list of a previously written summary
// artifact. Any failure (missing file, malformed JSON) yields nil: a prior
// run that cannot be read is simply not resumed from.
func LoadPriorRecords(jsonPath string) []SummaryRecord {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil
	}
	var payload struct {
		Files []SummaryRecord `json:"files"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	return payload.Files
}

func (w *Writer) timestamp() string {
	now := w.now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339)
}

func section(doc corpus.Document, idx, total int, body string) string {
	var b strings.Builder
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "## [%d/%d] %s\n\n", idx+1, total, doc.Name)
	fmt.Fprintf(&b, "- Source path: `%s`\n", doc.RelPath)
	fmt.Fprintf(&b, "- Timestamp: `%d`; UTC: `%s`\n\n", doc.Timestamp, doc.Time().Format(time.RFC3339))
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n")
	return b.String()
}

// writeJSONFile overwrites path with an indented, LF-terminated JSON
// document. Non-ASCII stays unescaped, matching the artifact contract.
func writeJSONFile(path string, payload any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
