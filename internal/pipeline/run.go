// Package pipeline drives per-document compression: chunked map-reduce for
// oversized text, the inline policy gate, bounded retries, the per-run
// request quota, and write-through persistence after every document.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/checkpoint"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/config"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/corpus"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/oracle"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/report"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/verdict"
)

// StopReason distinguishes the two normal ways a run ends.
type StopReason int

const (
	// Completed means the corpus was exhausted.
	Completed StopReason = iota
	// QuotaReached means the per-run request ceiling stopped the run after
	// a fully consistent persist. The next run resumes from here.
	QuotaReached
)

// Result summarizes a finished (or quota-stopped) run.
type Result struct {
	Total        int
	ResumeIndex  int
	Processed    int
	RequestsMade int
	Remaining    int
	Stop         StopReason
}

// ExhaustedError reports the document on which the retry budget ran out.
// Everything completed before it is persisted; the process should exit with
// a distinct status so a scheduler retries later.
type ExhaustedError struct {
	Index int
	Name  string
	Err   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted at document %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Runner is the single-threaded orchestrator. Documents are processed
// strictly in corpus order; the persisted record list is always a gapless
// prefix of the corpus.
type Runner struct {
	Config    *config.Config
	Oracle    oracle.Client
	Writer    *report.Writer
	Retry     RetryPolicy
	Limiter   *rate.Limiter
	Progressf func(format string, args ...any)

	requestsMade int
}

// NewRunner wires a Runner with the default retry policy and, when the
// config asks for request pacing, a limiter whose interval also precedes the
// very first call.
func NewRunner(cfg *config.Config, client oracle.Client, writer *report.Writer) *Runner {
	r := &Runner{
		Config: cfg,
		Oracle: client,
		Writer: writer,
		Retry:  DefaultRetryPolicy(),
	}
	if s := cfg.Compression.RequestIntervalSeconds; s > 0 {
		interval := time.Duration(s * float64(time.Second))
		r.Limiter = rate.NewLimiter(rate.Every(interval), 1)
		r.Limiter.Allow() // burn the initial token so call one waits too
	}
	return r
}

// Run reconciles against prior output, rewrites the Markdown prefix, then
// processes the remaining documents one at a time, persisting both artifacts
// after each. It returns a Result for the two normal stops and an error for
// the fatal ones (*ExhaustedError for retry exhaustion).
func (r *Runner) Run(ctx context.Context, docs []corpus.Document, prior []report.SummaryRecord) (*Result, error) {
	total := len(docs)
	resume := checkpoint.Reconcile(prior, docs)

	records := make([]report.SummaryRecord, 0, total)
	for i := 0; i < resume; i++ {
		rec := prior[i]
		// Identity fields are refreshed from the current scan; the prior
		// artifact may predate a directory move.
		base := report.NewRecord(docs[i])
		rec.Path, rec.Filename = base.Path, base.Filename
		rec.Timestamp, rec.DatetimeUTC = base.Timestamp, base.DatetimeUTC
		records = append(records, rec)
	}

	if err := r.Writer.RewritePrefix(docs, records, resume, total); err != nil {
		return nil, err
	}
	if resume > 0 {
		r.progressf("resuming: %d documents already completed", resume)
		if err := r.Writer.WriteSnapshot(records); err != nil {
			return nil, err
		}
	}

	comp := r.Config.Compression
	guardTopics := r.Config.GuardTopics()

	for i := resume; i < total; i++ {
		doc := docs[i]
		r.progressf("[%d/%d] %s", i+1, total, doc.Name)

		rec := report.NewRecord(doc)
		rec.Compression = report.CompressionMeta{Enabled: comp.Enabled}
		rec.Guard = report.GuardMeta{
			Enabled:       comp.ContentGuard.Enabled,
			Provider:      report.Provider,
			MatchedTopics: []string{},
		}

		pure := strings.TrimSpace(doc.RawText)
		var body string

		if comp.Enabled && pure != "" {
			rec.Compression.Requested = true
			rec.Guard.Requested = len(guardTopics) > 0

			outcome, err := r.compressText(ctx, pure, guardTopics)
			if err != nil {
				if oracle.IsRetryable(err) {
					// All retries spent on empty responses. Flag the
					// record so the next run resumes exactly here.
					rec.Compression.OK = boolPtr(false)
					rec.Compression.Error = strPtr(oracle.EmptyResponseSignature)
					records = append(records, rec)
					if werr := r.Writer.WriteSnapshot(records); werr != nil {
						return nil, werr
					}
					return nil, &ExhaustedError{Index: i, Name: doc.Name, Err: err}
				}
				// Terminal failure (credentials, client): waiting will not
				// fix it. Prior documents are already persisted.
				return nil, fmt.Errorf("document %d/%d (%s): %w", i+1, total, doc.Name, err)
			}

			if outcome.Kind == verdict.Excluded {
				rec.Skipped = true
				rec.Compression.OK = boolPtr(true)
				rec.Guard.Hit = true
				rec.Guard.MatchedTopics = outcome.Exclusion.Matched
				body = report.ExclusionNote(outcome.Exclusion.Matched)
			} else {
				rec.Compression.OK = boolPtr(true)
				rec.Summary = outcome.Text
				if rec.Summary == "" {
					rec.Summary = truncateRunes(pure, comp.MaxChars)
				}
				body = rec.Summary
			}
		} else {
			rec.Summary = truncateRunes(pure, comp.MaxChars)
			body = rec.Summary
		}

		if err := r.Writer.AppendSection(doc, i, total, body); err != nil {
			return nil, err
		}
		records = append(records, rec)
		if err := r.Writer.WriteSnapshot(records); err != nil {
			return nil, err
		}

		if comp.Enabled && comp.MaxRequestsPerRun > 0 && r.requestsMade >= comp.MaxRequestsPerRun {
			return &Result{
				Total:        total,
				ResumeIndex:  resume,
				Processed:    i + 1 - resume,
				RequestsMade: r.requestsMade,
				Remaining:    total - (i + 1),
				Stop:         QuotaReached,
			}, nil
		}
	}

	return &Result{
		Total:        total,
		ResumeIndex:  resume,
		Processed:    total - resume,
		RequestsMade: r.requestsMade,
		Stop:         Completed,
	}, nil
}

// compressText runs the single-call path for text at or below the chunk
// threshold and the two-level map-reduce above it. An exclusion verdict from
// any call short-circuits and stands for the whole document.
func (r *Runner) compressText(ctx context.Context, text string, guardTopics []string) (verdict.Outcome, error) {
	comp := r.Config.Compression

	if utf8.RuneCountInString(text) <= ChunkThreshold {
		out, err := r.invoke(ctx, singlePrompt(comp.MaxChars, comp.Principles, guardTopics)+text)
		if err != nil {
			return verdict.Outcome{}, err
		}
		return r.interpret(out, guardTopics), nil
	}

	chunks := splitChunks(text, ChunkThreshold)
	digests := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		r.progressf("  chunk %d/%d", i+1, len(chunks))
		out, err := r.invoke(ctx, chunkPrompt(comp.Principles, guardTopics)+chunk)
		if err != nil {
			return verdict.Outcome{}, err
		}
		o := r.interpret(out, guardTopics)
		if o.Kind == verdict.Excluded {
			return o, nil
		}
		digests = append(digests, o.Text)
	}

	out, err := r.invoke(ctx, reducePrompt(comp.MaxChars, comp.Principles, guardTopics)+strings.Join(digests, "\n"))
	if err != nil {
		return verdict.Outcome{}, err
	}
	return r.interpret(out, guardTopics), nil
}

// invoke performs one rate-limited, retried oracle call. Every round-trip,
// retries included, counts against the per-run request quota; the pacing
// interval applies only before the first attempt.
func (r *Runner) invoke(ctx context.Context, prompt string) (string, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return r.Retry.Do(func() (string, error) {
		r.requestsMade++
		return r.Oracle.Invoke(ctx, prompt)
	})
}

// interpret parses oracle output. Without guard topics the exclusion shape
// is not even looked for; the response is digest text by definition.
func (r *Runner) interpret(raw string, guardTopics []string) verdict.Outcome {
	if len(guardTopics) == 0 {
		return verdict.Outcome{Kind: verdict.Text, Text: strings.TrimSpace(raw)}
	}
	return verdict.ParseExclusionOrText(raw)
}

func (r *Runner) progressf(format string, args ...any) {
	if r.Progressf != nil {
		r.Progressf(format, args...)
	}
}

// truncateRunes is the no-oracle fallback summary: the first max runes of
// the text with a trailing ellipsis when something was cut.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "……"
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
