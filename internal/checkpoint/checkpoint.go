// Package checkpoint computes the safe resume position of a run from the
// previously persisted records and the freshly scanned corpus.
package checkpoint

import (
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/corpus"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/oracle"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/report"
)

// Reconcile walks prior records and corpus documents in lock-step and
// returns the resume index in [0, len(docs)]: the length of the longest
// prefix where records align with the corpus on (path, filename) and are not
// flagged with the retry-exhaustion failure signature. A flagged position is
// returned itself so it gets reprocessed.
//
// Pure function; the filesystem never enters here.
func Reconcile(prior []report.SummaryRecord, docs []corpus.Document) int {
	n := len(prior)
	if len(docs) < n {
		n = len(docs)
	}
	for i := 0; i < n; i++ {
		p := prior[i]
		if p.Path != docs[i].RelPath || p.Filename != docs[i].Name {
			return i
		}
		if isExhaustedFailure(p.Compression) {
			return i
		}
	}
	return n
}

// isExhaustedFailure matches the one recoverable failure shape: compression
// was requested, failed, and the recorded error is the oracle's
// empty-response signature (all retries exhausted).
func isExhaustedFailure(meta report.CompressionMeta) bool {
	if !meta.Requested {
		return false
	}
	if meta.OK == nil || *meta.OK {
		return false
	}
	return meta.Error != nil && *meta.Error == oracle.EmptyResponseSignature
}
