package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/corpus"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/oracle"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/report"
)

func doc(path, name string) corpus.Document {
	return corpus.Document{RelPath: path, Name: name}
}

func rec(path, name string) report.SummaryRecord {
	return report.SummaryRecord{Path: path, Filename: name}
}

func failedRec(path, name string) report.SummaryRecord {
	ok := false
	msg := oracle.EmptyResponseSignature
	r := rec(path, name)
	r.Compression = report.CompressionMeta{Enabled: true, Requested: true, OK: &ok, Error: &msg}
	return r
}

func TestReconcile(t *testing.T) {
	a := doc("n/1000000000_a.md", "1000000000_a.md")
	b := doc("n/1000000050_b.md", "1000000050_b.md")
	c := doc("n/1000000100_c.md", "1000000100_c.md")

	ra := rec(a.RelPath, a.Name)
	rb := rec(b.RelPath, b.Name)

	tests := []struct {
		name  string
		prior []report.SummaryRecord
		docs  []corpus.Document
		want  int
	}{
		{"no prior output", nil, []corpus.Document{a, b}, 0},
		{"empty corpus", []report.SummaryRecord{ra}, nil, 0},
		{"full match", []report.SummaryRecord{ra, rb}, []corpus.Document{a, b}, 2},
		{"corpus grew", []report.SummaryRecord{ra, rb}, []corpus.Document{a, b, c}, 2},
		{"corpus shrank", []report.SummaryRecord{ra, rb}, []corpus.Document{a}, 1},
		{"path mismatch at 1", []report.SummaryRecord{ra, rec("other/x.md", b.Name)}, []corpus.Document{a, b}, 1},
		{"filename mismatch at 0", []report.SummaryRecord{rec(a.RelPath, "renamed.md")}, []corpus.Document{a, b}, 0},
		{"exhausted failure resumes at its index", []report.SummaryRecord{ra, failedRec(b.RelPath, b.Name)}, []corpus.Document{a, b, c}, 1},
		{"exhausted failure at 0", []report.SummaryRecord{failedRec(a.RelPath, a.Name)}, []corpus.Document{a, b}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.prior, tt.docs))
		})
	}
}

func TestReconcileIgnoresOtherFailures(t *testing.T) {
	a := doc("n/1000000000_a.md", "1000000000_a.md")
	b := doc("n/1000000050_b.md", "1000000050_b.md")

	// A requested-but-failed record with a different error is a completed
	// position: only the empty-response signature is recoverable.
	ok := false
	otherErr := "invalid request"
	r := rec(a.RelPath, a.Name)
	r.Compression = report.CompressionMeta{Enabled: true, Requested: true, OK: &ok, Error: &otherErr}

	assert.Equal(t, 1, Reconcile([]report.SummaryRecord{r}, []corpus.Document{a, b}))
}

func TestReconcileIgnoresSkippedAndUnrequested(t *testing.T) {
	a := doc("n/1000000000_a.md", "1000000000_a.md")

	okTrue := true
	skipped := rec(a.RelPath, a.Name)
	skipped.Skipped = true
	skipped.Compression = report.CompressionMeta{Enabled: true, Requested: true, OK: &okTrue}
	assert.Equal(t, 1, Reconcile([]report.SummaryRecord{skipped}, []corpus.Document{a}))

	unrequested := rec(a.RelPath, a.Name)
	unrequested.Compression = report.CompressionMeta{Enabled: false}
	assert.Equal(t, 1, Reconcile([]report.SummaryRecord{unrequested}, []corpus.Document{a}))
}
