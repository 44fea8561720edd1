package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chunking constants, both counted in characters (runes), not bytes. Inputs
// above ChunkThreshold go through the two-level map-reduce; each chunk digest
// gets a shorter fixed budget before the reduce call compresses to the
// configured target.
const (
	ChunkThreshold   = 60000
	ChunkDigestChars = 400
)

// singlePrompt builds the one-shot compression prompt: target length,
// lossless and non-repetition directives, symbolic-notation preference, and
// the optional inline exclusion directive.
func singlePrompt(maxChars int, principles, blockedTopics []string) string {
	var b strings.Builder
	b.WriteString("You are given a merged text of multiple documents ordered by timestamp. ")
	b.WriteString("Unless an exclusion topic is hit, compress it into a highly condensed, information-lossless digest:\n")
	writeRules(&b, principles,
		fmt.Sprintf("Output at most %d characters", maxChars),
		"Keep only key facts and conclusions, drop redundancy and restatement",
		"Do not recount documents one by one, do not repeat same-topic content",
		"Prefer symbolic notation where it fits (e.g. →, ⇒, ∵, ∴, ⟺, ∈, ⊆, ∀, ∃, ≈, ≡)",
		"Keep terms, definitions and symbols consistent; compact clauses, semicolons when needed",
	)
	b.WriteString("\n")
	writeExclusionDirective(&b, blockedTopics, "the text")
	b.WriteString("[Merged text]\n")
	return b.String()
}

// chunkPrompt builds the per-chunk map prompt with the shorter budget.
func chunkPrompt(principles, blockedTopics []string) string {
	var b strings.Builder
	b.WriteString("The following is one part of a merged document. ")
	b.WriteString("Unless an exclusion topic is hit, extract its key points without losing information:\n")
	writeRules(&b, principles,
		"De-duplicate, merge related points, no restatement",
		fmt.Sprintf("Output at most %d characters", ChunkDigestChars),
		"Keep terms, definitions and symbols consistent; prefer symbolic notation",
	)
	b.WriteString("\n")
	writeExclusionDirective(&b, blockedTopics, "this part")
	b.WriteString("[Part]\n")
	return b.String()
}

// reducePrompt builds the final reduce prompt over the chunk digests.
func reducePrompt(maxChars int, principles, blockedTopics []string) string {
	var b strings.Builder
	b.WriteString("You are given digests of consecutive parts of one merged document. ")
	b.WriteString("Unless an exclusion topic is hit, condense them into one final digest, as information-lossless as possible:\n")
	writeRules(&b, principles,
		fmt.Sprintf("Output at most %d characters", maxChars),
		"Do not recount part by part; merge related points, de-duplicate",
		"Focus on conclusions and unique information; keep terms, definitions and symbols consistent",
	)
	b.WriteString("\n")
	writeExclusionDirective(&b, blockedTopics, "the digests as a whole")
	b.WriteString("[Part digests]\n")
	return b.String()
}

func writeRules(b *strings.Builder, principles []string, fixed ...string) {
	for _, p := range principles {
		if p = strings.TrimSpace(p); p != "" {
			fmt.Fprintf(b, "- %s;\n", p)
		}
	}
	for _, r := range fixed {
		fmt.Fprintf(b, "- %s;\n", r)
	}
}

// writeExclusionDirective embeds the policy gate into the prompt so one
// round-trip yields either a digest or a structured exclusion verdict.
// A nil topic list means the gate is not requested and nothing is emitted.
func writeExclusionDirective(b *strings.Builder, blockedTopics []string, subject string) {
	if len(blockedTopics) == 0 {
		return
	}
	b.WriteString("[Exclusion rules]\n")
	fmt.Fprintf(b, "- If %s touches any of these topics (a single hit suffices): %s;\n",
		subject, strings.Join(blockedTopics, ", "))
	b.WriteString(`- then do not summarize; output strict JSON only: {"excluded": true, "matched": ["<matched topic wording>"], "reason": "<=60 chars"};` + "\n")
	b.WriteString("- output that JSON alone, with no surrounding prose or code fences.\n\n")
}

// splitChunks cuts text into order-preserving, non-overlapping slices of at
// most size runes. The threshold is a character count, so multi-byte scripts
// chunk at the same point ASCII does.
func splitChunks(text string, size int) []string {
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	chunks := make([]string, 0, len(text)/size+1)
	start, count := 0, 0
	for i := range text {
		if count == size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	chunks = append(chunks, text[start:])
	return chunks
}
