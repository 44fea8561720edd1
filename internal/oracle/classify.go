package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/verdict"
)

// TopicVerdict is the result of a standalone topic classification.
type TopicVerdict struct {
	Hit     bool     `json:"hit"`
	Matched []string `json:"matched"`
	Reason  string   `json:"reason"`
}

// ClassifyTopics asks the oracle whether the text touches any of the blocked
// topics, expecting a small JSON object back. It is a pure classification
// round-trip, independent of the inline exclusion directive the compression
// prompts carry; callers that need an idempotent verdict use this.
func ClassifyTopics(ctx context.Context, client Client, text string, blockedTopics []string) (TopicVerdict, error) {
	prompt := classifyPrompt(blockedTopics) + text
	raw, err := client.Invoke(ctx, prompt)
	if err != nil {
		return TopicVerdict{}, err
	}

	candidate := verdict.FirstJSONObject(raw)
	if candidate == "" {
		candidate = strings.TrimSpace(raw)
	}
	var v TopicVerdict
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return TopicVerdict{}, fmt.Errorf("topic check returned non-JSON content: %w", err)
	}
	v.Matched = verdict.CleanTopics(v.Matched)
	v.Reason = strings.TrimSpace(v.Reason)
	return v, nil
}

func classifyPrompt(blockedTopics []string) string {
	var b strings.Builder
	b.WriteString("Decide whether the following text touches any of the listed topics, and output JSON only:\n")
	fmt.Fprintf(&b, "- Target topics: %s\n", strings.Join(blockedTopics, ", "))
	b.WriteString(`- Output format: {"hit": true|false, "matched": [array of strings], "reason": "<=60 chars"}` + "\n")
	b.WriteString("- Rules:\n")
	b.WriteString("  1) hit=true when the text discusses, analyzes or exemplifies any listed topic;\n")
	b.WriteString("  2) matched contains only the exact wording of topics that were hit;\n")
	b.WriteString("  3) no explanatory prose, no code fences.\n\n")
	b.WriteString("[Text]\n")
	return b.String()
}
