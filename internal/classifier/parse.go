package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oenoai/ragcrawl/internal/ingest"
)

// keywordResponse mirrors the JSON schema the keyword policy requests.
type keywordResponse struct {
	Keep     bool   `json:"keep"`
	Keywords string `json:"keywords"`
}

// stripCodeFences removes markdown code fences some models wrap around
// structured output.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseKeywordResponse decodes a keyword-policy verdict. Responses that do
// not decode into the schema are treated as delete, never silently kept.
func parseKeywordResponse(raw string) (ingest.Verdict, error) {
	var decoded keywordResponse
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &decoded); err != nil {
		return ingest.Verdict{}, fmt.Errorf("decode keyword verdict: %w", err)
	}
	if !decoded.Keep {
		return ingest.Verdict{}, nil
	}
	return ingest.Verdict{
		Keep:     true,
		Keywords: strings.TrimSpace(decoded.Keywords),
	}, nil
}

// summaryPrefix is the canonical opening every summary is normalized to.
const summaryPrefix = "This chunk covers"

// parseSummaryResponse decodes the line-oriented summary-policy protocol:
// "KEEP\n<summary>\n<content...>" to keep, "DELETE" to drop. Any other shape
// is an error; callers fail closed on it.
func parseSummaryResponse(raw string) (ingest.Verdict, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "DELETE") {
		return ingest.Verdict{}, nil
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 3 || strings.TrimSpace(lines[0]) != "KEEP" {
		return ingest.Verdict{}, fmt.Errorf("unexpected summary verdict shape: %q", firstLine(trimmed))
	}
	summary := normalizeSummary(strings.TrimSpace(lines[1]))
	content := strings.TrimSpace(strings.Join(lines[2:], "\n"))
	return ingest.Verdict{
		Keep:    true,
		Summary: summary,
		Content: content,
	}, nil
}

// normalizeSummary forces the canonical prefix and terminal period so stored
// summaries are uniform regardless of model phrasing.
func normalizeSummary(summary string) string {
	if !strings.HasPrefix(summary, summaryPrefix) {
		summary = summaryPrefix + " " + summary
	}
	if !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
