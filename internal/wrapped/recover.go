package wrapped

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the outermost JSON object out of free text by taking
// the span from the first '{' to the last '}'. This is a deliberate
// best-effort heuristic, not a parser: model output is adversarially
// unstructured (prose, markdown fences) and a stray brace inside a string
// literal outside the object can mis-extract. Parse failure is the
// signal that the span was wrong.
func ExtractJSON(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Recover produces a usable report from raw phase-1 text when structured
// parsing was unavailable or failed. It never fails: extraction first,
// schema-defaulted fallback second. Citations are merged in either way.
// Callers must not pass empty raw text; that case is a hard pipeline
// error, not a recovery case.
func Recover(raw string, schema *ReportSchema, citations []string) map[string]any {
	if citations == nil {
		citations = []string{}
	}
	if obj, ok := ExtractJSON(raw); ok {
		obj["citations"] = citations
		return obj
	}
	return schema.Fallback(raw, citations)
}
