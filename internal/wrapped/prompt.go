package wrapped

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeUsername strips whitespace and a leading @ so "@Alice" and
// "Alice" are treated identically everywhere downstream.
func NormalizeUsername(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}

// yearOrCurrent resolves an unspecified (non-positive) year to the
// current calendar year.
func yearOrCurrent(year int) int {
	if year > 0 {
		return year
	}
	return time.Now().Year()
}

// AnalysisPrompt builds the phase-1 instruction text. The username must
// already be normalized. The prompt restricts the search to the target
// handle only and tells the model not to fabricate engagement counts, so
// the output stays qualitative where the data is.
func AnalysisPrompt(username string, year int) string {
	y := yearOrCurrent(year)
	return fmt.Sprintf(`Research and analyze @%[1]s's entire X activity for %[2]d.

Your task:
1. Search for ALL posts authored by @%[1]s throughout %[2]d (January through December). Search only @%[1]s's own posts, not mentions of them by other accounts.
2. For each post found, capture: content, date, media types (images, videos), and topics discussed.
3. Analyze themes, posting patterns, tone of voice, and how they evolved across the year.
4. Identify: standout posts, recurring themes, the account's personality and vibe, and the overall arc of their year.

Do NOT invent engagement numbers. If you did not observe a metric, leave it out rather than guessing.

Use x_search to gather posts from across all months, and code_execution if needed for calculations. After gathering all data, provide your analysis in structured form. Note the month names for all time-based findings.`, username, y)
}

// FormatPrompt builds the phase-2 instruction text. It embeds the full
// phase-1 output verbatim and names the fields of the target schema so
// the prompt and the schema can be swapped independently.
func FormatPrompt(username string, year int, analysis string, schema *ReportSchema) string {
	y := yearOrCurrent(year)

	var fields strings.Builder
	if schema != nil {
		for _, f := range schema.Fields {
			fmt.Fprintf(&fields, "- %s\n", f.Name)
		}
	}

	return fmt.Sprintf(`Below is a raw analysis of @%s's X activity for %d.

<analysis>
%s
</analysis>

Turn it into a polished "Year in Review" wrapped report with these sections:
%s
Ground every claim in the analysis above. Keep all percentage fields between 0 and 100. Do not invent engagement numbers that are not in the analysis.`, username, y, analysis, fields.String())
}
