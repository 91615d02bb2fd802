package wrapped

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Field is one top-level field of a report schema with its fallback
// default. Every declared field is always present in the wire payload,
// either model-produced or defaulted.
type Field struct {
	Name    string
	Default any
}

// ReportSchema describes the shape of a WrappedReport. The schema is
// configuration, not code: the prompt builder and recovery both take it,
// so the output shape can evolve without touching the pipeline.
type ReportSchema struct {
	Name   string
	Fields []Field

	// Narrative is the field that receives the raw analysis text when
	// structured parsing falls through entirely.
	Narrative string

	// prototype is the Go struct the JSON Schema is derived from for
	// structured-output requests.
	prototype any
}

// JSONSchema derives the strict JSON Schema sent with structured-output
// requests, as a plain map ready for embedding in a request body.
func (s *ReportSchema) JSONSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: false,
	}
	schema := reflector.Reflect(s.prototype)
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema %q: %w", s.Name, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode schema %q: %w", s.Name, err)
	}
	return m, nil
}

// Fallback builds the defaulted report object used when neither
// structured parsing nor JSON extraction produced anything usable. The
// raw text, if any, lands in the narrative field. A nil schema routes the
// raw text into a single year_summary field.
func (s *ReportSchema) Fallback(raw string, citations []string) map[string]any {
	if citations == nil {
		citations = []string{}
	}
	if s == nil {
		return map[string]any{
			"year_summary": raw,
			"citations":    citations,
		}
	}
	out := make(map[string]any, len(s.Fields)+1)
	for _, f := range s.Fields {
		out[f.Name] = f.Default
	}
	if s.Narrative != "" && raw != "" {
		out[s.Narrative] = raw
	}
	out["citations"] = citations
	return out
}

// SchemaByName looks up a named schema configuration. The empty name
// selects the default (personality) schema.
func SchemaByName(name string) (*ReportSchema, error) {
	switch name {
	case "", "personality":
		return PersonalitySchema, nil
	case "metrics":
		return MetricsSchema, nil
	}
	return nil, fmt.Errorf("unknown report schema %q", name)
}

// personalityReport is the prototype for the qualitative schema: no
// engagement numbers, just the account's voice and story.
type personalityReport struct {
	YearStory   string   `json:"year_story" jsonschema:"description=Narrative of the account's year in 3-4 paragraphs"`
	Personality string   `json:"personality" jsonschema:"description=The account's personality in one or two sentences"`
	Vibe        string   `json:"vibe" jsonschema:"description=Overall vibe in a short phrase"`
	Themes      []string `json:"themes" jsonschema:"description=Recurring themes across the year"`
	Voice       string   `json:"voice" jsonschema:"description=Description of the account's writing voice"`
	ContentMix  struct {
		Takes     int `json:"takes" jsonschema:"minimum=0,maximum=100"`
		Replies   int `json:"replies" jsonschema:"minimum=0,maximum=100"`
		Threads   int `json:"threads" jsonschema:"minimum=0,maximum=100"`
		Media     int `json:"media" jsonschema:"minimum=0,maximum=100"`
		Shitposts int `json:"shitposts" jsonschema:"minimum=0,maximum=100"`
	} `json:"content_mix" jsonschema:"description=Rough percentage mix of content types, each 0-100"`
	Evolution string `json:"evolution" jsonschema:"description=How the account changed over the year"`
	Roast     string `json:"roast" jsonschema:"description=A playful one-paragraph roast"`
}

// metricsReport is the prototype for the earliest, metrics-centric
// schema shape.
type metricsReport struct {
	Overview struct {
		TotalPosts          int      `json:"total_posts"`
		BestMonth           string   `json:"best_month"`
		BestMonthEngagement int      `json:"best_month_engagement"`
		AverageEngagement   int      `json:"average_engagement"`
		PeakPostingTimes    []string `json:"peak_posting_times"`
	} `json:"overview"`
	Sentiment struct {
		PositivePercentage int    `json:"positive_percentage" jsonschema:"minimum=0,maximum=100"`
		NeutralPercentage  int    `json:"neutral_percentage" jsonschema:"minimum=0,maximum=100"`
		NegativePercentage int    `json:"negative_percentage" jsonschema:"minimum=0,maximum=100"`
		MostEmotionalMonth string `json:"most_emotional_month"`
		SentimentTrend     string `json:"sentiment_trend"`
	} `json:"sentiment"`
	TopTopics []struct {
		Topic      string `json:"topic"`
		Frequency  int    `json:"frequency"`
		Engagement int    `json:"engagement"`
	} `json:"top_topics"`
	WritingStyle      string `json:"writing_style"`
	MonthlyHighlights []struct {
		Month      string   `json:"month"`
		KeyMoments []string `json:"key_moments"`
		TopPost    string   `json:"top_post"`
		Engagement int      `json:"engagement"`
	} `json:"monthly_highlights"`
	YearSummary      string `json:"year_summary"`
	InterestingPosts []struct {
		Content    string `json:"content"`
		Engagement int    `json:"engagement"`
		Reason     string `json:"reason"`
	} `json:"interesting_posts"`
	EngagementMetrics struct {
		TotalLikes          int    `json:"total_likes"`
		TotalRetweets       int    `json:"total_retweets"`
		TotalReplies        int    `json:"total_replies"`
		BestCategory        string `json:"best_category"`
		InteractionPatterns string `json:"interaction_patterns"`
	} `json:"engagement_metrics"`
}

// PersonalitySchema is the default report shape.
var PersonalitySchema = &ReportSchema{
	Name:      "personality",
	Narrative: "year_story",
	prototype: personalityReport{},
	Fields: []Field{
		{Name: "year_story", Default: "Unknown"},
		{Name: "personality", Default: "Unknown"},
		{Name: "vibe", Default: "Balanced"},
		{Name: "themes", Default: []string{}},
		{Name: "voice", Default: "Unknown"},
		{Name: "content_mix", Default: map[string]any{
			"takes": 0, "replies": 0, "threads": 0, "media": 0, "shitposts": 0,
		}},
		{Name: "evolution", Default: "Unknown"},
		{Name: "roast", Default: "Too mysterious to roast."},
	},
}

// MetricsSchema is the earlier metrics-centric report shape, kept as a
// named configuration.
var MetricsSchema = &ReportSchema{
	Name:      "metrics",
	Narrative: "year_summary",
	prototype: metricsReport{},
	Fields: []Field{
		{Name: "overview", Default: map[string]any{
			"total_posts": 0, "best_month": "Unknown", "best_month_engagement": 0,
			"average_engagement": 0, "peak_posting_times": []string{},
		}},
		{Name: "sentiment", Default: map[string]any{
			"positive_percentage": 0, "neutral_percentage": 0, "negative_percentage": 0,
			"most_emotional_month": "Unknown", "sentiment_trend": "Balanced",
		}},
		{Name: "top_topics", Default: []any{}},
		{Name: "writing_style", Default: "Unknown"},
		{Name: "monthly_highlights", Default: []any{}},
		{Name: "year_summary", Default: "Unknown"},
		{Name: "interesting_posts", Default: []any{}},
		{Name: "engagement_metrics", Default: map[string]any{
			"total_likes": 0, "total_retweets": 0, "total_replies": 0,
			"best_category": "Unknown", "interaction_patterns": "Unknown",
		}},
	},
}
