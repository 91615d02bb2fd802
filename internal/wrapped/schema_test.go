package wrapped

import "testing"

func TestSchemaByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "personality", false},
		{"personality", "personality", false},
		{"metrics", "metrics", false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		schema, err := SchemaByName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SchemaByName(%q) succeeded, want error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("SchemaByName(%q) error = %v", tt.name, err)
			continue
		}
		if schema.Name != tt.want {
			t.Errorf("SchemaByName(%q).Name = %q, want %q", tt.name, schema.Name, tt.want)
		}
	}
}

func TestJSONSchema_DeclaresProperties(t *testing.T) {
	for _, schema := range []*ReportSchema{PersonalitySchema, MetricsSchema} {
		t.Run(schema.Name, func(t *testing.T) {
			m, err := schema.JSONSchema()
			if err != nil {
				t.Fatalf("JSONSchema() error = %v", err)
			}

			props, ok := m["properties"].(map[string]any)
			if !ok {
				t.Fatalf("schema has no properties map: %v", m)
			}
			for _, f := range schema.Fields {
				if _, present := props[f.Name]; !present {
					t.Errorf("derived schema missing property %q", f.Name)
				}
			}
		})
	}
}

func TestJSONSchema_PercentageBounds(t *testing.T) {
	m, err := PersonalitySchema.JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}

	props := m["properties"].(map[string]any)
	mix, ok := props["content_mix"].(map[string]any)
	if !ok {
		t.Fatal("content_mix property missing")
	}
	mixProps, ok := mix["properties"].(map[string]any)
	if !ok {
		t.Fatal("content_mix has no nested properties")
	}
	takes, ok := mixProps["takes"].(map[string]any)
	if !ok {
		t.Fatal("content_mix.takes missing")
	}
	if takes["maximum"] == nil {
		t.Error("content_mix.takes has no maximum bound")
	}
}

func TestFallback_NarrativeFieldEmptyRaw(t *testing.T) {
	got := PersonalitySchema.Fallback("", nil)
	// Empty raw text keeps the field default rather than blanking it
	if got["year_story"] != "Unknown" {
		t.Errorf("year_story = %v, want default", got["year_story"])
	}
}
