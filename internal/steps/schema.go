package steps

import (
	"github.com/xeipuuv/gojsonschema"
)

// text matches a non-blank string of at most max characters.
func text(minLen, maxLen int) map[string]any {
	return map[string]any{
		"type":      "string",
		"minLength": minLen,
		"maxLength": maxLen,
		"pattern":   `\S`,
	}
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": props,
	}
}

func exactly(n int, item map[string]any) map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": n,
		"maxItems": n,
		"items":    item,
	}
}

var schemas = map[ID]map[string]any{
	SEO: object([]string{"title_es", "meta_description_es", "h1_es"}, map[string]any{
		"title_es":            text(10, MaxTitleLen),
		"meta_description_es": text(50, MaxMetaDescriptionLen),
		"h1_es":               text(10, MaxH1Len),
	}),
	Intro: object([]string{"intro_es"}, map[string]any{
		"intro_es": text(150, MaxIntroLen),
	}),
	Sections: object([]string{"sections_es"}, map[string]any{
		"sections_es": exactly(SectionCount, object([]string{"heading", "body"}, map[string]any{
			"heading": text(5, 90),
			"body":    text(80, 1200),
		})),
	}),
	FAQs: object([]string{"faqs_es"}, map[string]any{
		"faqs_es": exactly(FAQCount, object([]string{"question", "answer"}, map[string]any{
			"question": text(10, 160),
			"answer":   text(40, 600),
		})),
	}),
	Process: object([]string{"process_steps_es"}, map[string]any{
		"process_steps_es": exactly(ProcessStepCount, object([]string{"title", "description"}, map[string]any{
			"title":       text(3, 60),
			"description": text(20, 400),
		})),
	}),
	Local: object([]string{"local_context_es", "localEntities"}, map[string]any{
		"local_context_es": text(100, MaxLocalContextLen),
		"localEntities": map[string]any{
			"type":     "array",
			"maxItems": MaxLocalEntities,
			"items": object([]string{"entityType", "name"}, map[string]any{
				"entityType": map[string]any{"type": "string"},
				"name":       text(2, 200),
				"address":    map[string]any{"type": "string"},
				"phone":      map[string]any{"type": "string"},
				"website":    map[string]any{"type": "string"},
				"notes":      map[string]any{"type": "string"},
				"sourceUrl":  map[string]any{"type": "string"},
			}),
		},
	}),
	Custom: object([]string{"custom_sections"}, map[string]any{
		"custom_sections": map[string]any{
			"type":                 "object",
			"minProperties":        MinCustomSections,
			"maxProperties":        MaxCustomSections,
			"additionalProperties": text(40, 1500),
		},
	}),
}

func compileSchema(id ID) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemas[id]))
}
