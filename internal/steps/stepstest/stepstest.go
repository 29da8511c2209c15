// Package stepstest provides model outputs that pass every step's schema,
// for tests of packages that run steps.
package stepstest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sells-group/localpages-cli/internal/steps"
)

func para(topic string, minLen int) string {
	s := "Texto sobre " + topic + "."
	for len([]rune(s)) < minLen {
		s += " Información útil y verificable para clientes de la zona."
	}
	return s
}

// Output returns a valid raw object for step id. locality is woven into
// the fields that must mention it.
func Output(id steps.ID, locality string) map[string]any {
	switch id {
	case steps.SEO:
		return map[string]any{
			"title_es":            "Abogados en " + locality,
			"meta_description_es": "Asesoramiento legal cercano en " + locality + ". Primera consulta sin compromiso.",
			"h1_es":               "Tu abogado en " + locality,
		}
	case steps.Intro:
		return map[string]any{"intro_es": para("el servicio en "+locality, 200)}
	case steps.Sections:
		return map[string]any{"sections_es": list(steps.SectionCount, func(i int) map[string]any {
			return map[string]any{
				"heading": fmt.Sprintf("Apartado %d", i+1),
				"body":    para(fmt.Sprintf("el apartado %d", i+1), 120),
			}
		})}
	case steps.FAQs:
		return map[string]any{"faqs_es": list(steps.FAQCount, func(i int) map[string]any {
			return map[string]any{
				"question": fmt.Sprintf("¿Pregunta frecuente número %d?", i+1),
				"answer":   para(fmt.Sprintf("la respuesta %d", i+1), 60),
			}
		})}
	case steps.Process:
		return map[string]any{"process_steps_es": list(steps.ProcessStepCount, func(i int) map[string]any {
			return map[string]any{
				"title":       fmt.Sprintf("Paso %d", i+1),
				"description": para(fmt.Sprintf("el paso %d", i+1), 40),
			}
		})}
	case steps.Local:
		return LocalOutput(locality)
	case steps.Custom:
		return map[string]any{"custom_sections": map[string]any{
			"tramites_municipales": para("trámites municipales", 60),
			"fiscalidad_local":     para("fiscalidad local", 60),
		}}
	}
	panic("stepstest: unknown step " + string(id))
}

// LocalOutput returns a valid local step object carrying the given entity
// names as courts.
func LocalOutput(locality string, entityNames ...string) map[string]any {
	ents := make([]any, 0, len(entityNames))
	for _, n := range entityNames {
		ents = append(ents, map[string]any{
			"entityType": "court",
			"name":       n,
			"sourceUrl":  "https://example.es/" + strings.ReplaceAll(strings.ToLower(n), " ", "-"),
		})
	}
	return map[string]any{
		"local_context_es": para("el contexto local de "+locality, 150),
		"localEntities":    ents,
	}
}

// JSON returns Output(id, locality) encoded as a model would send it.
func JSON(id steps.ID, locality string) string {
	return Encode(Output(id, locality))
}

// Encode marshals v, panicking on error.
func Encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func list(n int, f func(i int) map[string]any) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}
