package generate

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// NormalizeWhitespace collapses every whitespace run to one space and trims
// the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseJSON decodes raw model text into a JSON object. When raw is not a
// bare object, the substring from the first '{' to the last '}' is tried.
// Failure returns a *MalformedOutputError.
func ParseJSON(raw string) (map[string]any, error) {
	var obj map[string]any
	err := json.Unmarshal([]byte(raw), &obj)
	if err == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, &MalformedOutputError{Raw: raw, Err: eris.New("no JSON object found")}
	}

	obj = nil
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: eris.Wrap(err, "decode recovered object")}
	}
	return obj, nil
}
