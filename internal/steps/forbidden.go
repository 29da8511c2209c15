package steps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/internal/model"
)

// CheckForbidden walks every string leaf of v and fails on the first one
// containing a forbidden phrase. Matching ignores case and diacritics. The
// error names the JSON path of the offending field.
func CheckForbidden(v any, phrases []string) error {
	var raw, norm []string
	for _, p := range phrases {
		if n := model.NormalizeName(p); n != "" {
			raw = append(raw, p)
			norm = append(norm, n)
		}
	}
	if len(norm) == 0 {
		return nil
	}
	return walkForbidden("", v, raw, norm)
}

func walkForbidden(path string, v any, phrases, norm []string) error {
	switch t := v.(type) {
	case string:
		s := model.NormalizeName(t)
		for i, p := range norm {
			if strings.Contains(s, p) {
				return eris.Errorf("forbidden phrase %q in %s", phrases[i], path)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			if err := walkForbidden(child, t[k], phrases, norm); err != nil {
				return err
			}
		}
	case []any:
		for i, e := range t {
			if err := walkForbidden(fmt.Sprintf("%s[%d]", path, i), e, phrases, norm); err != nil {
				return err
			}
		}
	}
	return nil
}
