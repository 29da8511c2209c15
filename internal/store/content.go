package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/internal/model"
)

var primaryColumns = []string{
	"title_es", "meta_description_es", "h1_es", "intro_es", "local_context_es",
	"sections_es", "faqs_es", "process_steps_es",
}

var secondaryColumns = []string{
	"title_en", "meta_description_en", "h1_en", "intro_en", "local_context_en",
	"sections_en", "faqs_en", "process_steps_en",
}

// contentColumns is the column order used by contentArgs and scanContent.
var contentColumns = concat(
	[]string{"id", "service_id", "locality_id"},
	primaryColumns,
	secondaryColumns,
	[]string{"custom_sections", "quality_score", "evidence_count", "generated_at", "updated_at"},
)

// contentUpdateColumns are overwritten on conflict. Second-language columns
// are never part of an update.
var contentUpdateColumns = concat(
	primaryColumns,
	[]string{"custom_sections", "quality_score", "evidence_count", "generated_at", "updated_at"},
)

var entityColumns = []string{
	"id", "locality_id", "entity_type", "name", "normalized_name",
	"address", "phone", "website", "notes", "source_url", "created_at",
}

var entityConflictKeys = []string{"locality_id", "entity_type", "normalized_name"}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// placeholders returns "$1, $2, ..." (postgres) or "?, ?, ..." (sqlite).
func placeholders(n int, numbered bool) string {
	ph := make([]string, n)
	for i := range ph {
		if numbered {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return strings.Join(ph, ", ")
}

func upsertContentSQL(numbered bool) string {
	sets := make([]string, len(contentUpdateColumns))
	for i, c := range contentUpdateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return fmt.Sprintf(
		"INSERT INTO page_content (%s) VALUES (%s) ON CONFLICT (service_id, locality_id) DO UPDATE SET %s RETURNING id",
		strings.Join(contentColumns, ", "),
		placeholders(len(contentColumns), numbered),
		strings.Join(sets, ", "),
	)
}

func selectContentSQL(numbered bool) string {
	where := "service_id = ? AND locality_id = ?"
	if numbered {
		where = "service_id = $1 AND locality_id = $2"
	}
	return fmt.Sprintf("SELECT %s FROM page_content WHERE %s", strings.Join(contentColumns, ", "), where)
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal json column")
	}
	return string(b), nil
}

func localizedArgs(c model.LocalizedContent) ([]any, error) {
	sections, err := toJSON(c.Sections)
	if err != nil {
		return nil, err
	}
	faqs, err := toJSON(c.FAQs)
	if err != nil {
		return nil, err
	}
	process, err := toJSON(c.ProcessSteps)
	if err != nil {
		return nil, err
	}
	return []any{c.Title, c.MetaDescription, c.H1, c.Intro, c.LocalContext, sections, faqs, process}, nil
}

// contentArgs flattens row in contentColumns order. A missing ID is
// generated.
func contentArgs(row *model.ContentRow) ([]any, error) {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	primary, err := localizedArgs(row.Primary)
	if err != nil {
		return nil, err
	}
	secondary, err := localizedArgs(row.Secondary)
	if err != nil {
		return nil, err
	}
	custom, err := toJSON(row.CustomSections)
	if err != nil {
		return nil, err
	}

	args := []any{row.ID, row.ServiceID, row.LocalityID}
	args = append(args, primary...)
	args = append(args, secondary...)
	args = append(args, custom, row.QualityScore, row.EvidenceCount, row.GeneratedAt.UTC(), row.UpdatedAt.UTC())
	return args, nil
}

type localizedScan struct {
	c        *model.LocalizedContent
	sections []byte
	faqs     []byte
	process  []byte
}

func (l *localizedScan) dest() []any {
	return []any{&l.c.Title, &l.c.MetaDescription, &l.c.H1, &l.c.Intro, &l.c.LocalContext, &l.sections, &l.faqs, &l.process}
}

func (l *localizedScan) decode() error {
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{l.sections, &l.c.Sections},
		{l.faqs, &l.c.FAQs},
		{l.process, &l.c.ProcessSteps},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return eris.Wrap(err, "store: unmarshal json column")
		}
	}
	return nil
}

// scanContent reads one row selected with contentColumns.
func scanContent(scan func(dest ...any) error) (*model.ContentRow, error) {
	var row model.ContentRow
	primary := &localizedScan{c: &row.Primary}
	secondary := &localizedScan{c: &row.Secondary}
	var custom []byte

	dest := []any{&row.ID, &row.ServiceID, &row.LocalityID}
	dest = append(dest, primary.dest()...)
	dest = append(dest, secondary.dest()...)
	dest = append(dest, &custom, &row.QualityScore, &row.EvidenceCount, &row.GeneratedAt, &row.UpdatedAt)

	if err := scan(dest...); err != nil {
		return nil, err
	}
	if err := primary.decode(); err != nil {
		return nil, err
	}
	if err := secondary.decode(); err != nil {
		return nil, err
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &row.CustomSections); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal custom_sections")
		}
	}
	return &row, nil
}

// entityRows dedupes entities by key and flattens them in entityColumns order.
func entityRows(localityID int64, entities []model.LocalEntity, now time.Time) [][]any {
	seen := make(map[model.EntityKey]bool, len(entities))
	rows := make([][]any, 0, len(entities))
	for _, e := range entities {
		k := e.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, []any{
			uuid.New().String(), localityID, string(e.EntityType), e.Name, k.NormalizedName,
			e.Address, e.Phone, e.Website, e.Notes, e.SourceURL, now,
		})
	}
	return rows
}
