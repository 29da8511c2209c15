package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/localpages-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS services (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	key    TEXT NOT NULL UNIQUE,
	name   TEXT NOT NULL,
	type   TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS localities (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	slug     TEXT NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	province TEXT NOT NULL DEFAULT '',
	active   BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS page_content (
	id                  TEXT PRIMARY KEY,
	service_id          INTEGER NOT NULL REFERENCES services(id),
	locality_id         INTEGER NOT NULL REFERENCES localities(id),
	title_es            TEXT NOT NULL DEFAULT '',
	meta_description_es TEXT NOT NULL DEFAULT '',
	h1_es               TEXT NOT NULL DEFAULT '',
	intro_es            TEXT NOT NULL DEFAULT '',
	local_context_es    TEXT NOT NULL DEFAULT '',
	sections_es         TEXT,
	faqs_es             TEXT,
	process_steps_es    TEXT,
	title_en            TEXT NOT NULL DEFAULT '',
	meta_description_en TEXT NOT NULL DEFAULT '',
	h1_en               TEXT NOT NULL DEFAULT '',
	intro_en            TEXT NOT NULL DEFAULT '',
	local_context_en    TEXT NOT NULL DEFAULT '',
	sections_en         TEXT,
	faqs_en             TEXT,
	process_steps_en    TEXT,
	custom_sections     TEXT,
	quality_score       REAL NOT NULL DEFAULT 0,
	evidence_count      INTEGER NOT NULL DEFAULT 0,
	generated_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (service_id, locality_id)
);

CREATE TABLE IF NOT EXISTS locality_entities (
	id              TEXT PRIMARY KEY,
	locality_id     INTEGER NOT NULL REFERENCES localities(id),
	entity_type     TEXT NOT NULL,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	address         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	source_url      TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (locality_id, entity_type, normalized_name)
);

CREATE INDEX IF NOT EXISTS idx_page_content_locality ON page_content(locality_id);
CREATE INDEX IF NOT EXISTS idx_locality_entities_locality ON locality_entities(locality_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListServices(ctx context.Context, key string) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, name, type, active FROM services WHERE active AND (? = '' OR key = ?) ORDER BY key`,
		key, key,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list services")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		var typ string
		if err := rows.Scan(&svc.ID, &svc.Key, &svc.Name, &typ, &svc.Active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan service")
		}
		svc.Type = model.ServiceType(typ)
		out = append(out, svc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate services")
}

func (s *SQLiteStore) ListLocalities(ctx context.Context, slug string) ([]model.Locality, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, province, active FROM localities WHERE active AND (? = '' OR slug = ?) ORDER BY slug`,
		slug, slug,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list localities")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Locality
	for rows.Next() {
		var loc model.Locality
		if err := rows.Scan(&loc.ID, &loc.Slug, &loc.Name, &loc.Province, &loc.Active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan locality")
		}
		out = append(out, loc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate localities")
}

func (s *SQLiteStore) UpsertServices(ctx context.Context, services []model.Service) error {
	return s.inTx(ctx, "upsert services", func(tx *sql.Tx) error {
		for _, svc := range services {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO services (key, name, type, active) VALUES (?, ?, ?, ?)
				 ON CONFLICT (key) DO UPDATE SET name = excluded.name, type = excluded.type, active = excluded.active`,
				svc.Key, svc.Name, string(svc.Type), svc.Active,
			)
			if err != nil {
				return eris.Wrapf(err, "service %s", svc.Key)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) UpsertLocalities(ctx context.Context, localities []model.Locality) error {
	return s.inTx(ctx, "upsert localities", func(tx *sql.Tx) error {
		for _, loc := range localities {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO localities (slug, name, province, active) VALUES (?, ?, ?, ?)
				 ON CONFLICT (slug) DO UPDATE SET name = excluded.name, province = excluded.province, active = excluded.active`,
				loc.Slug, loc.Name, loc.Province, loc.Active,
			)
			if err != nil {
				return eris.Wrapf(err, "locality %s", loc.Slug)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) GetContent(ctx context.Context, serviceID, localityID int64) (*model.ContentRow, error) {
	row := s.db.QueryRowContext(ctx, selectContentSQL(false), serviceID, localityID)
	c, err := scanContent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get content %d/%d", serviceID, localityID)
	}
	return c, nil
}

func (s *SQLiteStore) SaveItem(ctx context.Context, row *model.ContentRow, entities []model.LocalEntity) (int64, error) {
	args, err := contentArgs(row)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: save item")
	}
	insertEntity := fmt.Sprintf(
		"INSERT INTO locality_entities (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		strings.Join(entityColumns, ", "),
		placeholders(len(entityColumns), false),
		strings.Join(entityConflictKeys, ", "),
	)

	var inserted int64
	var id string
	err = s.inTx(ctx, "save item", func(tx *sql.Tx) error {
		for _, r := range entityRows(row.LocalityID, entities, time.Now().UTC()) {
			res, err := tx.ExecContext(ctx, insertEntity, r...)
			if err != nil {
				return eris.Wrapf(err, "insert entities for locality %d", row.LocalityID)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return eris.Wrap(err, "rows affected")
			}
			inserted += n
		}

		if err := tx.QueryRowContext(ctx, upsertContentSQL(false), args...).Scan(&id); err != nil {
			return eris.Wrapf(err, "upsert content %d/%d", row.ServiceID, row.LocalityID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	row.ID = id
	return inserted, nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStore) inTx(ctx context.Context, action string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s: begin tx", action)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return eris.Wrapf(err, "sqlite: %s", action)
	}
	return eris.Wrapf(tx.Commit(), "sqlite: %s: commit", action)
}
