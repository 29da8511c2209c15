package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/localpages-cli/internal/db"
	"github.com/sells-group/localpages-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Batches are sequential, so a small pool is enough.
	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS services (
	id     BIGSERIAL PRIMARY KEY,
	key    TEXT NOT NULL UNIQUE,
	name   TEXT NOT NULL,
	type   TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS localities (
	id       BIGSERIAL PRIMARY KEY,
	slug     TEXT NOT NULL UNIQUE,
	name     TEXT NOT NULL,
	province TEXT NOT NULL DEFAULT '',
	active   BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS page_content (
	id                  TEXT PRIMARY KEY,
	service_id          BIGINT NOT NULL REFERENCES services(id),
	locality_id         BIGINT NOT NULL REFERENCES localities(id),
	title_es            TEXT NOT NULL DEFAULT '',
	meta_description_es TEXT NOT NULL DEFAULT '',
	h1_es               TEXT NOT NULL DEFAULT '',
	intro_es            TEXT NOT NULL DEFAULT '',
	local_context_es    TEXT NOT NULL DEFAULT '',
	sections_es         JSONB,
	faqs_es             JSONB,
	process_steps_es    JSONB,
	title_en            TEXT NOT NULL DEFAULT '',
	meta_description_en TEXT NOT NULL DEFAULT '',
	h1_en               TEXT NOT NULL DEFAULT '',
	intro_en            TEXT NOT NULL DEFAULT '',
	local_context_en    TEXT NOT NULL DEFAULT '',
	sections_en         JSONB,
	faqs_en             JSONB,
	process_steps_en    JSONB,
	custom_sections     JSONB,
	quality_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
	evidence_count      INTEGER NOT NULL DEFAULT 0,
	generated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (service_id, locality_id)
);

CREATE TABLE IF NOT EXISTS locality_entities (
	id              TEXT PRIMARY KEY,
	locality_id     BIGINT NOT NULL REFERENCES localities(id),
	entity_type     TEXT NOT NULL,
	name            TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	address         TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	source_url      TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (locality_id, entity_type, normalized_name)
);

CREATE INDEX IF NOT EXISTS idx_page_content_locality ON page_content(locality_id);
CREATE INDEX IF NOT EXISTS idx_locality_entities_locality ON locality_entities(locality_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListServices(ctx context.Context, key string) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, key, name, type, active FROM services WHERE active AND ($1 = '' OR key = $1) ORDER BY key`,
		key,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list services")
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		var typ string
		if err := rows.Scan(&svc.ID, &svc.Key, &svc.Name, &typ, &svc.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan service")
		}
		svc.Type = model.ServiceType(typ)
		out = append(out, svc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate services")
}

func (s *PostgresStore) ListLocalities(ctx context.Context, slug string) ([]model.Locality, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, name, province, active FROM localities WHERE active AND ($1 = '' OR slug = $1) ORDER BY slug`,
		slug,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list localities")
	}
	defer rows.Close()

	var out []model.Locality
	for rows.Next() {
		var loc model.Locality
		if err := rows.Scan(&loc.ID, &loc.Slug, &loc.Name, &loc.Province, &loc.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan locality")
		}
		out = append(out, loc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate localities")
}

func (s *PostgresStore) UpsertServices(ctx context.Context, services []model.Service) error {
	rows := make([][]any, len(services))
	for i, svc := range services {
		rows[i] = []any{svc.Key, svc.Name, string(svc.Type), svc.Active}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "services",
		Columns:      []string{"key", "name", "type", "active"},
		ConflictKeys: []string{"key"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert services")
}

func (s *PostgresStore) UpsertLocalities(ctx context.Context, localities []model.Locality) error {
	rows := make([][]any, len(localities))
	for i, loc := range localities {
		rows[i] = []any{loc.Slug, loc.Name, loc.Province, loc.Active}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "localities",
		Columns:      []string{"slug", "name", "province", "active"},
		ConflictKeys: []string{"slug"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert localities")
}

func (s *PostgresStore) GetContent(ctx context.Context, serviceID, localityID int64) (*model.ContentRow, error) {
	row := s.pool.QueryRow(ctx, selectContentSQL(true), serviceID, localityID)
	c, err := scanContent(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get content %d/%d", serviceID, localityID)
	}
	return c, nil
}

func (s *PostgresStore) SaveItem(ctx context.Context, row *model.ContentRow, entities []model.LocalEntity) (int64, error) {
	args, err := contentArgs(row)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save item")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save item: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	inserted, err := db.BulkUpsertTx(ctx, tx, db.UpsertConfig{
		Table:           "locality_entities",
		Columns:         entityColumns,
		ConflictKeys:    entityConflictKeys,
		IgnoreConflicts: true,
	}, entityRows(row.LocalityID, entities, time.Now().UTC()))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert entities for locality %d", row.LocalityID)
	}

	var id string
	if err := tx.QueryRow(ctx, upsertContentSQL(true), args...).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert content %d/%d", row.ServiceID, row.LocalityID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: save item: commit tx")
	}
	row.ID = id
	return inserted, nil
}
