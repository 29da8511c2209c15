// Package store persists services, localities, generated page content and
// local entities in Postgres or SQLite.
package store

import (
	"context"

	"github.com/sells-group/localpages-cli/internal/model"
)

// Store defines the persistence interface for the generator.
type Store interface {
	// Catalog. An empty filter matches every active row.
	ListServices(ctx context.Context, key string) ([]model.Service, error)
	ListLocalities(ctx context.Context, slug string) ([]model.Locality, error)
	UpsertServices(ctx context.Context, services []model.Service) error
	UpsertLocalities(ctx context.Context, localities []model.Locality) error

	// Content. GetContent returns nil, nil when no row exists.
	GetContent(ctx context.Context, serviceID, localityID int64) (*model.ContentRow, error)

	// SaveItem upserts row and inserts the entities of row's locality that
	// are not stored yet, in one transaction: either both land or neither
	// does. Entities are insert-only. It returns the number of new entities
	// and sets row.ID to the stored id.
	SaveItem(ctx context.Context, row *model.ContentRow, entities []model.LocalEntity) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
