// Package storage defines the key-value storage contract the secret
// distribution subsystem runs on: a single table keyed (user_id, site) with
// two secondary indexes over the shared-with attributes.
package storage

import (
	"context"

	"github.com/runavault/runavault/internal/server/models"
)

// Store is the storage client consumed by the secrets service. The DynamoDB
// implementation lives in the dynamo subpackage; tests substitute fakes.
type Store interface {
	// Get fetches one row by exact key. A miss returns (nil, nil).
	Get(ctx context.Context, ownerID, sortKey string) (*models.DistributionRecord, error)

	// Put writes one row. Unless replace is set, the write is conditional on
	// the key not existing and a conflict returns common.ErrDuplicate.
	Put(ctx context.Context, rec *models.DistributionRecord, replace bool) error

	// Delete removes one row by exact key. Deleting an absent row is not an error.
	Delete(ctx context.Context, ownerID, sortKey string) error

	// QueryExact returns the rows matching the full key. Normally zero or one;
	// kept separate from Get for the read path's eventual-consistency fallback.
	QueryExact(ctx context.Context, ownerID, sortKey string) ([]models.DistributionRecord, error)

	// QueryPrefix returns all rows of a partition whose sort key starts with
	// prefix. An empty prefix returns the whole partition.
	QueryPrefix(ctx context.Context, ownerID, prefix string) ([]models.DistributionRecord, error)

	// QueryByGroup scans the shared-with-group index. A non-empty subdirectory
	// additionally filters on subdirectory equality.
	QueryByGroup(ctx context.Context, group, subdirectory string) ([]models.DistributionRecord, error)

	// QueryByUser scans the shared-with-user index.
	QueryByUser(ctx context.Context, userID string) ([]models.DistributionRecord, error)
}
