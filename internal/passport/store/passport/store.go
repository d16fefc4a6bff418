// Package passport provides the passport record store: one keyed map of
// records plus a secondary owner index, both updated atomically.
package passport

import (
	"context"

	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
)

// Store is the persistence port for passport records. Implementations must
// guarantee:
//
//   - Create assigns the next sequential token id and inserts the record and
//     its owner-index entry in one atomic step, failing with
//     sentinel.ErrConflict when the owner already holds a record. Ids are
//     never reused, even after Delete.
//   - Execute holds the write lock (mutex or SELECT FOR UPDATE) across both
//     callbacks so validate-then-mutate is indivisible. When validate returns
//     an error, no state changes. The validate callback must not mutate.
//   - Delete removes the record and frees the owner index together, after the
//     validate callback passes under the same lock.
//   - Reads return copies; no caller ever holds a reference into internal
//     storage.
type Store interface {
	Create(ctx context.Context, p *models.Passport) (id.TokenID, error)
	FindByID(ctx context.Context, tokenID id.TokenID) (*models.Passport, error)
	FindByOwner(ctx context.Context, owner id.Address) (*models.Passport, error)
	Execute(ctx context.Context, tokenID id.TokenID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error)
	Delete(ctx context.Context, tokenID id.TokenID, validate func(*models.Passport) error) (*models.Passport, error)
	Count(ctx context.Context) (int, error)
}
