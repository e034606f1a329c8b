// Package authcache holds the claim set issued with each token, keyed by
// user id. It is the source of truth for permission checks: a token remains
// cryptographically valid after logout, but once its entry is gone every
// claims lookup fails.
package authcache

import (
	"context"

	"github.com/fieldform/backend/internal/claims"
)

// Entry is the ephemeral per-user record written on every token issuance.
// At most one entry exists per user id; writes overwrite, never merge.
type Entry struct {
	TimeStamp int64          `json:"time_stamp"`
	Claims    []claims.Claim `json:"claims"`
}

// Store is the injected cache abstraction. All implementations must be safe
// under concurrent Set/TryGet/Remove; last-writer-wins is the accepted
// consistency model.
type Store interface {
	Set(ctx context.Context, userID uint, entry Entry) error
	TryGet(ctx context.Context, userID uint) (Entry, bool, error)
	Remove(ctx context.Context, userID uint) error
}
