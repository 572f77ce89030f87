// Package store implements component C3, the Local Store: persistence of
// the Local Session Envelope (spec §3-C3). The envelope is the only
// long-lived client state, so every write here must be crash-safe - a
// partially written file must never be observed as valid JSON (spec
// invariant 5).
package store

import (
	"context"

	"github.com/ewsdk/wallet-core/types"
)

// LocalStore persists the session envelope across process restarts.
type LocalStore interface {
	// Load returns the persisted envelope, or types.ErrNotFound if none
	// has ever been saved (or it was cleared).
	Load(ctx context.Context) (*types.Envelope, error)
	// Save overwrites the persisted envelope atomically.
	Save(ctx context.Context, envelope *types.Envelope) error
	// RemoveAuthToken clears only the auth token field, leaving the
	// device share behind (spec §4.2: "leaving device share behind is
	// acceptable - it is useless without a token").
	RemoveAuthToken(ctx context.Context) error
	// Clear deletes the envelope entirely.
	Clear(ctx context.Context) error
}
