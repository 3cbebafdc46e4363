// Package kvstore provides the key/value storage port consumed by providers
// and the session manager. Two isolated areas exist: a small synced area for
// settings and a larger local area for cached snapshots and tokens.
package kvstore

import (
	"context"
	"errors"
)

// Area identifies one of the two isolated storage areas.
type Area string

const (
	// AreaSynced is the small, settings-oriented area.
	AreaSynced Area = "synced"

	// AreaLocal is the larger area holding snapshots and tokens.
	AreaLocal Area = "local"
)

// Capacity ceilings per area, in bytes per value. The synced area mirrors
// the tight quota of browser sync storage; the local area is generous.
const (
	SyncedQuotaBytes = 8 * 1024
	LocalQuotaBytes  = 5 * 1024 * 1024
)

// ErrQuotaExceeded is returned by Set when a value exceeds the area quota.
var ErrQuotaExceeded = errors.New("kvstore: value exceeds area quota")

// ChangeFunc is invoked after a key in the store changes or is removed.
type ChangeFunc func(key string)

// Store is an async key/value area.
// Get decodes the stored JSON value into dest and reports whether the key
// existed. Decoding failures surface as errors so callers can apply their
// own corruption policy.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// OnChange registers a change listener and returns an unsubscribe func.
	OnChange(fn ChangeFunc) (unsubscribe func())
}

// Get reads key from s, returning def when the key is absent.
func Get[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}
