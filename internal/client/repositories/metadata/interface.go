// Package metadata stores small client-side preferences as key/value rows.
// Nothing secret is ever written here.
package metadata

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no row.
var ErrNotFound = errors.New("metadata key not found")

type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
