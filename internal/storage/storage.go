// Package storage holds the binary storage collaborator contract. The core
// only ever sees opaque locators; naming and layout belong to the
// implementation.
package storage

import "context"

// BlobStore stores and retrieves raw attachment bytes.
type BlobStore interface {
	Store(ctx context.Context, ownerScope, name string, data []byte) (locator string, err error)
	Fetch(ctx context.Context, locator string) ([]byte, error)
}
