// Package cloud persists per-user document collections in Firestore.
package cloud

import (
	"context"
	"errors"
)

// Collection names under each user document.
const (
	CollectionTasks    = "tasks"
	CollectionProjects = "projects"
)

// Document is the flat field map stored for a single entity. Every
// document carries its entity id in the "id" field.
type Document = map[string]any

// ErrMissingID indicates a document without an "id" field was handed to a
// batch write.
var ErrMissingID = errors.New("document has no id field")

// Store defines the remote document operations the sync engine needs.
// Implementations must treat the signed-out state as a silent no-op, not
// an error, so local edits never block on auth state.
type Store interface {
	// ListAll returns every document in the user's collection, or an
	// empty slice when signed out.
	ListAll(ctx context.Context, collection string) ([]Document, error)

	// Upsert overwrites the whole document stored under id.
	Upsert(ctx context.Context, collection, id string, doc Document) error

	// Delete removes the document stored under id; absent ids are a no-op.
	Delete(ctx context.Context, collection, id string) error

	// BatchUpsert writes all documents in one batch: they commit together
	// or not at all.
	BatchUpsert(ctx context.Context, collection string, docs []Document) error
}

// SessionSource reports the currently signed-in user, if any. The auth
// service implements this; it decouples the store from session handling.
type SessionSource interface {
	UserID() (string, bool)
}
