// Package docstore defines the document store adapter used by every domain store
// and its backends.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/router-for-me/DiaryHub/internal/models"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned by Get when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrPersist is the generic failure surfaced to callers when a write is rejected.
	ErrPersist = errors.New("save failed, please retry")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("document store closed")
)

// SnapshotFunc receives the full contents of a collection after a change.
type SnapshotFunc func(docs []models.Document)

// Store is an async key/value document store with realtime change notification.
type Store interface {
	// Get loads one document or returns ErrNotFound.
	Get(ctx context.Context, collection, id string) (models.Document, error)
	// List loads every document of a collection.
	List(ctx context.Context, collection string) ([]models.Document, error)
	// Put creates or fully replaces a document.
	Put(ctx context.Context, collection, id string, data []byte) error
	// Delete removes a document; a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Watch delivers the current snapshot before returning and every later change
	// until ctx is done or the store is closed.
	Watch(ctx context.Context, collection string, fn SnapshotFunc) error
	// Close releases backend resources and stops subscriptions.
	Close() error
}

// PutJSON marshals v and stores it under collection/id.
func PutJSON(ctx context.Context, store Store, collection, id string, v any) error {
	if store == nil {
		return fmt.Errorf("docstore: nil store")
	}
	data, errMarshal := json.Marshal(v)
	if errMarshal != nil {
		return fmt.Errorf("docstore: marshal %s/%s: %w", collection, id, errMarshal)
	}
	return store.Put(ctx, collection, id, data)
}

// Decode unmarshals documents into T, skipping malformed entries.
func Decode[T any](docs []models.Document) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if errUnmarshal := json.Unmarshal(doc.Data, &item); errUnmarshal != nil {
			log.WithError(errUnmarshal).Warnf("docstore: skip malformed document %s/%s", doc.Collection, doc.Key)
			continue
		}
		out = append(out, item)
	}
	return out
}

// Persisted converts a backend error into ErrPersist, logging the cause.
func Persisted(component string, err error) error {
	if err == nil {
		return nil
	}
	log.WithError(err).Warnf("%s: persist failed", component)
	return fmt.Errorf("%w: %v", ErrPersist, err)
}
