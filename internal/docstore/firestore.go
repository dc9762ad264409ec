package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/router-for-me/DiaryHub/internal/models"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/datatypes"
)

// FirestoreStore keeps documents in Cloud Firestore and uses its realtime listeners.
type FirestoreStore struct {
	client *firestore.Client

	mu        sync.Mutex
	iterators []*firestore.QuerySnapshotIterator
	closed    bool
	wg        sync.WaitGroup
}

// NewFirestoreStore creates a Firestore client for projectID.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("firestore store: missing project id")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client, errClient := firestore.NewClient(ctx, projectID)
	if errClient != nil {
		return nil, fmt.Errorf("firestore store: new client: %w", errClient)
	}
	log.Infof("firestore store connected (project=%s)", projectID)
	return &FirestoreStore{client: client}, nil
}

// Get loads one document.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	snap, errGet := s.client.Collection(collection).Doc(id).Get(ctx)
	if errGet != nil {
		if status.Code(errGet) == codes.NotFound {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, fmt.Errorf("firestore store: get %s/%s: %w", collection, id, errGet)
	}
	return firestoreDocument(collection, snap)
}

// List loads every document of a collection.
func (s *FirestoreStore) List(ctx context.Context, collection string) ([]models.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	snaps, errAll := s.client.Collection(collection).Documents(ctx).GetAll()
	if errAll != nil {
		return nil, fmt.Errorf("firestore store: list %s: %w", collection, errAll)
	}
	return firestoreDocuments(collection, snaps), nil
}

// Put replaces a document with the decoded JSON object.
func (s *FirestoreStore) Put(ctx context.Context, collection, id string, data []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("firestore store: missing id")
	}
	var body map[string]any
	if errUnmarshal := json.Unmarshal(data, &body); errUnmarshal != nil {
		return fmt.Errorf("firestore store: document %s/%s is not an object: %w", collection, id, errUnmarshal)
	}
	if _, errSet := s.client.Collection(collection).Doc(id).Set(ctx, body); errSet != nil {
		return fmt.Errorf("firestore store: set %s/%s: %w", collection, id, errSet)
	}
	return nil
}

// Delete removes a document.
func (s *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, errDelete := s.client.Collection(collection).Doc(id).Delete(ctx); errDelete != nil {
		return fmt.Errorf("firestore store: delete %s/%s: %w", collection, id, errDelete)
	}
	return nil
}

// Watch opens a realtime listener on collection.
func (s *FirestoreStore) Watch(ctx context.Context, collection string, fn SnapshotFunc) error {
	if fn == nil {
		return fmt.Errorf("firestore store: nil snapshot func")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	it := s.client.Collection(collection).Snapshots(ctx)
	s.iterators = append(s.iterators, it)
	s.mu.Unlock()

	first, errNext := it.Next()
	if errNext != nil {
		it.Stop()
		return fmt.Errorf("firestore store: listen %s: %w", collection, errNext)
	}
	if errDeliver := deliverQuerySnapshot(collection, first, fn); errDeliver != nil {
		it.Stop()
		return errDeliver
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer it.Stop()
		for {
			snap, errLoop := it.Next()
			if errLoop != nil {
				if ctx.Err() != nil || status.Code(errLoop) == codes.Canceled {
					return
				}
				log.WithError(errLoop).Warnf("firestore store: listener %s stopped", collection)
				return
			}
			if errDeliver := deliverQuerySnapshot(collection, snap, fn); errDeliver != nil {
				log.WithError(errDeliver).Warnf("firestore store: read snapshot %s failed", collection)
			}
		}
	}()
	return nil
}

// Close stops every listener and closes the client.
func (s *FirestoreStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	iterators := s.iterators
	s.iterators = nil
	s.mu.Unlock()

	for _, it := range iterators {
		it.Stop()
	}
	s.wg.Wait()
	if errClose := s.client.Close(); errClose != nil {
		return fmt.Errorf("firestore store: close: %w", errClose)
	}
	return nil
}

func deliverQuerySnapshot(collection string, snap *firestore.QuerySnapshot, fn SnapshotFunc) error {
	if snap == nil || snap.Documents == nil {
		fn(nil)
		return nil
	}
	snaps, errAll := snap.Documents.GetAll()
	if errAll != nil {
		return fmt.Errorf("firestore store: read %s: %w", collection, errAll)
	}
	fn(firestoreDocuments(collection, snaps))
	return nil
}

func firestoreDocuments(collection string, snaps []*firestore.DocumentSnapshot) []models.Document {
	out := make([]models.Document, 0, len(snaps))
	for _, snap := range snaps {
		doc, errDoc := firestoreDocument(collection, snap)
		if errDoc != nil {
			log.WithError(errDoc).Warnf("firestore store: skip document in %s", collection)
			continue
		}
		out = append(out, doc)
	}
	return out
}

func firestoreDocument(collection string, snap *firestore.DocumentSnapshot) (models.Document, error) {
	if snap == nil || snap.Ref == nil {
		return models.Document{}, errors.New("firestore store: empty snapshot")
	}
	data, errMarshal := json.Marshal(snap.Data())
	if errMarshal != nil {
		return models.Document{}, fmt.Errorf("firestore store: marshal %s/%s: %w", collection, snap.Ref.ID, errMarshal)
	}
	return models.Document{
		Collection: collection,
		Key:        snap.Ref.ID,
		Data:       datatypes.JSON(data),
		CreatedAt:  snap.CreateTime,
		UpdatedAt:  snap.UpdateTime,
	}, nil
}
