package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	"gorm.io/datatypes"
)

type memoryWatcher struct {
	ctx context.Context
	fn  SnapshotFunc
}

// MemoryStore keeps documents in process memory and delivers snapshots inline.
type MemoryStore struct {
	// dispatchMu serializes writes with their snapshot delivery.
	dispatchMu sync.Mutex

	mu          sync.RWMutex
	collections map[string]map[string]models.Document
	watchers    map[string][]memoryWatcher
	writeErr    error
	closed      bool
	seq         uint64
	now         func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]models.Document),
		watchers:    make(map[string][]memoryWatcher),
		now:         time.Now,
	}
}

// SetWriteError makes every later write fail with err until cleared with nil.
func (s *MemoryStore) SetWriteError(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Get loads one document.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return models.Document{}, ErrClosed
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return models.Document{}, ErrNotFound
	}
	return copyDocument(doc), nil
}

// List loads every document of a collection ordered by insertion.
func (s *MemoryStore) List(_ context.Context, collection string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.snapshotLocked(collection), nil
}

// Put creates or replaces a document and notifies watchers.
func (s *MemoryStore) Put(_ context.Context, collection, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("memory store: missing id")
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if errWrite := s.writableLocked(); errWrite != nil {
		s.mu.Unlock()
		return errWrite
	}
	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]models.Document)
		s.collections[collection] = docs
	}
	now := s.now().UTC()
	doc, exists := docs[id]
	if !exists {
		s.seq++
		doc = models.Document{ID: s.seq, Collection: collection, Key: id, CreatedAt: now}
	}
	doc.Data = datatypes.JSON(append([]byte(nil), data...))
	doc.UpdatedAt = now
	docs[id] = doc
	snapshot, watchers := s.snapshotLocked(collection), s.liveWatchersLocked(collection)
	s.mu.Unlock()

	deliver(watchers, snapshot)
	return nil
}

// Delete removes a document and notifies watchers.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if errWrite := s.writableLocked(); errWrite != nil {
		s.mu.Unlock()
		return errWrite
	}
	if _, ok := s.collections[collection][id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.collections[collection], id)
	snapshot, watchers := s.snapshotLocked(collection), s.liveWatchersLocked(collection)
	s.mu.Unlock()

	deliver(watchers, snapshot)
	return nil
}

// Watch registers fn and delivers the current snapshot immediately.
func (s *MemoryStore) Watch(ctx context.Context, collection string, fn SnapshotFunc) error {
	if fn == nil {
		return fmt.Errorf("memory store: nil snapshot func")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.watchers[collection] = append(s.watchers[collection], memoryWatcher{ctx: ctx, fn: fn})
	snapshot := s.snapshotLocked(collection)
	s.mu.Unlock()

	fn(snapshot)
	return nil
}

// Close drops all watchers.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.watchers = make(map[string][]memoryWatcher)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) writableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.writeErr != nil {
		return fmt.Errorf("memory store: %w", s.writeErr)
	}
	return nil
}

func (s *MemoryStore) snapshotLocked(collection string) []models.Document {
	docs := s.collections[collection]
	out := make([]models.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, copyDocument(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) liveWatchersLocked(collection string) []memoryWatcher {
	current := s.watchers[collection]
	live := current[:0]
	for _, w := range current {
		if w.ctx.Err() == nil {
			live = append(live, w)
		}
	}
	s.watchers[collection] = live
	return append([]memoryWatcher(nil), live...)
}

func deliver(watchers []memoryWatcher, snapshot []models.Document) {
	for _, w := range watchers {
		docs := make([]models.Document, len(snapshot))
		for i := range snapshot {
			docs[i] = copyDocument(snapshot[i])
		}
		w.fn(docs)
	}
}

func copyDocument(doc models.Document) models.Document {
	out := doc
	out.Data = datatypes.JSON(append([]byte(nil), doc.Data...))
	return out
}
