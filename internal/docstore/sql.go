package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/watcher"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore persists documents as JSON rows via GORM and polls for changes.
type SQLStore struct {
	db     *gorm.DB
	poller *watcher.Poller
	now    func() time.Time

	startOnce sync.Once
}

// NewSQLStore constructs a SQLStore over a migrated connection.
func NewSQLStore(db *gorm.DB, pollInterval time.Duration) *SQLStore {
	s := &SQLStore{db: db, now: time.Now}
	s.poller = watcher.NewPoller(sqlSource{store: s}, pollInterval)
	return s
}

// Get loads one document.
func (s *SQLStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	if s == nil || s.db == nil {
		return models.Document{}, fmt.Errorf("sql store: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var row models.Document
	errFind := s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, id).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, fmt.Errorf("sql store: get %s/%s: %w", collection, id, errFind)
	}
	return row, nil
}

// List loads every document of a collection ordered by insertion.
func (s *SQLStore) List(ctx context.Context, collection string) ([]models.Document, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sql store: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var rows []models.Document
	if errFind := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("sql store: list %s: %w", collection, errFind)
	}
	return rows, nil
}

// Put upserts a document and refreshes local subscribers.
func (s *SQLStore) Put(ctx context.Context, collection, id string, data []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sql store: missing id")
	}

	now := s.now().UTC()
	record := models.Document{
		Collection: collection,
		Key:        id,
		Data:       datatypes.JSON(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&record).Error; errUpsert != nil {
		return fmt.Errorf("sql store: upsert %s/%s: %w", collection, id, errUpsert)
	}
	s.refresh(ctx, collection)
	return nil
}

// Delete removes a document and refreshes local subscribers.
func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store: not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	res := s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, id).
		Delete(&models.Document{})
	if res.Error != nil {
		return fmt.Errorf("sql store: delete %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected > 0 {
		s.refresh(ctx, collection)
	}
	return nil
}

// refresh pushes a local write to subscribers without waiting for the next tick.
func (s *SQLStore) refresh(ctx context.Context, collection string) {
	if errRefresh := s.poller.Refresh(ctx, collection); errRefresh != nil {
		log.WithError(errRefresh).Warnf("sql store: refresh %s failed", collection)
	}
}

// Watch subscribes fn to collection and starts the poll loop on first use.
func (s *SQLStore) Watch(ctx context.Context, collection string, fn SnapshotFunc) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sql store: not initialized")
	}
	s.startOnce.Do(func() { s.poller.Start(context.Background()) })
	return s.poller.Subscribe(ctx, collection, fn)
}

// Close stops the poll loop.
func (s *SQLStore) Close() error {
	if s == nil {
		return nil
	}
	s.poller.Stop()
	return nil
}

// sqlSource exposes the documents table to the poller.
type sqlSource struct {
	store *SQLStore
}

// Latest returns the newest row marker and row count of a collection.
func (src sqlSource) Latest(ctx context.Context, collection string) (watcher.Marker, error) {
	db := src.store.db.WithContext(ctx)

	// latestRow captures the newest document timestamp for change detection.
	type latestRow struct {
		ID        uint64     `gorm:"column:id"`         // Latest document ID.
		UpdatedAt *time.Time `gorm:"column:updated_at"` // Latest document update timestamp.
	}
	var latest latestRow
	marker := watcher.Marker{}
	errLatest := db.Model(&models.Document{}).
		Select("id", "updated_at").
		Where("collection = ?", collection).
		Order("updated_at DESC, id DESC").
		Limit(1).
		Take(&latest).Error
	switch {
	case errLatest == nil:
		marker.Key = strconv.FormatUint(latest.ID, 10)
		if latest.UpdatedAt != nil {
			marker.UpdatedAt = latest.UpdatedAt.UTC()
		}
	case errors.Is(errLatest, gorm.ErrRecordNotFound):
	default:
		return watcher.Marker{}, errLatest
	}

	if errCount := db.Model(&models.Document{}).
		Where("collection = ?", collection).
		Count(&marker.Count).Error; errCount != nil {
		return watcher.Marker{}, errCount
	}
	return marker, nil
}

// List loads every document of a collection.
func (src sqlSource) List(ctx context.Context, collection string) ([]models.Document, error) {
	return src.store.List(ctx, collection)
}
