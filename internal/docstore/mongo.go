package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/watcher"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"
)

const mongoConnectTimeout = 10 * time.Second

// mongoDocument is the stored shape of one document.
type mongoDocument struct {
	ID        string    `bson:"_id"`
	Data      string    `bson:"data"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps each logical collection in a MongoDB collection.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	poller   *watcher.Poller
	now      func() time.Time

	startOnce sync.Once
}

// NewMongoStore connects to uri and verifies the server with a ping.
func NewMongoStore(ctx context.Context, uri, database string, pollInterval time.Duration) (*MongoStore, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("mongo store: missing uri")
	}
	database = strings.TrimSpace(database)
	if database == "" {
		return nil, fmt.Errorf("mongo store: missing database")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, errConnect := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if errConnect != nil {
		return nil, fmt.Errorf("mongo store: connect: %w", errConnect)
	}
	if errPing := client.Ping(connectCtx, nil); errPing != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo store: ping: %w", errPing)
	}

	s := &MongoStore{client: client, database: client.Database(database), now: time.Now}
	s.poller = watcher.NewPoller(mongoSource{store: s}, pollInterval)
	log.Infof("mongo store connected (database=%s)", database)
	return s, nil
}

// Get loads one document.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var row mongoDocument
	errFind := s.database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&row)
	if errFind != nil {
		if errors.Is(errFind, mongo.ErrNoDocuments) {
			return models.Document{}, ErrNotFound
		}
		return models.Document{}, fmt.Errorf("mongo store: get %s/%s: %w", collection, id, errFind)
	}
	return row.document(collection), nil
}

// List loads every document of a collection.
func (s *MongoStore) List(ctx context.Context, collection string) ([]models.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cursor, errFind := s.database.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if errFind != nil {
		return nil, fmt.Errorf("mongo store: list %s: %w", collection, errFind)
	}
	var rows []mongoDocument
	if errAll := cursor.All(ctx, &rows); errAll != nil {
		return nil, fmt.Errorf("mongo store: decode %s: %w", collection, errAll)
	}
	out := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.document(collection))
	}
	return out, nil
}

// Put upserts a document and refreshes local subscribers.
func (s *MongoStore) Put(ctx context.Context, collection, id string, data []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("mongo store: missing id")
	}
	now := s.now().UTC()
	coll := s.database.Collection(collection)
	_, errUpdate := coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":         bson.M{"data": string(data), "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if errUpdate != nil {
		return fmt.Errorf("mongo store: upsert %s/%s: %w", collection, id, errUpdate)
	}
	s.refresh(ctx, collection)
	return nil
}

// Delete removes a document and refreshes local subscribers.
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, errDelete := s.database.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if errDelete != nil {
		return fmt.Errorf("mongo store: delete %s/%s: %w", collection, id, errDelete)
	}
	if res.DeletedCount > 0 {
		s.refresh(ctx, collection)
	}
	return nil
}

// Watch subscribes fn to collection and starts the poll loop on first use.
func (s *MongoStore) Watch(ctx context.Context, collection string, fn SnapshotFunc) error {
	s.startOnce.Do(func() { s.poller.Start(context.Background()) })
	return s.poller.Subscribe(ctx, collection, fn)
}

// Close stops polling and disconnects the client.
func (s *MongoStore) Close() error {
	if s == nil {
		return nil
	}
	s.poller.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	if errDisconnect := s.client.Disconnect(ctx); errDisconnect != nil {
		return fmt.Errorf("mongo store: disconnect: %w", errDisconnect)
	}
	return nil
}

func (s *MongoStore) refresh(ctx context.Context, collection string) {
	if errRefresh := s.poller.Refresh(ctx, collection); errRefresh != nil {
		log.WithError(errRefresh).Warnf("mongo store: refresh %s failed", collection)
	}
}

func (row mongoDocument) document(collection string) models.Document {
	return models.Document{
		Collection: collection,
		Key:        row.ID,
		Data:       datatypes.JSON(row.Data),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

// mongoSource exposes Mongo collections to the poller.
type mongoSource struct {
	store *MongoStore
}

// Latest returns the newest document marker and the document count.
func (src mongoSource) Latest(ctx context.Context, collection string) (watcher.Marker, error) {
	coll := src.store.database.Collection(collection)
	marker := watcher.Marker{}

	var latest mongoDocument
	errFind := coll.FindOne(ctx, bson.M{}, options.FindOne().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"_id": 1, "updatedAt": 1})).Decode(&latest)
	switch {
	case errFind == nil:
		marker.Key = latest.ID
		marker.UpdatedAt = latest.UpdatedAt.UTC()
	case errors.Is(errFind, mongo.ErrNoDocuments):
	default:
		return watcher.Marker{}, errFind
	}

	count, errCount := coll.CountDocuments(ctx, bson.M{})
	if errCount != nil {
		return watcher.Marker{}, errCount
	}
	marker.Count = count
	return marker, nil
}

// List loads every document of a collection.
func (src mongoSource) List(ctx context.Context, collection string) ([]models.Document, error) {
	return src.store.List(ctx, collection)
}
