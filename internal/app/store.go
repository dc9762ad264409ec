package app

import (
	"context"
	"fmt"

	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/db"
	"github.com/router-for-me/DiaryHub/internal/docstore"
	log "github.com/sirupsen/logrus"
)

// OpenStore opens the document store selected by storeCfg. The SQL backend
// reads the DSN from configPath and migrates the documents table.
func OpenStore(ctx context.Context, configPath string, storeCfg config.StoreConfig) (docstore.Store, error) {
	switch storeCfg.Backend {
	case config.BackendFirestore:
		log.Infof("opening firestore document store (project=%s)", storeCfg.FirestoreProject)
		store, errOpen := docstore.NewFirestoreStore(ctx, storeCfg.FirestoreProject)
		if errOpen != nil {
			return nil, errOpen
		}
		return store, nil
	case config.BackendMongo:
		log.Infof("opening mongo document store (database=%s)", storeCfg.MongoDatabase)
		store, errOpen := docstore.NewMongoStore(ctx, storeCfg.MongoURI, storeCfg.MongoDatabase, storeCfg.PollInterval)
		if errOpen != nil {
			return nil, errOpen
		}
		return store, nil
	case config.BackendSQL, "":
		dsn, errDSN := config.LoadDatabaseDSN(configPath)
		if errDSN != nil {
			return nil, errDSN
		}
		info, errDescribe := describeDSN(dsn)
		if errDescribe == nil {
			log.Infof("opening sql document store (%s)", info)
		}
		conn, errOpen := db.Open(dsn)
		if errOpen != nil {
			return nil, errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return nil, errMigrate
		}
		return docstore.NewSQLStore(conn, storeCfg.PollInterval), nil
	default:
		return nil, fmt.Errorf("app: unsupported store backend: %s", storeCfg.Backend)
	}
}
