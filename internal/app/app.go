package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/config"
	"github.com/router-for-me/DiaryHub/internal/db"
	"github.com/router-for-me/DiaryHub/internal/http/api/admin"
	"github.com/router-for-me/DiaryHub/internal/http/api/front"
	"github.com/router-for-me/DiaryHub/internal/http/middleware"
	"github.com/router-for-me/DiaryHub/internal/logging"
	"github.com/router-for-me/DiaryHub/internal/ratelimit"
	"github.com/router-for-me/DiaryHub/internal/settings"
	"github.com/router-for-me/DiaryHub/internal/summary"
	log "github.com/sirupsen/logrus"
)

// Version is the build version reported by /v0/version.
var Version = "dev"

// Migrate opens the SQL database and creates the documents table.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// serverConfig bundles every resolved config section RunServer needs.
type serverConfig struct {
	server     config.ServerConfig
	jwt        config.JWTConfig
	store      config.StoreConfig
	identity   config.IdentityConfig
	summarizer config.SummarizerConfig
	rateLimit  config.RateLimitConfig
}

func loadServerConfig(configPath string) (serverConfig, error) {
	var out serverConfig
	var err error
	if out.server, err = config.LoadServerConfig(configPath); err != nil {
		return out, err
	}
	if out.jwt, err = config.LoadJWTConfig(configPath); err != nil {
		return out, err
	}
	if out.store, err = config.LoadStoreConfig(configPath); err != nil {
		return out, err
	}
	if out.identity, err = config.LoadIdentityConfig(configPath); err != nil {
		return out, err
	}
	if out.summarizer, err = config.LoadSummarizerConfig(configPath); err != nil {
		return out, err
	}
	if out.rateLimit, err = config.LoadRateLimitConfig(configPath); err != nil {
		return out, err
	}
	return out, nil
}

// RunServer boots the DiaryHub HTTP server and blocks until ctx is done.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	if _, errEnsure := EnsureConfig(configPath, defaultPort); errEnsure != nil {
		return errEnsure
	}
	resolved, errLoad := loadServerConfig(configPath)
	if errLoad != nil {
		return errLoad
	}
	if resolved.jwt.Secret == "" {
		return fmt.Errorf("app: jwt secret is empty (set jwt.secret or %s)", config.EnvJWTSecret)
	}

	logCloser, errLogging := logging.Setup(resolved.server)
	if errLogging != nil {
		return errLogging
	}
	defer func() { _ = logCloser.Close() }()

	docs, errOpen := OpenStore(ctx, configPath, resolved.store)
	if errOpen != nil {
		return errOpen
	}
	services := NewServices(docs, resolved.identity)
	defer func() {
		if errClose := services.Close(); errClose != nil {
			log.WithError(errClose).Warn("app: close document store")
		}
	}()
	if errStart := services.Start(ctx); errStart != nil {
		return errStart
	}

	limiter := ratelimit.NewManager(ratelimit.PolicyFromConfig(resolved.rateLimit), ratelimit.RedisFromConfig(resolved.rateLimit.Redis))
	defer func() { _ = limiter.Close() }()

	summarizer := summary.NewClient(resolved.summarizer)
	if !summarizer.Enabled() {
		log.Warn("summarizer disabled: set summarizer.base-url and summarizer.api-key to enable major event extraction")
	}

	engine := NewEngine(services, summarizer, limiter, resolved.jwt)
	addr := resolved.server.Addr(defaultPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errServe := make(chan error, 1)
	go func() {
		log.Infof("starting %s on %s (config=%s backend=%s)", settings.SiteName, addr, configPath, resolved.store.Backend)
		if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errServe <- errListen
		}
		close(errServe)
	}()

	select {
	case errListen, ok := <-errServe:
		if ok {
			return fmt.Errorf("app: listen: %w", errListen)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		log.Errorf("server shutdown error: %v", errShutdown)
		return errShutdown
	}
	log.Info("server stopped")
	return nil
}

// NewEngine builds the gin engine serving the front and admin routes.
func NewEngine(services *Services, summarizer summary.Extractor, limiter *ratelimit.Manager, jwtCfg config.JWTConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(logging.GinLogger(), gin.Recovery())

	sessionMiddleware := middleware.Session(services.Users, jwtCfg)

	front.RegisterFrontRoutes(engine, front.Deps{
		Users:         services.Users,
		Diaries:       services.Diaries,
		Notifications: services.Notifications,
		Feedback:      services.Feedback,
		Announcements: services.Announcements,
		Summarizer:    summarizer,
		JWT:           jwtCfg,
		Limiter:       limiter,
	}, sessionMiddleware)
	admin.RegisterAdminRoutes(engine, admin.Deps{
		Diaries:       services.Diaries,
		Feedback:      services.Feedback,
		Announcements: services.Announcements,
		Users:         services,
		Health:        services.Healthy,
		Version:       Version,
	}, sessionMiddleware)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}
