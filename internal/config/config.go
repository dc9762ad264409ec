package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath       = "CONFIG_PATH"
	EnvDBConnection     = "DB_CONNECTION"
	EnvJWTSecret        = "JWT_SECRET"
	EnvJWTExpiry        = "JWT_EXPIRY"
	EnvStoreBackend     = "STORE_BACKEND"
	EnvFirestoreProject = "FIRESTORE_PROJECT"
	EnvMongoURI         = "MONGO_URI"
	EnvMasterPassword   = "MASTER_PASSWORD"
	EnvAdminKey         = "ADMIN_KEY"
	EnvAIAPIKey         = "AI_API_KEY"
	EnvRedisAddr        = "RATE_LIMIT_REDIS_ADDR"
)

// Store backends.
const (
	BackendSQL       = "sql"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// ServerConfig holds listener and logging settings.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Debug         bool   `yaml:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file"`
	LogDir        string `yaml:"log-dir"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend          string        `yaml:"backend"`
	PollInterval     time.Duration `yaml:"poll-interval"`
	FirestoreProject string        `yaml:"firestore-project"`
	MongoURI         string        `yaml:"mongo-uri"`
	MongoDatabase    string        `yaml:"mongo-database"`
}

// IdentityConfig holds the reserved master account and the admin passphrase.
type IdentityConfig struct {
	MasterUID      string `yaml:"master-uid"`
	MasterUsername string `yaml:"master-username"`
	MasterPassword string `yaml:"master-password"`
	AdminKey       string `yaml:"admin-key"`
}

// SummarizerConfig configures the OpenAI-compatible major event extractor.
type SummarizerConfig struct {
	BaseURL string        `yaml:"base-url"`
	APIKey  string        `yaml:"api-key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig holds the optional redis backend of the request limiter.
type RedisConfig struct {
	Enable   bool   `yaml:"enable"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds per-caller action budgets. Zero values use the defaults.
type RateLimitConfig struct {
	Limit              int         `yaml:"limit"`
	SignInPerMinute    int         `yaml:"signin-per-minute"`
	FeedbackPerMinute  int         `yaml:"feedback-per-minute"`
	SummarizePerMinute int         `yaml:"summarize-per-minute"`
	Redis              RedisConfig `yaml:"redis"`
}

// fileConfig maps the full YAML config file.
type fileConfig struct {
	ServerConfig `yaml:",inline"`
	DatabaseDSN  string `yaml:"database-dsn"`
	Database     struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Store      StoreConfig      `yaml:"store"`
	Identity   IdentityConfig   `yaml:"identity"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	RateLimit  RateLimitConfig  `yaml:"rate-limit"`
}

// readFileConfig parses the YAML config file.
func readFileConfig(configPath string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return fileConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	return cfg, nil
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	cfg, err := readFileConfig(configPath)
	if err != nil {
		return "", err
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	result := JWTConfig{Expiry: defaultJWTExpiry}

	if cfg, errRead := readFileConfig(configPath); errRead == nil {
		result = cfg.JWT
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// DefaultPort is the listener port used when neither flag nor file sets one.
const DefaultPort = 8320

// LoadServerConfig loads listener and logging settings.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return ServerConfig{}, errRead
	}
	result := cfg.ServerConfig
	result.Host = strings.TrimSpace(result.Host)
	result.LogDir = strings.TrimSpace(result.LogDir)
	if result.LogDir == "" {
		result.LogDir = "logs"
	}
	return result, nil
}

// defaultStorePollInterval matches the watcher default.
const defaultStorePollInterval = 2 * time.Second

// LoadStoreConfig loads document store settings with env overrides.
func LoadStoreConfig(configPath string) (StoreConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return StoreConfig{}, errRead
	}
	result := cfg.Store

	if backend := strings.TrimSpace(os.Getenv(EnvStoreBackend)); backend != "" {
		result.Backend = backend
	}
	if project := strings.TrimSpace(os.Getenv(EnvFirestoreProject)); project != "" {
		result.FirestoreProject = project
	}
	if uri := strings.TrimSpace(os.Getenv(EnvMongoURI)); uri != "" {
		result.MongoURI = uri
	}

	result.Backend = strings.ToLower(strings.TrimSpace(result.Backend))
	switch result.Backend {
	case "":
		result.Backend = BackendSQL
	case BackendSQL, BackendFirestore, BackendMongo:
	default:
		return StoreConfig{}, fmt.Errorf("unsupported store backend: %s", result.Backend)
	}
	if result.PollInterval <= 0 {
		result.PollInterval = defaultStorePollInterval
	}
	if strings.TrimSpace(result.MongoDatabase) == "" {
		result.MongoDatabase = "diaryhub"
	}
	return result, nil
}

// Reserved identity defaults.
const (
	DefaultMasterUID      = "100000"
	DefaultMasterUsername = "awealy"
	DefaultMasterPassword = "111121"
	DefaultAdminKey       = "wyxrl_小樾"
)

// LoadIdentityConfig loads the master account and admin passphrase.
func LoadIdentityConfig(configPath string) (IdentityConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return IdentityConfig{}, errRead
	}
	result := cfg.Identity

	if password := os.Getenv(EnvMasterPassword); password != "" {
		result.MasterPassword = password
	}
	if key := os.Getenv(EnvAdminKey); key != "" {
		result.AdminKey = key
	}
	return result.WithDefaults(), nil
}

// WithDefaults fills empty fields with the reserved defaults.
func (c IdentityConfig) WithDefaults() IdentityConfig {
	if strings.TrimSpace(c.MasterUID) == "" {
		c.MasterUID = DefaultMasterUID
	}
	if strings.TrimSpace(c.MasterUsername) == "" {
		c.MasterUsername = DefaultMasterUsername
	}
	if c.MasterPassword == "" {
		c.MasterPassword = DefaultMasterPassword
	}
	if c.AdminKey == "" {
		c.AdminKey = DefaultAdminKey
	}
	return c
}

// Summarizer defaults.
const (
	DefaultSummarizerModel   = "gemini-2.5-flash"
	defaultSummarizerTimeout = 30 * time.Second
)

// LoadSummarizerConfig loads the major event extractor settings.
func LoadSummarizerConfig(configPath string) (SummarizerConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return SummarizerConfig{}, errRead
	}
	result := cfg.Summarizer

	if key := strings.TrimSpace(os.Getenv(EnvAIAPIKey)); key != "" {
		result.APIKey = key
	}
	result.BaseURL = strings.TrimRight(strings.TrimSpace(result.BaseURL), "/")
	if strings.TrimSpace(result.Model) == "" {
		result.Model = DefaultSummarizerModel
	}
	if result.Timeout <= 0 {
		result.Timeout = defaultSummarizerTimeout
	}
	return result, nil
}

// DefaultRateLimitRedisPrefix is the fallback redis key prefix.
const DefaultRateLimitRedisPrefix = "diaryhub:rl"

// LoadRateLimitConfig loads request throttling settings.
func LoadRateLimitConfig(configPath string) (RateLimitConfig, error) {
	cfg, errRead := readFileConfig(configPath)
	if errRead != nil && !errors.Is(errRead, os.ErrNotExist) {
		return RateLimitConfig{}, errRead
	}
	result := cfg.RateLimit

	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		result.Redis.Addr = addr
		result.Redis.Enable = true
	}
	if result.Limit < 0 {
		result.Limit = 0
	}
	if result.Redis.DB < 0 {
		result.Redis.DB = 0
	}
	result.Redis.Addr = strings.TrimSpace(result.Redis.Addr)
	if strings.TrimSpace(result.Redis.Prefix) == "" {
		result.Redis.Prefix = DefaultRateLimitRedisPrefix
	}
	return result, nil
}

// Addr returns the host:port listen address, falling back to defaultPort.
func (c ServerConfig) Addr(defaultPort int) string {
	port := c.Port
	if port <= 0 {
		port = defaultPort
	}
	if port <= 0 {
		port = DefaultPort
	}
	return c.Host + ":" + strconv.Itoa(port)
}
