package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MongoConfig holds MongoDB settings. When URI is set the Mongo listing store
// is used instead of PostgreSQL.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ForwardConfig controls how source adapters hand messages to the ingestion gateway.
type ForwardConfig struct {
	// Endpoint is the base URL of the gateway API group, e.g. http://localhost:5000/api.
	// Empty means messages are ingested in-process.
	Endpoint string
	Timeout  time.Duration
	RPS      float64
	Burst    int
}

// ChatConfig holds settings for the chat-automation bridge.
type ChatConfig struct {
	Port             string
	SessionID        string
	BridgeURL        string
	BridgeAPIKey     string
	WebhookHMACKey   string
	WatchdogInterval time.Duration
	// AccountBJID is the secondary account identifier. Loaded for parity with
	// existing deployments; nothing reads it yet.
	AccountBJID string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level    string
	Pretty   bool
	Timezone string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port        string
	APIBasePath string
	VerifyToken string
	BrochureDir string
	RulesPath   string
	Log         LogConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	MinIO       MinIOConfig
	Forward     ForwardConfig
	Chat        ChatConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:        getEnv("PORT", "5000"),
		APIBasePath: normalizeBasePath(getEnv("API_BASE_PATH", "/api")),
		VerifyToken: getEnv("VERIFY_TOKEN", ""),
		BrochureDir: getEnv("BROCHURE_DIR", "brochures"),
		RulesPath:   getEnv("RULES_PATH", ""),
		Log: LogConfig{
			Level:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Pretty:   getEnvBool("LOG_PRETTY", false),
			Timezone: getEnv("TZ_NAME", "UTC"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", ""),
			Database:   getEnv("MONGO_DATABASE", "propertybot"),
			Collection: getEnv("MONGO_COLLECTION", "listings"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Forward: ForwardConfig{
			Endpoint: strings.TrimRight(getEnv("LOCAL_BACKEND_ENDPOINT", ""), "/"),
			Timeout:  getEnvDuration("FORWARD_TIMEOUT", 10*time.Second),
			RPS:      getEnvFloat("FORWARD_RPS", 20),
			Burst:    getEnvInt("FORWARD_BURST", 40),
		},
		Chat: ChatConfig{
			Port:             getEnv("CHAT_PORT", "5001"),
			SessionID:        getEnv("SESSION_ID", "property-bot-session"),
			BridgeURL:        strings.TrimRight(getEnv("WAHA_URL", "http://localhost:3000"), "/"),
			BridgeAPIKey:     getEnv("WAHA_API_KEY", ""),
			WebhookHMACKey:   getEnv("WAHA_WEBHOOK_HMAC_KEY", ""),
			WatchdogInterval: getEnvDuration("WATCHDOG_INTERVAL", 30*time.Second),
			AccountBJID:      getEnv("ACCOUNT_B_JID", ""),
		},
	}
}

// UseMongo reports whether listings are stored in MongoDB.
func (c *AppConfig) UseMongo() bool {
	return c.Mongo.URI != ""
}

// UseMinIO reports whether brochures go to object storage instead of a local directory.
func (c *AppConfig) UseMinIO() bool {
	return c.MinIO.Endpoint != ""
}

// Location resolves the configured log timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Log.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
