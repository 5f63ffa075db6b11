package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthHMACSecret  string
	EnableLocalAuth bool

	AdminUser     string
	AdminPassHash string // bcrypt; empty disables admin login

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	PositionStore string // sql|redis
	RedisAddr     string
	RedisPrefix   string

	LogMode        string // development|production
	RequestTimeout time.Duration
}

// CORSOrigins picks the origin list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// ClientConfig is read by coursectl.
type ClientConfig struct {
	APIBaseURL     string
	APIToken       string
	APITimeout     time.Duration
	PlayerStateDSN string // sqlite file for the local resume position; empty keeps it on the server
	LogMode        string
}

// LoadDotEnv reads .env (or the given files) into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

func FromEnv() Config {
	mode := Mode(envOr("MODE", string(ModeOffline)))
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", mode == ModeOffline),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      os.Getenv("ADMIN_PASS_HASH"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://courses.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
		PositionStore:      envOr("POSITION_STORE", "sql"),
		RedisAddr:          envOr("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:        envOr("REDIS_PREFIX", "courseware:"),
		LogMode:            envOr("LOG_MODE", "development"),
		RequestTimeout:     envDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func ClientFromEnv() ClientConfig {
	return ClientConfig{
		APIBaseURL:     envOr("API_BASE_URL", "http://localhost:8080"),
		APIToken:       os.Getenv("API_TOKEN"),
		APITimeout:     envDuration("API_TIMEOUT", 15*time.Second),
		PlayerStateDSN: os.Getenv("PLAYER_STATE_DSN"),
		LogMode:        envOr("LOG_MODE", "development"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
