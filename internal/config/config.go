package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        // API bind address, e.g., "127.0.0.1:8080" or ":8080" (Docker)
	APIPrefix       string        // mount point for the API routes; "" mounts at root
	LogDir          string        // logs directory
	LogLevel        string        // debug|info|warn|error
	LogStdout       bool          // also write logs to stderr
	DatabaseURL     string        // postgres://, sqlite://, redis://; empty means in-memory
	StoreTimeout    time.Duration // bound on every store call
	AllowedOrigins  []string      // CORS origins; "*" allows any
	RateLimitRPM    int           // per-IP requests per minute; 0 disables
	RateLimitBurst  int
	TrustProxy      bool // honour X-Forwarded-For / X-Real-IP from a fronting proxy
	ShutdownTimeout time.Duration
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func FromEnv() Config {
	// Bind address (Windows-friendly default)
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	prefix := "/api"
	if v, ok := os.LookupEnv("API_PREFIX"); ok {
		prefix = normalizePrefix(v)
	}

	// Logs
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}
	logStdout, _ := strconv.ParseBool(os.Getenv("LOG_STDOUT"))
	trustProxy, _ := strconv.ParseBool(os.Getenv("TRUST_PROXY"))

	// Database (empty means use in-memory store)
	db := os.Getenv("DATABASE_URL")

	return Config{
		Addr:            addr,
		APIPrefix:       prefix,
		LogDir:          logDir,
		LogLevel:        logLevel,
		LogStdout:       logStdout,
		DatabaseURL:     db,
		StoreTimeout:    envMillis("STORE_TIMEOUT_MS", 5*time.Second),
		AllowedOrigins:  splitCSV(os.Getenv("ALLOWED_ORIGINS"), []string{"*"}),
		RateLimitRPM:    envInt("RATE_LIMIT_RPM", 0),
		RateLimitBurst:  envInt("RATE_LIMIT_BURST", 20),
		TrustProxy:      trustProxy,
		ShutdownTimeout: envMillis("SHUTDOWN_TIMEOUT_MS", 10*time.Second),
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func splitCSV(raw string, def []string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// normalizePrefix turns "api", "/api/" and "/api" into "/api", and "/" into "".
func normalizePrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
