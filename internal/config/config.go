package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreRedis  = "redis"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

type Config struct {
	ListenAddr      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request deadline, covers the metadata fetch on create

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store         string        // "redis" | "badger" | "memory"
	BadgerPath    string        // directory of the badger database
	SweepInterval time.Duration // interval of the redis index sweeper (0 disables it)

	TokenFile           string        // YAML file mapping owners to bearer tokens
	TokenReloadInterval time.Duration // periodic token file reload (file changes are also watched)

	Extractor     string        // "regex" | "document"
	FetchTimeout  time.Duration // 0 = no timeout on metadata fetches, must stay below RequestTimeout
	FetchMaxBytes int64         // 0 = read the whole body
	UserAgent     string        // User-Agent sent on metadata fetches
	FaviconURL    string        // favicon service template, %s is replaced by the bookmark URL

	CreateBurst  int // rate limit bucket size for bookmark creation
	CreatePerMin int // rate limit refill per IP per minute

	// Redis
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

const defaultFaviconURL = "https://www.google.com/s2/favicons?domain=%s&sz=64"

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("KEEPMARK_LISTEN_ADDR", ":8080"),
		ShutdownTimeout: mustDuration("KEEPMARK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("KEEPMARK_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("KEEPMARK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("KEEPMARK_PRETTY_LOG", true),

		// Storage
		Store:         strings.ToLower(getenv("KEEPMARK_STORE", StoreRedis)),
		BadgerPath:    getenv("KEEPMARK_BADGER_PATH", "./data"),
		SweepInterval: mustDuration("KEEPMARK_SWEEP_INTERVAL", 6*time.Hour),

		// Identity
		TokenFile:           requireEnv("KEEPMARK_TOKEN_FILE"),
		TokenReloadInterval: mustDuration("KEEPMARK_TOKEN_RELOAD_INTERVAL", time.Hour),

		// Metadata extraction
		Extractor:     strings.ToLower(getenv("KEEPMARK_EXTRACTOR", "regex")),
		FetchTimeout:  mustDuration("KEEPMARK_FETCH_TIMEOUT", 10*time.Second),
		FetchMaxBytes: int64(getenvInt("KEEPMARK_FETCH_MAX_BYTES", 0)),
		UserAgent:     getenv("KEEPMARK_USER_AGENT", "keepmark/1.0 (+metadata)"),
		FaviconURL:    getenv("KEEPMARK_FAVICON_URL", defaultFaviconURL),

		CreateBurst:  getenvInt("KEEPMARK_CREATE_BURST", 10),
		CreatePerMin: getenvInt("KEEPMARK_CREATE_PER_MIN", 30),

		// Redis settings
		RedisUser:           getenv("KEEPMARK_REDIS_USERNAME", ""),
		RedisPassword:       getenv("KEEPMARK_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("KEEPMARK_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("KEEPMARK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("KEEPMARK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("KEEPMARK_TRUST_PROXY", false),
	}

	switch cfg.Store {
	case StoreRedis:
		cfg.RedisAddr = requireEnv("KEEPMARK_REDIS_ADDR")
	case StoreBadger, StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: KEEPMARK_STORE must be one of redis, badger, memory (got %q)", cfg.Store))
	}

	if cfg.Extractor != "regex" && cfg.Extractor != "document" {
		panic(fmt.Sprintf("❌ FATAL: KEEPMARK_EXTRACTOR must be regex or document (got %q)", cfg.Extractor))
	}

	if cfg.RequestTimeout > 0 && cfg.FetchTimeout >= cfg.RequestTimeout {
		panic(fmt.Sprintf("❌ FATAL: KEEPMARK_FETCH_TIMEOUT (%s) must be shorter than KEEPMARK_REQUEST_TIMEOUT (%s)",
			cfg.FetchTimeout, cfg.RequestTimeout))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
