package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout, must cover one webhook round trip

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Identification webhook
	WebhookURL       string        // empty => every identification fails with a configuration error
	WebhookTimeout   time.Duration // 0 => transport default
	PlaceholderImage string        // imageUrl given to freshly identified artworks
	MaxImageBytes    int           // decoded upload limit (default 10MiB)

	// Browser storage stand-ins
	SessionIdle  time.Duration // a session idle for longer is reclaimed by the janitor
	GCInterval   time.Duration // janitor period
	CookieSecure bool          // mark glimpse cookies Secure (behind TLS)

	// Redis (optional, empty addr => in-memory backend)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password when redis is used
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts       []string // optional, restrict the app to specific Host headers
	AllowedCIDRS       []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy         bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSAllowedOrigins []string // optional, "*" allows any origin but without cookies

	// Identify endpoint rate limit, per client IP
	IdentifyBurst        int
	IdentifyRefillPerMin int
}

// Load reads the configuration from the environment. When GLIMPSE_CONFIG_FILE
// points at a YAML file its values act as defaults; real env vars win.
func Load() *Config {
	if path := os.Getenv("GLIMPSE_CONFIG_FILE"); path != "" {
		values, err := loadFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		fileValues = values
	}

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("GLIMPSE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("GLIMPSE_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("GLIMPSE_REQUEST_TIMEOUT", 60*time.Second),

		// Logging
		LogLevel:  getenv("GLIMPSE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("GLIMPSE_PRETTY_LOG", true),

		// Webhook
		WebhookURL:       getenv("GLIMPSE_WEBHOOK_URL", ""),
		WebhookTimeout:   mustDuration("GLIMPSE_WEBHOOK_TIMEOUT", 0),
		PlaceholderImage: getenv("GLIMPSE_PLACEHOLDER_IMAGE", "/static/placeholder.svg"),
		MaxImageBytes:    getenvInt("GLIMPSE_MAX_IMAGE_BYTES", 10<<20),

		// Sessions
		SessionIdle:  mustDuration("GLIMPSE_SESSION_IDLE", 24*time.Hour),
		GCInterval:   mustDuration("GLIMPSE_GC_INTERVAL", time.Hour),
		CookieSecure: mustBool("GLIMPSE_COOKIE_SECURE", false),

		// Redis settings
		RedisAddr:             getenv("GLIMPSE_REDIS_ADDR", ""),
		RedisUser:             getenv("GLIMPSE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("GLIMPSE_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("GLIMPSE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("GLIMPSE_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:       splitAndTrim(getenv("GLIMPSE_ALLOWED_HOSTS", "")),
		AllowedCIDRS:       splitAndTrim(getenv("GLIMPSE_ALLOWED_CIDRS", "")),
		TrustProxy:         mustBool("GLIMPSE_TRUST_PROXY", false),
		CORSAllowedOrigins: splitAndTrim(getenv("GLIMPSE_CORS_ALLOWED_ORIGINS", "")),

		IdentifyBurst:        getenvInt("GLIMPSE_IDENTIFY_BURST", 5),
		IdentifyRefillPerMin: getenvInt("GLIMPSE_IDENTIFY_REFILL_PER_MIN", 10),
	}

	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: GLIMPSE_REDIS_PASSWORD is required when GLIMPSE_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// UsesRedis reports whether browser storage is backed by redis.
func (c *Config) UsesRedis() bool {
	return c.RedisAddr != ""
}

// helpers

// lookup resolves a key from the environment first, then from the config file.
func lookup(key string) (string, bool) {
	if v := os.Getenv(key); v != "" {
		return v, true
	}
	if v, ok := fileValues[key]; ok && v != "" {
		return v, true
	}
	return "", false
}

func getenv(key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v, ok := lookup(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v, ok := lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
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
