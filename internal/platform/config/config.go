package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string          `yaml:"addr"`
	BaseURL       string          `yaml:"base_url"`
	JWTSigningKey string          `yaml:"jwt_signing_key"`
	DatabaseURL   string          `yaml:"database_url"`
	Redis         RedisConfig     `yaml:"redis"`
	Kafka         KafkaConfig     `yaml:"kafka"`
	SMTP          SMTPConfig      `yaml:"smtp"`
	Admin         AdminConfig     `yaml:"admin"`
	Matching      MatchingConfig  `yaml:"matching"`
	Stats         StatsConfig     `yaml:"stats"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	SeedDemoData  bool            `yaml:"seed_demo_data"`
}

// RedisConfig configures the stats cache connection. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures the audit event sink. No brokers means events stay in memory.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	AuditTopic string   `yaml:"audit_topic"`
}

// SMTPConfig configures outbound mail. An empty host logs mail instead of sending it.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// AdminConfig holds the admin basic-auth credentials. PasswordHash is a bcrypt hash.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// MatchingConfig tunes proximity search.
type MatchingConfig struct {
	DefaultSearchRadiusMeters float64 `yaml:"default_search_radius_meters"`
	NearbyRouteRadiusMeters   float64 `yaml:"nearby_route_radius_meters"`
}

// RateLimitConfig sets per-IP request budgets on the unauthenticated routes.
type RateLimitConfig struct {
	Disabled         bool `yaml:"disabled"`
	ConfirmPerMinute int  `yaml:"confirm_per_minute"`
	PublicPerMinute  int  `yaml:"public_per_minute"`
}

// StatsConfig tunes the statistics cache.
type StatsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

const (
	defaultAddr          = ":8080"
	defaultBaseURL       = "http://localhost:8080"
	defaultAuditTopic    = "feedlink.audit"
	defaultSMTPPort      = 587
	defaultSMTPFrom      = "FeedLink <no-reply@feedlink.local>"
	defaultAdminUsername = "admin"
	defaultSearchRadius  = 10000
	defaultRouteRadius   = 5000
	defaultStatsCacheTTL = 30 * time.Second
	defaultConfirmLimit  = 20
	defaultPublicLimit   = 120
)

// DefaultRedisConfig mirrors the pool settings used in production.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Defaults returns a configuration suitable for local development.
func Defaults() Server {
	return Server{
		Addr:    defaultAddr,
		BaseURL: defaultBaseURL,
		// Use a default for development - should be overridden in production
		JWTSigningKey: "dev-secret-key-change-in-production",
		Redis:         DefaultRedisConfig(),
		Kafka:         KafkaConfig{AuditTopic: defaultAuditTopic},
		SMTP:          SMTPConfig{Port: defaultSMTPPort, From: defaultSMTPFrom},
		Admin:         AdminConfig{Username: defaultAdminUsername},
		Matching: MatchingConfig{
			DefaultSearchRadiusMeters: defaultSearchRadius,
			NearbyRouteRadiusMeters:   defaultRouteRadius,
		},
		Stats: StatsConfig{CacheTTL: defaultStatsCacheTTL},
		RateLimit: RateLimitConfig{
			ConfirmPerMinute: defaultConfirmLimit,
			PublicPerMinute:  defaultPublicLimit,
		},
	}
}

// FromEnv builds a Server config from defaults, an optional YAML file named by
// FEEDLINK_CONFIG, and environment variables, in increasing precedence.
func FromEnv() (Server, error) {
	cfg := Defaults()

	if path := os.Getenv("FEEDLINK_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Server{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c *Server) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Server) applyEnv(lookup lookupFunc) error {
	setString(lookup, "FEEDLINK_ADDR", &c.Addr)
	setString(lookup, "FEEDLINK_BASE_URL", &c.BaseURL)
	setString(lookup, "JWT_SIGNING_KEY", &c.JWTSigningKey)
	setString(lookup, "DATABASE_URL", &c.DatabaseURL)
	setString(lookup, "REDIS_URL", &c.Redis.URL)
	setString(lookup, "KAFKA_AUDIT_TOPIC", &c.Kafka.AuditTopic)
	setString(lookup, "SMTP_HOST", &c.SMTP.Host)
	setString(lookup, "SMTP_USERNAME", &c.SMTP.Username)
	setString(lookup, "SMTP_PASSWORD", &c.SMTP.Password)
	setString(lookup, "SMTP_FROM", &c.SMTP.From)
	setString(lookup, "ADMIN_USERNAME", &c.Admin.Username)
	setString(lookup, "ADMIN_PASSWORD_HASH", &c.Admin.PasswordHash)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	if v, ok := lookup("DEFAULT_SEARCH_RADIUS_METERS"); ok && v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_SEARCH_RADIUS_METERS %q: %w", v, err)
		}
		c.Matching.DefaultSearchRadiusMeters = radius
	}
	if v, ok := lookup("STATS_CACHE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid STATS_CACHE_TTL %q: %w", v, err)
		}
		c.Stats.CacheTTL = ttl
	}
	if v, ok := lookup("RATE_LIMIT_DISABLED"); ok {
		c.RateLimit.Disabled = v == "true"
	}
	if v, ok := lookup("SEED_DEMO_DATA"); ok {
		c.SeedDemoData = v == "true"
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Server) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required")
	}
	if c.JWTSigningKey == "" {
		return fmt.Errorf("config: jwt signing key is required")
	}
	if c.Matching.DefaultSearchRadiusMeters <= 0 || c.Matching.NearbyRouteRadiusMeters <= 0 {
		return fmt.Errorf("config: search radii must be positive")
	}
	if c.Stats.CacheTTL < 0 {
		return fmt.Errorf("config: stats cache ttl must not be negative")
	}
	if !c.RateLimit.Disabled && (c.RateLimit.ConfirmPerMinute <= 0 || c.RateLimit.PublicPerMinute <= 0) {
		return fmt.Errorf("config: rate limits must be positive unless disabled")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AuditTopic == "" {
		return fmt.Errorf("config: kafka audit topic is required when brokers are set")
	}
	return nil
}

func setString(lookup lookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
