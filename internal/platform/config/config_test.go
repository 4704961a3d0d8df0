package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float64(10000), cfg.Matching.DefaultSearchRadiusMeters)
	assert.Equal(t, float64(5000), cfg.Matching.NearbyRouteRadiusMeters)
	assert.Equal(t, "feedlink.audit", cfg.Kafka.AuditTopic)
}

func TestApplyEnv(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		cfg := Defaults()
		err := cfg.applyEnv(envMap(map[string]string{
			"FEEDLINK_ADDR":                ":9090",
			"KAFKA_BROKERS":                "broker-1:9092, broker-2:9092,",
			"SMTP_PORT":                    "2525",
			"DEFAULT_SEARCH_RADIUS_METERS": "2500.5",
			"STATS_CACHE_TTL":              "2m",
			"SEED_DEMO_DATA":               "true",
			"RATE_LIMIT_DISABLED":          "true",
		}))
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 2525, cfg.SMTP.Port)
		assert.Equal(t, 2500.5, cfg.Matching.DefaultSearchRadiusMeters)
		assert.Equal(t, 2*time.Minute, cfg.Stats.CacheTTL)
		assert.True(t, cfg.SeedDemoData)
		assert.True(t, cfg.RateLimit.Disabled)
	})

	t.Run("empty values keep defaults", func(t *testing.T) {
		cfg := Defaults()
		require.NoError(t, cfg.applyEnv(envMap(map[string]string{"FEEDLINK_ADDR": ""})))
		assert.Equal(t, ":8080", cfg.Addr)
	})

	t.Run("rejects malformed numbers", func(t *testing.T) {
		cfg := Defaults()
		assert.Error(t, cfg.applyEnv(envMap(map[string]string{"SMTP_PORT": "smtp"})))
		assert.Error(t, cfg.applyEnv(envMap(map[string]string{"STATS_CACHE_TTL": "soon"})))
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://feedlink.example
kafka:
  brokers: ["localhost:9092"]
matching:
  default_search_radius_meters: 8000
stats:
  cache_ttl: 1m
rate_limit:
  confirm_per_minute: 5
`), 0o600))

	cfg := Defaults()
	require.NoError(t, cfg.loadFile(path))
	assert.Equal(t, "https://feedlink.example", cfg.BaseURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, float64(8000), cfg.Matching.DefaultSearchRadiusMeters)
	assert.Equal(t, float64(5000), cfg.Matching.NearbyRouteRadiusMeters, "unset keys keep defaults")
	assert.Equal(t, time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, 5, cfg.RateLimit.ConfirmPerMinute)
	assert.Equal(t, 120, cfg.RateLimit.PublicPerMinute)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Matching.DefaultSearchRadiusMeters = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Kafka.Brokers = []string{"b:9092"}
	cfg.Kafka.AuditTopic = ""
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.RateLimit.ConfirmPerMinute = 0
	assert.Error(t, cfg.Validate())
	cfg.RateLimit.Disabled = true
	assert.NoError(t, cfg.Validate())
}
