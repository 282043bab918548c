package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("JWT_SECRET: s3cret\nDB_HOST: db\n"))
	require.NoError(t, err)

	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, DispatcherMemory, cfg.Dispatcher)
	assert.Equal(t, 200, cfg.ImportBatchSize)
	assert.Equal(t, int64(2048), cfg.MaxUploadKB)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "db", cfg.Database().Host)
	assert.Equal(t, 5432, cfg.Database().Port)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Parse([]byte("JWT_SECRET: from-file\nDISPATCHER: kafka\nIMPORT_RETRY_DELAY: 2s\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, "pw", cfg.DBPassword)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.ImportRetryDelay)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "missing secret", raw: "HTTP_PORT: 1\n", want: "JWT_SECRET is required"},
		{name: "unknown dispatcher", raw: "JWT_SECRET: s\nDISPATCHER: redis\n", want: `unknown DISPATCHER "redis"`},
		{name: "kafka without brokers", raw: "JWT_SECRET: s\nDISPATCHER: kafka\n", want: "KAFKA_BROKERS is required"},
		{name: "events without brokers", raw: "JWT_SECRET: s\nEVENTS_ENABLED: true\n", want: "EVENTS_ENABLED"},
		{name: "negative batch", raw: "JWT_SECRET: s\nIMPORT_BATCH_SIZE: -1\n", want: "IMPORT_BATCH_SIZE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("KAFKA_BROKERS", "")
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET: s\nHTTP_PORT: 9999\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTPPort)
}

func TestShippedConfigParses(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := LoadFile("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}
