package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTOML(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return load(v)
}

const minimalTOML = `
[vault]
key = "hex:000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

[jwt]
secret = "dev-secret"
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadTOML(t, minimalTOML)
	require.NoError(t, err)

	assert.Equal(t, "cozy-commerce", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cozy_commerce", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)

	assert.Equal(t, "aes-256-gcm", cfg.Vault.Algorithm)

	assert.Equal(t, "https://{store}/admin/api/{version}", cfg.Shopify.EndpointTemplate)
	assert.Equal(t, "2024-01", cfg.Shopify.APIVersion)
	assert.Equal(t, 250, cfg.Shopify.PageSize)
	assert.Equal(t, 1000, cfg.Shopify.MaxItems)
	assert.Equal(t, 5*time.Second, cfg.Shopify.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.Shopify.RequestTimeout)
	assert.Equal(t, 2.0, cfg.Shopify.RateLimit)
	assert.Equal(t, 4, cfg.Shopify.RateBurst)
	assert.False(t, cfg.Shopify.AllowPrivateNetworks)

	assert.Equal(t, 30*time.Minute, cfg.Sync.StaleAfter)
	assert.Equal(t, 3*time.Second, cfg.Sync.ActivityTimeout)

	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 3, cfg.Scheduler.MaxConcurrentJobs)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
}

func TestLoad_FileValues(t *testing.T) {
	cfg, err := loadTOML(t, minimalTOML+`
[database]
driver = "SQLite"
path = "/tmp/sync.db"

[shopify]
api_version = "2024-04"
page_size = 100
max_items = 300
connect_timeout = "2s"
allow_private_networks = true

[scheduler]
enabled = true
interval = "1m"
max_concurrent_jobs = 8
`)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/sync.db", cfg.Database.DSN())
	assert.Equal(t, "2024-04", cfg.Shopify.APIVersion)
	assert.Equal(t, 100, cfg.Shopify.PageSize)
	assert.Equal(t, 300, cfg.Shopify.MaxItems)
	assert.Equal(t, 2*time.Second, cfg.Shopify.ConnectTimeout)
	assert.True(t, cfg.Shopify.AllowPrivateNetworks)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 8, cfg.Scheduler.MaxConcurrentJobs)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("COZY_SHOPIFY_PAGE_SIZE", "50")
	t.Setenv("COZY_DATABASE_HOST", "db.internal")
	t.Setenv("COZY_VAULT_ALGORITHM", "xchacha20-poly1305")

	cfg, err := loadTOML(t, minimalTOML+`
[shopify]
page_size = 100
`)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Shopify.PageSize)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "xchacha20-poly1305", cfg.Vault.Algorithm)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing vault key",
			doc:     "[jwt]\nsecret = \"x\"\n",
			wantErr: "vault.key is required",
		},
		{
			name:    "missing jwt secret",
			doc:     "[vault]\nkey = \"k\"\n",
			wantErr: "jwt.secret is required",
		},
		{
			name:    "unknown driver",
			doc:     minimalTOML + "[database]\ndriver = \"mysql\"\n",
			wantErr: "database.driver must be postgres or sqlite",
		},
		{
			name:    "idle exceeds open",
			doc:     minimalTOML + "[database]\nmax_open_conns = 2\nmax_idle_conns = 3\n",
			wantErr: "cannot exceed",
		},
		{
			name:    "negative page size",
			doc:     minimalTOML + "[shopify]\npage_size = -1\n",
			wantErr: "cannot be negative",
		},
		{
			name:    "sampling ratio out of range",
			doc:     minimalTOML + "[telemetry]\nsampling_ratio = 1.5\n",
			wantErr: "sampling_ratio",
		},
		{
			name:    "short jwt secret in production",
			doc:     minimalTOML + "[app]\nenv = \"production\"\n",
			wantErr: "at least 32 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTOML(t, tt.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ProductionRules(t *testing.T) {
	base := `
[app]
env = "production"

[vault]
key = "base64:AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="

[jwt]
secret = "0123456789abcdef0123456789abcdef"
`

	t.Run("postgres requires password and tls", func(t *testing.T) {
		_, err := loadTOML(t, base)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password")

		_, err = loadTOML(t, base+"[database]\npassword = \"p\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sslmode")
	})

	t.Run("private networks rejected", func(t *testing.T) {
		_, err := loadTOML(t, base+"[database]\ndriver = \"sqlite\"\n[shopify]\nallow_private_networks = true\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "allow_private_networks")
	})

	t.Run("valid production config", func(t *testing.T) {
		cfg, err := loadTOML(t, base+"[database]\npassword = \"p\"\nsslmode = \"require\"\n")
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5433,
		User:     "sync",
		Password: "p@ss word",
		DBName:   "catalog",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://sync:p%40ss%20word@db:5433/catalog?sslmode=require", d.DSN())
}
