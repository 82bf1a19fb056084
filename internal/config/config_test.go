package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	for _, k := range []string{"PORT", "GO_ENV", "DB_DRIVER", "ACCESS_TOKEN_TTL", "QR_TTL", "BCRYPT_COST", "DATABASE_URL", "POSTGRES_PORT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "dev", cfg.GoEnv)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.QRTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Contains(t, cfg.PostgresDSN(), "port=5432")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad ttl":    {"ACCESS_TOKEN_TTL", "tomorrow"},
		"bad port":   {"POSTGRES_PORT", "abc"},
		"bad driver": {"DB_DRIVER", "mysql"},
		"bad env":    {"GO_ENV", "staging"},
		"bad cost":   {"BCRYPT_COST", "99"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), kv[0])
		})
	}
}

func TestPostgresDSN_PrefersDatabaseURL(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://u:p@db:5432/shop"}
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.PostgresDSN())
}
