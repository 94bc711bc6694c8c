package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.Storage)
	assert.Equal(t, time.Duration(0), cfg.AutoReleaseAfter)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "https://api.useplunk.com/v1/send", cfg.Mail.PlunkAPIURL)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE", "memory")
	t.Setenv("AUTO_RELEASE_AFTER", "72h")
	t.Setenv("DB_USER", "carry")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "carrypal")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 72*time.Hour, cfg.AutoReleaseAfter)
	assert.Equal(t, "postgres://carry:pw@db:5432/carrypal", cfg.DB.DSN())
}

func TestParse_RejectsUnknownStorage(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE", "mongo")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE")
}

func TestParse_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Parse()
	require.Error(t, err)
}

func TestParse_ArbiterList(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ARBITERS", "u-1,u-2")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, cfg.Arbiters)
}
