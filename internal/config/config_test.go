package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.FollowUpInterval)
	assert.Equal(t, time.Hour, cfg.UsageInterval)
	assert.Equal(t, 0.8, cfg.UsageNearRatio)
	assert.Equal(t, 1.0, cfg.UsageLimitRatio)
	assert.Equal(t, entity.DefaultCadence(), cfg.Cadence)
	assert.Equal(t, 587, cfg.Mail.Port)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("FOLLOWUP_INTERVAL", "30s")
	t.Setenv("USAGE_INTERVAL", "15m")
	t.Setenv("FOLLOWUP_CONCURRENCY", "2")
	t.Setenv("USAGE_NEAR_RATIO", "0.75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.FollowUpInterval)
	assert.Equal(t, 15*time.Minute, cfg.UsageInterval)
	assert.Equal(t, 2, cfg.FollowUpConcurrency)
	assert.Equal(t, 0.75, cfg.UsageNearRatio)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"FOLLOWUP_INTERVAL":    "soon",
		"FOLLOWUP_CONCURRENCY": "0",
		"USAGE_NEAR_RATIO":     "1.5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadCadenceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cadence.toml")
	content := `
near_ratio = 0.9

[[step]]
min_hours = 12
max_hours = 36
stage = 0
message = "Still looking?"

[[step]]
min_hours = 36
stage = 1
message = "Last check-in from me."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CADENCE_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Cadence, 2)
	assert.Equal(t, 12.0, cfg.Cadence[0].MinHours)
	assert.Equal(t, "Last check-in from me.", cfg.Cadence[1].Message)
	assert.Equal(t, 0.0, cfg.Cadence[1].MaxHours)
	assert.Equal(t, 0.9, cfg.UsageNearRatio)
	assert.Equal(t, 1.0, cfg.UsageLimitRatio)
}

func TestValidateCadence(t *testing.T) {
	assert.NoError(t, ValidateCadence(entity.DefaultCadence()))
	assert.Error(t, ValidateCadence(nil))
	assert.Error(t, ValidateCadence([]entity.CadenceStep{{MinHours: 1, Stage: 1, Message: "x"}}))
	assert.Error(t, ValidateCadence([]entity.CadenceStep{{MinHours: 10, MaxHours: 5, Stage: 0, Message: "x"}}))
	assert.Error(t, ValidateCadence([]entity.CadenceStep{{MinHours: 1, Stage: 0, Message: " "}}))
}
