package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFrom(t *testing.T, yaml string) *Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	globalConfig = Config{}
	require.NoError(t, Load(dir))
	return GetConfig()
}

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg := loadFrom(t, "server:\n  admin_port: 8080\n")

	assert.Equal(t, 0.05, cfg.Moderation.Epsilon)
	assert.Equal(t, 0.9, cfg.Moderation.ProfanityCutoff)
	assert.Equal(t, map[string]float64{
		"SEVERE_TOXICITY": 0.69,
		"IDENTITY_ATTACK": 0.5,
		"THREAT":          0.5,
	}, cfg.Moderation.Thresholds)
	assert.Equal(t, 10*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, []string{"en"}, cfg.Scoring.Languages)
	assert.Equal(t, 1100*time.Millisecond, cfg.Moderation.TestDelay)
	assert.Equal(t, "config/corpus.yaml", cfg.Moderation.CorpusPath)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoad_ExplicitZeroEpsilonKept(t *testing.T) {
	cfg := loadFrom(t, `
moderation:
  epsilon: 0
  profanity_cutoff: 0
`)

	// Zero disables the borderline window and the profanity gate; it must
	// not be mistaken for unset.
	assert.Equal(t, 0.0, cfg.Moderation.Epsilon)
	assert.Equal(t, 0.0, cfg.Moderation.ProfanityCutoff)
}

func TestLoad_ConfiguredThresholdsReplaceDefaults(t *testing.T) {
	cfg := loadFrom(t, `
moderation:
  thresholds:
    TOXICITY: 0.8
`)

	assert.Equal(t, map[string]float64{"TOXICITY": 0.8}, cfg.Moderation.Thresholds)
}

func TestLoad_ThresholdKeysUppercased(t *testing.T) {
	cfg := loadFrom(t, `
moderation:
  thresholds:
    severe_toxicity: 0.7
`)

	assert.Equal(t, map[string]float64{"SEVERE_TOXICITY": 0.7}, cfg.Moderation.Thresholds)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	globalConfig = Config{}
	err := Load(t.TempDir())
	assert.Error(t, err)
}
