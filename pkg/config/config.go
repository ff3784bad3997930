package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	AdminPort   int    `mapstructure:"admin_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ScoringConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Languages  []string      `mapstructure:"languages"`
	Attributes []string      `mapstructure:"attributes"`
}

type ModerationConfig struct {
	ModeratorChannelID string             `mapstructure:"moderator_channel_id"`
	ExcludedChannelIDs []string           `mapstructure:"excluded_channel_ids"`
	Thresholds         map[string]float64 `mapstructure:"thresholds"`
	Epsilon            float64            `mapstructure:"epsilon"`
	ProfanityCutoff    float64            `mapstructure:"profanity_cutoff"`
	ScoreReactions     bool               `mapstructure:"score_reactions"`
	CorpusPath         string             `mapstructure:"corpus_path"`
	TestDelay          time.Duration      `mapstructure:"test_delay"`
}

type ChatConfig struct {
	Adapter  string                 `mapstructure:"adapter"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	normalizeThresholds()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	v := viper.New()
	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaultValues(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

// Defaults live in viper so an explicitly configured zero (e.g. epsilon: 0
// to disable the borderline window) is kept, not overridden.
func setDefaultValues(v *viper.Viper) {
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("scoring.timeout", 10*time.Second)
	v.SetDefault("scoring.languages", []string{"en"})
	v.SetDefault("moderation.epsilon", 0.05)
	v.SetDefault("moderation.profanity_cutoff", 0.9)
	v.SetDefault("moderation.test_delay", 1100*time.Millisecond)
	v.SetDefault("moderation.corpus_path", "config/corpus.yaml")
}

// viper lowercases map keys on unmarshal; attribute names are uppercase on
// the scoring wire. The threshold map is defaulted here rather than through
// viper so a configured map fully replaces the default instead of being
// deep-merged with it.
func normalizeThresholds() {
	if len(globalConfig.Moderation.Thresholds) == 0 {
		globalConfig.Moderation.Thresholds = map[string]float64{
			"SEVERE_TOXICITY": 0.69,
			"IDENTITY_ATTACK": 0.5,
			"THREAT":          0.5,
		}
		return
	}
	normalized := make(map[string]float64, len(globalConfig.Moderation.Thresholds))
	for attr, threshold := range globalConfig.Moderation.Thresholds {
		normalized[strings.ToUpper(attr)] = threshold
	}
	globalConfig.Moderation.Thresholds = normalized
}

func GetConfig() *Config {
	return &globalConfig
}
