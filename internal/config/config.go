package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Thresholds collects every tunable decision constant of the pipeline.
// Built once by Load and passed by value into each component so tests
// never have to mutate process environment.
type Thresholds struct {
	AlertThreshold          int `envconfig:"ALERT_THRESHOLD" default:"5"`
	AutoApproveThreshold    int `envconfig:"AUTO_APPROVE_THRESHOLD" default:"10"`
	MinUniqueSources        int `envconfig:"MIN_UNIQUE_SOURCES" default:"2"`
	MinHeatToRegister       int `envconfig:"MIN_HEAT_TO_REGISTER" default:"10"`
	NoResponseHours         int `envconfig:"NO_RESPONSE_HOURS" default:"6"`
	WindowHours             int `envconfig:"WINDOW_HOURS" default:"3"`
	CommunityMatchThreshold int `envconfig:"COMMUNITY_MATCH_THRESHOLD" default:"2"`

	IgniteToDebateHours int `envconfig:"IGNITE_TO_DEBATE_HOURS" default:"6"`
	IgniteMinHeat       int `envconfig:"IGNITE_MIN_HEAT" default:"40"`
	ClosedMaxHeat       int `envconfig:"CLOSED_MAX_HEAT" default:"10"`
	ClosedIdleHours     int `envconfig:"CLOSED_IDLE_HOURS" default:"48"`

	RetainDays int `envconfig:"RETAIN_DAYS" default:"7"`

	AICollectionWindowMin int `envconfig:"AI_COLLECTION_WINDOW_MIN" default:"10"`
	AIViewThreshold       int `envconfig:"AI_VIEW_THRESHOLD" default:"5000"`
	AICommentThreshold    int `envconfig:"AI_COMMENT_THRESHOLD" default:"50"`
	AIBatchSize           int `envconfig:"AI_BATCH_SIZE" default:"20"`
	AIMinScore            int `envconfig:"AI_MIN_SCORE" default:"7"`
}

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"EMBER_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"EMBER_DB_MAX_CONNS" default:"8"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIEndpoint string `envconfig:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1/chat/completions"`
	OpenAIModel    string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	Thresholds Thresholds
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("EMBER_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("EMBER_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("EMBER_DB_MIN_CONNS (%d) cannot exceed EMBER_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.OpenAIEndpoint) == "" {
		return fmt.Errorf("OPENAI_ENDPOINT is required")
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		return fmt.Errorf("OPENAI_MODEL is required")
	}
	return c.Thresholds.Validate()
}

func (t Thresholds) Validate() error {
	if t.AlertThreshold < 1 {
		return fmt.Errorf("ALERT_THRESHOLD must be >= 1")
	}
	if t.AutoApproveThreshold < t.AlertThreshold {
		return fmt.Errorf("AUTO_APPROVE_THRESHOLD (%d) must be >= ALERT_THRESHOLD (%d)", t.AutoApproveThreshold, t.AlertThreshold)
	}
	if t.MinUniqueSources < 1 {
		return fmt.Errorf("MIN_UNIQUE_SOURCES must be >= 1")
	}
	if t.MinHeatToRegister < 0 || t.MinHeatToRegister > 100 {
		return fmt.Errorf("MIN_HEAT_TO_REGISTER must be in [0,100]")
	}
	if t.NoResponseHours < 0 {
		return fmt.Errorf("NO_RESPONSE_HOURS must be >= 0")
	}
	if t.WindowHours < 1 {
		return fmt.Errorf("WINDOW_HOURS must be >= 1")
	}
	if t.CommunityMatchThreshold < 1 {
		return fmt.Errorf("COMMUNITY_MATCH_THRESHOLD must be >= 1")
	}
	if t.IgniteToDebateHours < 1 {
		return fmt.Errorf("IGNITE_TO_DEBATE_HOURS must be >= 1")
	}
	if t.IgniteMinHeat < 0 || t.IgniteMinHeat > 100 {
		return fmt.Errorf("IGNITE_MIN_HEAT must be in [0,100]")
	}
	if t.ClosedMaxHeat < 0 || t.ClosedMaxHeat > t.IgniteMinHeat {
		return fmt.Errorf("CLOSED_MAX_HEAT must be between 0 and IGNITE_MIN_HEAT")
	}
	if t.ClosedIdleHours < 1 {
		return fmt.Errorf("CLOSED_IDLE_HOURS must be >= 1")
	}
	if t.RetainDays < 1 {
		return fmt.Errorf("RETAIN_DAYS must be >= 1")
	}
	if t.AICollectionWindowMin < 1 {
		return fmt.Errorf("AI_COLLECTION_WINDOW_MIN must be >= 1")
	}
	if t.AIViewThreshold < 0 {
		return fmt.Errorf("AI_VIEW_THRESHOLD must be >= 0")
	}
	if t.AICommentThreshold < 0 {
		return fmt.Errorf("AI_COMMENT_THRESHOLD must be >= 0")
	}
	if t.AIBatchSize < 1 {
		return fmt.Errorf("AI_BATCH_SIZE must be >= 1")
	}
	if t.AIMinScore < 0 || t.AIMinScore > 10 {
		return fmt.Errorf("AI_MIN_SCORE must be in [0,10]")
	}
	return nil
}
