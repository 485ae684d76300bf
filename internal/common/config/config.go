// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Models   ModelsConfig   `mapstructure:"models"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Safety   SafetyConfig   `mapstructure:"safety"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ModelsConfig carries model identifiers. They are opaque strings passed to
// the collaborating services, never interpreted by the pipeline.
type ModelsConfig struct {
	STTPrimary  string `mapstructure:"stt_primary"`
	STTFallback string `mapstructure:"stt_fallback"`
	NL2SQL      string `mapstructure:"nl2sql"`
	Summary     string `mapstructure:"summary"`
	TextCleanup string `mapstructure:"text_cleanup"`
}

// PipelineConfig holds stage thresholds and language settings.
type PipelineConfig struct {
	DefaultLanguage           string  `mapstructure:"default_language"`
	QueryLanguage             string  `mapstructure:"query_language"`
	STTConfidenceThreshold    float64 `mapstructure:"stt_confidence_threshold"`
	IntentConfidenceThreshold float64 `mapstructure:"intent_confidence_threshold"`
	EntityConfidenceThreshold float64 `mapstructure:"entity_confidence_threshold"`
	SynthesisThreshold        float64 `mapstructure:"synthesis_confidence_threshold"`
}

// SafetyConfig is the validator policy: blocked keywords and structural
// bounds. BlockedKeywords supplements the built-in set, it never replaces it.
type SafetyConfig struct {
	BlockedKeywords []string `mapstructure:"blocked_keywords"`
	MaxQueryLength  int      `mapstructure:"max_query_length"`
	DefaultLimit    int      `mapstructure:"default_limit"`
	MaxLimit        int      `mapstructure:"max_limit"`
	MaxJoins        int      `mapstructure:"max_joins"`
	MaxSubqueries   int      `mapstructure:"max_subqueries"`
}

type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLMinutes int  `mapstructure:"ttl_minutes"`
}

type ExecutorConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxResultRows  int `mapstructure:"max_result_rows"`
	MaxRetries     int `mapstructure:"max_retries"`
}

// CatalogConfig points at the schema and terminology documents.
type CatalogConfig struct {
	SchemaPath      string `mapstructure:"schema_path"`
	TerminologyPath string `mapstructure:"terminology_path"`
}

// APIsConfig holds settings for external collaborator services.
type APIsConfig struct {
	GenAI struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`

	Speech struct {
		BaseURL    string `mapstructure:"base_url"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"speech"`

	Translate struct {
		BaseURL    string `mapstructure:"base_url"`
		Timeout    int    `mapstructure:"timeout"` // milliseconds
		MaxRetries int    `mapstructure:"max_retries"`
	} `mapstructure:"translate"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
