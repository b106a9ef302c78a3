package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigFile is read from the working directory when present.
const DefaultConfigFile = "config.yaml"

// DefaultOpenAIEndpoint is a local OpenAI-compatible server (LM Studio, llama.cpp).
const DefaultOpenAIEndpoint = "http://127.0.0.1:1234/v1"

// Config holds all configuration for ekaya-askdb.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"`

	// HTTP server timeouts. WriteTimeout must exceed the model timeout.
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"90s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	// Target database the questions are answered against
	Database DatabaseConfig `yaml:"database"`

	// Language model used for SQL generation
	LLM LLMConfig `yaml:"llm"`

	Schema SchemaConfig `yaml:"schema"`
	Prompt PromptConfig `yaml:"prompt"`
	MCP    MCPConfig    `yaml:"mcp"`
}

// DatabaseConfig holds the connection settings of the queried database.
type DatabaseConfig struct {
	Type     string `yaml:"type" env:"DB_TYPE" env-default:"postgres"` // postgres or mssql
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"askdb"`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Name     string `yaml:"name" env:"DB_NAME" env-default:"iexinternetdatacenter"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	Encrypt  string `yaml:"encrypt" env:"DB_ENCRYPT" env-default:"disable"` // SQL Server only

	// ReadOnly wraps every generated statement in a read-only transaction.
	ReadOnly bool `yaml:"read_only" env:"DB_READ_ONLY" env-default:"true"`

	MaxConns int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"10"`
	ConnTTL  time.Duration `yaml:"conn_ttl" env:"DB_CONN_TTL" env-default:"10m"`
}

// LLMConfig holds the completion endpoint settings.
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"` // openai or anthropic
	Endpoint    string        `yaml:"endpoint" env:"LLM_ENDPOINT"` // Defaults per provider
	Model       string        `yaml:"model" env:"LLM_MODEL" env-default:"mistral-7b-instruct-v0.3"`
	APIKey      string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1"`
	MaxTokens   int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"500"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"30s"`

	// MaxRetries is applied by the pipeline, never by the client itself.
	MaxRetries int `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"0"`

	CircuitThreshold int           `yaml:"circuit_threshold" env:"LLM_CIRCUIT_THRESHOLD" env-default:"5"`
	CircuitReset     time.Duration `yaml:"circuit_reset" env:"LLM_CIRCUIT_RESET" env-default:"30s"`
}

// SchemaConfig controls schema introspection.
type SchemaConfig struct {
	SampleRows int      `yaml:"sample_rows" env:"SCHEMA_SAMPLE_ROWS" env-default:"3"`
	Tables     []string `yaml:"tables" env:"SCHEMA_TABLES" env-separator:","` // Empty means all tables

	// Timeout bounds one introspection, independent of the request that started it.
	Timeout time.Duration `yaml:"timeout" env:"SCHEMA_TIMEOUT" env-default:"30s"`
}

// PromptConfig controls SQL generation prompt content.
type PromptConfig struct {
	DefaultTable string   `yaml:"default_table" env:"PROMPT_DEFAULT_TABLE" env-default:"energy_bids_dam"`
	Tables       []string `yaml:"tables" env:"PROMPT_TABLES" env-separator:"," env-default:"energy_bids_dam,energy_bids_gdam,energy_bids_rtm,energy_bids_tam,energy_bids_gtam"`
	GlossaryFile string   `yaml:"glossary_file" env:"PROMPT_GLOSSARY_FILE" env-default:""`
}

// MCPConfig controls the MCP tool surface.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; environment variables and defaults apply.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultConfigFile, version)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Endpoint == "" && c.LLM.Provider == "openai" {
		c.LLM.Endpoint = DefaultOpenAIEndpoint
	}
	c.Schema.Tables = trimAll(c.Schema.Tables)
	c.Prompt.Tables = trimAll(c.Prompt.Tables)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported database type %q (expected postgres or mssql)", c.Database.Type)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm provider %q (expected openai or anthropic)", c.LLM.Provider)
	}

	if c.LLM.Provider == "openai" && c.LLM.Endpoint == "" {
		return fmt.Errorf("llm endpoint is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm max_retries must not be negative")
	}
	if c.WriteTimeout > 0 && c.WriteTimeout <= c.LLM.Timeout {
		return fmt.Errorf("write_timeout (%s) must exceed llm timeout (%s)", c.WriteTimeout, c.LLM.Timeout)
	}
	if c.Schema.SampleRows < 0 {
		return fmt.Errorf("schema sample_rows must not be negative")
	}

	return nil
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
