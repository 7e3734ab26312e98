package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a missing or invalid setting. The service refuses to start on it.
var ErrConfiguration = errors.New("configuration error")

// DefaultSystemPrompt instructs the model how to use the retrieved context.
const DefaultSystemPrompt = `You are an assistant to users of the MongoDB Lab Workshop. ` +
	`Answer their questions about the framework in a friendly conversational tone. ` +
	`Format your answers in Markdown. Be concise in your answers. ` +
	`If you do not know the answer to the question based on the information provided, respond: ` +
	`"I'm sorry, I don't know the answer to that question. Please try to rephrase it. ` +
	`Refer to the below information to see if it helps."`

// Config holds the labchat configuration.
type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	Database       DatabaseConfig       `yaml:"database"`
	OpenAI         OpenAIConfig         `yaml:"openai"`
	Chat           ChatConfig           `yaml:"chat"`
	Search         SearchConfig         `yaml:"search"`
	Audit          AuditConfig          `yaml:"audit"`
	Sidebar        SidebarConfig        `yaml:"sidebar"`
	Auth           AuthConfig           `yaml:"auth"`
	CORS           CORSConfig           `yaml:"cors"`
	EmbeddingCache EmbeddingCacheConfig `yaml:"embedding_cache"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// CORSConfig holds cross-origin settings for the browser widget.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection and index settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Name             string   `yaml:"name"`       // logical database, first key segment
	Collection       string   `yaml:"collection"` // document collection, second key segment
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	QueryTimeoutSec  int      `yaml:"query_timeout_sec"`
	VectorDim        int      `yaml:"vector_dim"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// OpenAIConfig holds model provider settings.
type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	EmbeddingModel  string `yaml:"embedding_model"`
	CompletionModel string `yaml:"completion_model"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// ChatConfig holds prompt and answer settings.
type ChatConfig struct {
	Debug                 bool     `yaml:"debug"`
	ScoreThresholdEnabled *bool    `yaml:"score_threshold_enabled"`
	ScoreThreshold        *float64 `yaml:"score_threshold"`
	MaxContextTokens      int      `yaml:"max_context_tokens"`
	SystemPrompt          string   `yaml:"system_prompt"`
	FallbackReply         string   `yaml:"fallback_reply"`
}

// SearchConfig lists the vector fields searched per query.
type SearchConfig struct {
	Targets  []TargetConfig `yaml:"targets"`
	Parallel bool           `yaml:"parallel"`
}

// TargetConfig is one searched vector field.
type TargetConfig struct {
	Field      string `yaml:"field"`
	Index      string `yaml:"index"`
	Candidates int    `yaml:"candidates"`
	Limit      int    `yaml:"limit"`
}

// AuditConfig holds activity log settings.
type AuditConfig struct {
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"` // 0 rotates at 100 MB
}

// SidebarConfig points at the navigation file served by /api/sidebar.
type SidebarConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingCacheConfig holds query embedding cache settings.
type EmbeddingCacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"` // 0 keeps entries forever
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first; existing variables win.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 3001
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// Completion calls dominate request time.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.QueryTimeoutSec <= 0 {
		c.Database.QueryTimeoutSec = 5
	}
	if c.Database.VectorDim <= 0 {
		c.Database.VectorDim = 1536
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if c.OpenAI.CompletionModel == "" {
		c.OpenAI.CompletionModel = "gpt-3.5-turbo"
	}
	if c.OpenAI.TimeoutSec <= 0 {
		c.OpenAI.TimeoutSec = 60
	}
	if c.Chat.ScoreThresholdEnabled == nil {
		enabled := true
		c.Chat.ScoreThresholdEnabled = &enabled
	}
	if c.Chat.ScoreThreshold == nil {
		threshold := 0.8
		c.Chat.ScoreThreshold = &threshold
	}
	if c.Chat.MaxContextTokens <= 0 {
		c.Chat.MaxContextTokens = 7000
	}
	if c.Chat.SystemPrompt == "" {
		c.Chat.SystemPrompt = DefaultSystemPrompt
	}
	if len(c.Search.Targets) == 0 {
		c.Search.Targets = []TargetConfig{
			{Field: "question_embedding", Index: "question_index"},
			{Field: "answer_embedding", Index: "answer_index"},
		}
	}
	for i := range c.Search.Targets {
		t := &c.Search.Targets[i]
		if t.Candidates <= 0 {
			t.Candidates = 10
		}
		if t.Limit <= 0 {
			t.Limit = 10
		}
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "chatbot.log"
	}
	if c.EmbeddingCache.TTLHours < 0 {
		c.EmbeddingCache.TTLHours = 0
	}

	// Unset ${VAR} entries expand to empty strings.
	c.Database.Addrs = compact(c.Database.Addrs)
	c.Auth.APIKeys = compact(c.Auth.APIKeys)
	c.CORS.AllowedOrigins = compact(c.CORS.AllowedOrigins)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks the configuration for correctness.
// Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	var missing []string
	if len(c.Database.Addrs) == 0 {
		missing = append(missing, "database.addrs")
	}
	if c.Database.Name == "" {
		missing = append(missing, "database.name")
	}
	if c.Database.Collection == "" {
		missing = append(missing, "database.collection")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required settings not set: %s", ErrConfiguration, strings.Join(missing, ", "))
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port must be between 1 and 65535, got %d", ErrConfiguration, c.HTTP.Port)
	}
	for _, name := range []string{c.Database.Name, c.Database.Collection} {
		if !isKeySegment(name) {
			return fmt.Errorf("%w: %q is not a valid key segment", ErrConfiguration, name)
		}
	}
	if t := c.Chat.ScoreThreshold; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("%w: chat.score_threshold must be within [0, 1], got %v", ErrConfiguration, *t)
	}

	seen := make(map[string]bool, len(c.Search.Targets))
	for i, t := range c.Search.Targets {
		if t.Field == "" || t.Index == "" {
			return fmt.Errorf("%w: search.targets[%d] needs field and index", ErrConfiguration, i)
		}
		if seen[t.Index] {
			return fmt.Errorf("%w: search.targets[%d] repeats index %q", ErrConfiguration, i, t.Index)
		}
		seen[t.Index] = true
	}
	return nil
}

// isKeySegment reports whether s can be embedded in a Redis key without a separator.
func isKeySegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isAlpha && !isDigit && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
