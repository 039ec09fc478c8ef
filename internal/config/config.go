package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// RateLimitConfig bounds requests per client over a window.
type RateLimitConfig struct {
	Requests   int `yaml:"requests"`
	WindowSecs int `yaml:"window_secs"`
}

// Window returns the rate limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSecs) * time.Second
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type         string `yaml:"type"`
	Model        string `yaml:"model"`
	BaseURL      string `yaml:"base_url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	MaxSentences int    `yaml:"max_sentences"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// MilvusConfig contains connection details for a Milvus vector store.
type MilvusConfig struct {
	Address string `yaml:"address"`
	APIKey  string `yaml:"api_key"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string       `yaml:"type"`
	Collection string       `yaml:"collection"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
	Milvus     MilvusConfig `yaml:"milvus"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Mode         string `yaml:"mode"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// QueryConfig holds the defaults applied to queries that omit a field.
type QueryConfig struct {
	DefaultTopK        int     `yaml:"default_top_k"`
	DefaultTemperature float64 `yaml:"default_temperature"`
	DefaultMaxTokens   int     `yaml:"default_max_tokens"`
}

// ValidatorConfig selects the groundedness check.
type ValidatorConfig struct {
	Type      string  `yaml:"type"`
	Threshold float64 `yaml:"threshold"`
}

// TimeoutConfig bounds each external call, in seconds.
type TimeoutConfig struct {
	EmbeddingSecs  int `yaml:"embedding_secs"`
	SearchSecs     int `yaml:"search_secs"`
	StoreSecs      int `yaml:"store_secs"`
	GenerationSecs int `yaml:"generation_secs"`
}

// Embedding returns the embedding timeout.
func (t TimeoutConfig) Embedding() time.Duration { return secs(t.EmbeddingSecs) }

// Search returns the search timeout.
func (t TimeoutConfig) Search() time.Duration { return secs(t.SearchSecs) }

// Store returns the timeout for writes and deletes against the vector store.
func (t TimeoutConfig) Store() time.Duration { return secs(t.StoreSecs) }

// Generation returns the generation timeout.
func (t TimeoutConfig) Generation() time.Duration { return secs(t.GenerationSecs) }

// IndexingConfig tunes batch indexing.
type IndexingConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// LoggingConfig configures the standard logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Query       QueryConfig       `yaml:"query"`
	Validator   ValidatorConfig   `yaml:"validator"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
	Indexing    IndexingConfig    `yaml:"indexing"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoadEnv reads .env from the working directory if present.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied after the file.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidConfig, path, err)
		}
	}
	applyConfigDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/course-rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/course-rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, Default()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		bad("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RateLimit.Requests <= 0 || c.Server.RateLimit.WindowSecs <= 0 {
		bad("server.rate_limit requests and window_secs must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		bad("server.max_upload_bytes must be positive")
	}

	switch c.Embedder.Type {
	case "openai", "local":
	default:
		bad("unknown embedder %q", c.Embedder.Type)
	}
	if c.Embedder.Dimension <= 0 {
		bad("embedder.dimension must be positive")
	}

	switch c.Generator.Type {
	case "openai", "extractive":
	default:
		bad("unknown generator %q", c.Generator.Type)
	}

	switch c.VectorStore.Type {
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" {
			bad("vector_store.qdrant.url is required")
		}
	case "milvus":
		if c.VectorStore.Milvus.Address == "" {
			bad("vector_store.milvus.address is required")
		}
	case "memory":
	default:
		bad("unknown vector store %q", c.VectorStore.Type)
	}
	if c.VectorStore.Collection == "" {
		bad("vector_store.collection is required")
	}

	if c.Chunker.ChunkSize <= 0 {
		bad("chunker.chunk_size must be positive")
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		bad("chunker.chunk_overlap %d must be in [0, chunk_size)", c.Chunker.ChunkOverlap)
	}
	switch c.Chunker.Mode {
	case "plain", "headers":
	default:
		bad("unknown chunker mode %q", c.Chunker.Mode)
	}

	q := domain.Query{
		Text:        "probe",
		TopK:        c.Query.DefaultTopK,
		Temperature: c.Query.DefaultTemperature,
		MaxTokens:   c.Query.DefaultMaxTokens,
	}
	if err := q.Validate(); err != nil {
		bad("query defaults: %v", err)
	}

	switch c.Validator.Type {
	case "heuristic":
	case "overlap":
		if c.Validator.Threshold <= 0 || c.Validator.Threshold > 1 {
			bad("validator.threshold must be in (0, 1]")
		}
	default:
		bad("unknown validator %q", c.Validator.Type)
	}

	if c.Indexing.Concurrency <= 0 {
		bad("indexing.concurrency must be positive")
	}
	return errors.Join(errs...)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8000"},
			RateLimit:      RateLimitConfig{Requests: 10, WindowSecs: 60},
			MaxUploadBytes: 1_000_000,
		},
		Embedder: EmbedderConfig{
			Type:      "openai",
			Model:     "text-embedding-ada-002",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
		},
		Generator: GeneratorConfig{
			Type:         "openai",
			Model:        "gpt-3.5-turbo",
			APIKeyEnv:    "OPENAI_API_KEY",
			MaxSentences: 3,
		},
		VectorStore: VectorStoreConfig{
			Type:       "qdrant",
			Collection: "course_content",
			Qdrant:     QdrantConfig{URL: "http://localhost:6333", TimeoutSecs: 15},
			Milvus:     MilvusConfig{Address: "localhost:19530"},
		},
		Chunker: ChunkerConfig{Mode: "plain", ChunkSize: 1000, ChunkOverlap: 100},
		Query: QueryConfig{
			DefaultTopK:        domain.DefaultTopK,
			DefaultTemperature: domain.DefaultTemperature,
			DefaultMaxTokens:   domain.DefaultMaxTokens,
		},
		Validator: ValidatorConfig{Type: "heuristic", Threshold: 0.2},
		Timeouts:  TimeoutConfig{EmbeddingSecs: 30, SearchSecs: 10, StoreSecs: 30, GenerationSecs: 60},
		Indexing:  IndexingConfig{Concurrency: 4},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "course-rag", "config.yaml"), nil
}

// applyConfigDefaults fills fields a partial file left empty.
func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = def.Embedder.APIKeyEnv
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = def.Generator.APIKeyEnv
	}
	if cfg.Chunker.Mode == "" {
		cfg.Chunker.Mode = def.Chunker.Mode
	}
	if cfg.Validator.Type == "" {
		cfg.Validator.Type = def.Validator.Type
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

// applyEnv overrides file settings with the service's environment variables.
func applyEnv(cfg *AppConfig) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, name, v))
			return
		}
		*dst = n
	}

	str("HOST", &cfg.Server.Host)
	num("PORT", &cfg.Server.Port)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	if host := os.Getenv("QDRANT_HOST"); host != "" {
		port := os.Getenv("QDRANT_PORT")
		if port == "" {
			port = "6333"
		}
		cfg.VectorStore.Qdrant.URL = fmt.Sprintf("http://%s:%s", host, port)
	}
	str("QDRANT_URL", &cfg.VectorStore.Qdrant.URL)
	str("QDRANT_API_KEY", &cfg.VectorStore.Qdrant.APIKey)
	str("QDRANT_COLLECTION_NAME", &cfg.VectorStore.Collection)

	str("OPENAI_EMBEDDING_MODEL", &cfg.Embedder.Model)
	str("OPENAI_CHAT_MODEL", &cfg.Generator.Model)
	num("CHUNK_SIZE", &cfg.Chunker.ChunkSize)
	num("CHUNK_OVERLAP", &cfg.Chunker.ChunkOverlap)
	str("LOG_LEVEL", &cfg.Logging.Level)
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
