// Package config loads and validates runtime configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mwilhelmy/recall/internal/memory"
	"gopkg.in/yaml.v3"
)

// Provider identifies an embedding or chat backend.
type Provider string

const (
	ProviderAzure   Provider = "azure"
	ProviderOpenAI  Provider = "openai"
	ProviderOllama  Provider = "ollama"
	ProviderBedrock Provider = "bedrock"
)

// StoreProvider identifies a vector store backend.
type StoreProvider string

const (
	StoreMemory  StoreProvider = "memory"
	StoreAtlas   StoreProvider = "atlas"
	StoreSurreal StoreProvider = "surreal"
)

// Chat completion defaults, preserved from the original demo.
const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7
	DefaultTopP        = 0.5
)

// Config holds all configuration values. Built once at startup and passed
// into each component; nothing reads it through package globals.
type Config struct {
	// Model gateways
	EmbedProvider   Provider `yaml:"embed_provider"`
	ChatProvider    Provider `yaml:"chat_provider"`
	Endpoint        string   `yaml:"endpoint"`
	APIKey          string   `yaml:"api_key"`
	APIVersion      string   `yaml:"api_version"`
	EmbedModel      string   `yaml:"embed_model"`
	EmbedDeployment string   `yaml:"embed_deployment"`
	EmbedDimension  int      `yaml:"embed_dimension"`
	ChatModel       string   `yaml:"chat_model"`
	ChatDeployment  string   `yaml:"chat_deployment"`
	OllamaHost      string   `yaml:"ollama_host"`
	AWSRegion       string   `yaml:"aws_region"`

	// Chat completion parameters
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`

	// Vector store
	Store          StoreProvider `yaml:"store"`
	StoreURI       string        `yaml:"store_uri"`
	DatabaseName   string        `yaml:"database_name"`
	CollectionName string        `yaml:"collection_name"`
	IndexName      string        `yaml:"index_name"`

	// SurrealDB backend
	SurrealNamespace string `yaml:"surreal_namespace"`
	SurrealUser      string `yaml:"surreal_user"`
	SurrealPass      string `yaml:"surreal_pass"`

	// Retrieval defaults
	SearchLimit  int     `yaml:"search_limit"`
	MinRelevance float64 `yaml:"min_relevance"`

	// HistoryLimit caps the number of conversation turns kept as chat
	// context. 0 means unbounded, which matches the original behavior.
	HistoryLimit int `yaml:"history_limit"`

	// RequestTimeout bounds each gateway and store call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load builds the configuration: defaults first, then an optional YAML file
// (RECALL_CONFIG or ~/.config/recall/config.yaml), then environment
// variables. Environment always wins.
func Load() (Config, error) {
	cfg := defaults()

	path := os.Getenv("RECALL_CONFIG")
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "recall", "config.yaml")
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		EmbedProvider:  ProviderAzure,
		ChatProvider:   ProviderAzure,
		APIVersion:     "2024-02-01",
		EmbedModel:     "text-embedding-ada-002",
		EmbedDimension: 1536,
		ChatModel:      "gpt-35-turbo",
		OllamaHost:     "http://localhost:11434",
		AWSRegion:      "us-east-1",

		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,

		Store:          StoreMemory,
		DatabaseName:   "recall",
		CollectionName: "memories",
		IndexName:      "vector_index",

		SurrealNamespace: "recall",
		SurrealUser:      "root",
		SurrealPass:      "root",

		SearchLimit:  3,
		MinRelevance: 0.6,

		RequestTimeout: 30 * time.Second,

		LogFile:  "/tmp/recall.log",
		LogLevel: slog.LevelInfo,
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read config file %s: %v", memory.ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse config file %s: %v", memory.ErrConfig, path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("RECALL_EMBED_PROVIDER"); v != "" {
		cfg.EmbedProvider = Provider(strings.ToLower(v))
	}
	if v := os.Getenv("RECALL_CHAT_PROVIDER"); v != "" {
		cfg.ChatProvider = Provider(strings.ToLower(v))
	}
	setString("RECALL_ENDPOINT", &cfg.Endpoint)
	setString("RECALL_API_KEY", &cfg.APIKey)
	setString("RECALL_API_VERSION", &cfg.APIVersion)
	setString("RECALL_EMBED_MODEL", &cfg.EmbedModel)
	setString("RECALL_EMBED_DEPLOYMENT", &cfg.EmbedDeployment)
	setString("RECALL_CHAT_MODEL", &cfg.ChatModel)
	setString("RECALL_CHAT_DEPLOYMENT", &cfg.ChatDeployment)
	setString("OLLAMA_HOST", &cfg.OllamaHost)
	setString("AWS_REGION", &cfg.AWSRegion)

	if v := os.Getenv("RECALL_STORE"); v != "" {
		cfg.Store = StoreProvider(strings.ToLower(v))
	}
	setString("RECALL_STORE_URI", &cfg.StoreURI)
	setString("RECALL_DATABASE", &cfg.DatabaseName)
	setString("RECALL_COLLECTION", &cfg.CollectionName)
	setString("RECALL_INDEX", &cfg.IndexName)
	setString("RECALL_SURREAL_NAMESPACE", &cfg.SurrealNamespace)
	setString("RECALL_SURREAL_USER", &cfg.SurrealUser)
	setString("RECALL_SURREAL_PASS", &cfg.SurrealPass)

	if v := os.Getenv("RECALL_EMBED_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbedDimension = n
		}
	}
	if v := os.Getenv("RECALL_SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchLimit = n
		}
	}
	if v := os.Getenv("RECALL_MIN_RELEVANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinRelevance = f
		}
	}
	if v := os.Getenv("RECALL_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.HistoryLimit = n
		}
	}
	if v := os.Getenv("RECALL_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}

	setString("RECALL_LOG_FILE", &cfg.LogFile)
	if v := os.Getenv("RECALL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
}

// Validate fails fast on missing required settings for the selected
// providers. A memory-store run needs no store connection string; the
// remote backends do.
func (c Config) Validate() error {
	var missing []string

	switch c.EmbedProvider {
	case ProviderAzure:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_ENDPOINT":         c.Endpoint,
			"RECALL_API_KEY":          c.APIKey,
			"RECALL_EMBED_MODEL":      c.EmbedModel,
			"RECALL_EMBED_DEPLOYMENT": c.EmbedDeployment,
		})...)
	case ProviderOpenAI:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_API_KEY":     c.APIKey,
			"RECALL_EMBED_MODEL": c.EmbedModel,
		})...)
	case ProviderOllama:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_EMBED_MODEL": c.EmbedModel,
		})...)
	case ProviderBedrock:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_EMBED_MODEL": c.EmbedModel,
			"AWS_REGION":         c.AWSRegion,
		})...)
	default:
		return fmt.Errorf("%w: unknown embed provider %q", memory.ErrConfig, c.EmbedProvider)
	}

	switch c.ChatProvider {
	case ProviderAzure:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_ENDPOINT":        c.Endpoint,
			"RECALL_API_KEY":         c.APIKey,
			"RECALL_CHAT_MODEL":      c.ChatModel,
			"RECALL_CHAT_DEPLOYMENT": c.ChatDeployment,
		})...)
	case ProviderOpenAI:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_API_KEY":    c.APIKey,
			"RECALL_CHAT_MODEL": c.ChatModel,
		})...)
	case ProviderOllama:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_CHAT_MODEL": c.ChatModel,
		})...)
	default:
		return fmt.Errorf("%w: unknown chat provider %q", memory.ErrConfig, c.ChatProvider)
	}

	switch c.Store {
	case StoreMemory:
		// nothing remote to reach
	case StoreAtlas:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_STORE_URI":  c.StoreURI,
			"RECALL_DATABASE":   c.DatabaseName,
			"RECALL_COLLECTION": c.CollectionName,
			"RECALL_INDEX":      c.IndexName,
		})...)
	case StoreSurreal:
		missing = append(missing, requireAll(map[string]string{
			"RECALL_STORE_URI": c.StoreURI,
			"RECALL_DATABASE":  c.DatabaseName,
		})...)
	default:
		return fmt.Errorf("%w: unknown store provider %q", memory.ErrConfig, c.Store)
	}

	if c.EmbedDimension <= 0 {
		missing = append(missing, "RECALL_EMBED_DIMENSION")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required settings: %s",
			memory.ErrConfig, strings.Join(dedupe(missing), ", "))
	}
	return nil
}

func requireAll(keys map[string]string) []string {
	var missing []string
	for key, val := range keys {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
