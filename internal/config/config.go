package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/localmem/memsys/internal/store"
)

// Config is the frozen set of recognized options for the memory system.
// It is loaded once at process startup: an optional TOML file first,
// then environment variables override any field they name. Nothing
// downstream mutates a Config after Load returns.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Hooks    HooksConfig    `toml:"hooks"`
	Memory   MemoryConfig   `toml:"memory"`
	Search   SearchConfig   `toml:"search"`
	Breaker  BreakerConfig  `toml:"breaker"`
	Queue    QueueConfig    `toml:"queue"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

// DatabaseConfig names the sidecar SQLite file. Older plans split
// session/FSRS/intelligence state across three databases; this system
// keeps one file since every table it needs lives behind a single
// *store.DB connection pool.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider       string `toml:"provider"` // "claude-cli", "anthropic", "ollama", "mock"
	Model          string `toml:"model"`
	MergeModel     string `toml:"merge_model"`
	OllamaURL      string `toml:"ollama_url"`
	OllamaModel    string `toml:"ollama_model"`
	EmbeddingModel string `toml:"embedding_model"`
	AnthropicKey   string `toml:"anthropic_key"`
	Enabled        bool   `toml:"enabled"`
	TimeoutMS      int    `toml:"timeout_ms"`
}

type HooksConfig struct {
	Enabled bool `toml:"enabled"`
	Timeout int  `toml:"timeout"` // seconds
}

// MemoryConfig holds the project_id/memory_dir/thresholds named in
// spec.md §9's configuration-object list.
type MemoryConfig struct {
	ProjectID               string  `toml:"project_id"`
	MemoryDir               string  `toml:"memory_dir"`
	StaleThresholdDays      int     `toml:"stale_threshold_days"`
	ArchiveThreshold        float64 `toml:"archive_threshold"`
	DedupRatio              float64 `toml:"dedup_ratio"`
	ReinforcementCap        float64 `toml:"reinforcement_cap"`
	ReinforcementMultiplier float64 `toml:"reinforcement_multiplier"`
	ContradictionConfidence float64 `toml:"contradiction_confidence"`
}

type SearchConfig struct {
	HybridAlpha      float64 `toml:"hybrid_alpha"` // weight of semantic in hybrid fusion
	WeightSemantic   float64 `toml:"weight_semantic"`
	WeightKeyword    float64 `toml:"weight_keyword"`
	WeightRecency    float64 `toml:"weight_recency"`
	WeightImportance float64 `toml:"weight_importance"`
	CacheTTLSeconds  int     `toml:"cache_ttl_seconds"`
	SimilarityFloor  float64 `toml:"similarity_floor"`
	TopKBeforeRank   int     `toml:"top_k_before_rank"`
}

type BreakerConfig struct {
	FailureThreshold int `toml:"failure_threshold"`
	RecoveryTimeoutS int `toml:"recovery_timeout_s"`
}

type QueueConfig struct {
	Capacity int    `toml:"capacity"`
	Path     string `toml:"path"`
}

// Default returns a Config with sensible defaults, matching spec.md's
// literal constants wherever it specifies one.
func Default() Config {
	return Config{
		Server:   ServerConfig{Bind: "127.0.0.1", Port: 37777},
		Database: DatabaseConfig{Path: ""},
		LLM: LLMConfig{
			Provider:       "claude-cli",
			Model:          "haiku",
			MergeModel:     "sonnet",
			OllamaURL:      "http://127.0.0.1:11434",
			OllamaModel:    "llama3.2",
			EmbeddingModel: "all-minilm",
			Enabled:        false,
			TimeoutMS:      30000,
		},
		Hooks: HooksConfig{Enabled: true, Timeout: 120},
		Memory: MemoryConfig{
			ProjectID:               "default",
			MemoryDir:               "",
			StaleThresholdDays:      180,
			ArchiveThreshold:        0.2,
			DedupRatio:              0.70,
			ReinforcementCap:        0.95,
			ReinforcementMultiplier: 1.15,
			ContradictionConfidence: 0.75,
		},
		Search: SearchConfig{
			HybridAlpha:      0.7,
			WeightSemantic:   0.5,
			WeightKeyword:    0.2,
			WeightRecency:    0.2,
			WeightImportance: 0.1,
			CacheTTLSeconds:  86400,
			SimilarityFloor:  0.65,
			TopKBeforeRank:   50,
		},
		Breaker: BreakerConfig{FailureThreshold: 3, RecoveryTimeoutS: 60},
		Queue:   QueueConfig{Capacity: 1000, Path: ""},
	}
}

// Load builds a Config starting from Default, layering an optional TOML
// file, then environment variables, which win last.
func Load(tomlPath string) (Config, error) {
	cfg := Default()

	if tomlPath != "" {
		data, err := os.ReadFile(tomlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config file: %w", err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	resolvePaths(&cfg)
	return cfg, nil
}

// resolvePaths fills in the memory directory and sidecar DB path with
// defaults under the user's home directory when neither a config file
// nor an env var named one.
func resolvePaths(c *Config) {
	if c.Memory.MemoryDir != "" && c.Database.Path != "" {
		return
	}
	base, err := store.DefaultDir()
	if err != nil {
		base = ".memsys"
	}
	if c.Memory.MemoryDir == "" {
		c.Memory.MemoryDir = filepath.Join(base, "memories")
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(base, "memsys.db")
	}
}

func applyEnv(c *Config) {
	if v := os.Getenv("MEMORY_SYSTEM_PROJECT_ID"); v != "" {
		c.Memory.ProjectID = v
	}
	if v := os.Getenv("MEMORY_SYSTEM_MEMORY_DIR"); v != "" {
		c.Memory.MemoryDir = v
	}
	if v := os.Getenv("MEMORY_SYSTEM_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MEMORY_SYSTEM_LLM_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LLM.Enabled = b
		}
	}
	if v := os.Getenv("MEMORY_SYSTEM_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.TimeoutMS = n
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicKey = v
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// SkipHook reports whether SKIP_HOOK_<NAME> is set truthy in the
// environment, per spec.md §6's per-hook bypass flags.
func SkipHook(name string) bool {
	v := os.Getenv("SKIP_HOOK_" + name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
