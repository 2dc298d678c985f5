package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl_seconds"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type CorpusConfig struct {
	EmbeddingsPath string `yaml:"embeddings_path"`
	MetadataPath   string `yaml:"metadata_path"`
}

type RAGConfig struct {
	TopK           int `yaml:"top_k"`
	EmbedWorkers   int `yaml:"embed_workers"`
	StreamTimeout  int `yaml:"stream_timeout_seconds"`
	RequestTimeout int `yaml:"request_timeout_seconds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	RAG      RAGConfig      `yaml:"rag"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// Default returns the configuration used when no file is provided.
// Secrets still come from the environment.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{Addr: ":8000"},
		Corpus: CorpusConfig{
			EmbeddingsPath: "./data/book_embeddings.json",
			MetadataPath:   "./data/book_metadata.json",
		},
		EmbedLLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "nomic-embed-text",
		},
		ChatLLM: LLMConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Redis:    RedisConfig{Addr: "localhost:6379", TTL: 3600},
		Database: DatabaseConfig{},
		RAG: RAGConfig{
			TopK:           5,
			EmbedWorkers:   2,
			StreamTimeout:  60,
			RequestTimeout: 30,
		},
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	c.ChatLLM.Key = getEnv("CHAT_LLM_KEY", c.ChatLLM.Key)
	c.ChatLLM.BaseURL = getEnv("CHAT_LLM_BASE_URL", c.ChatLLM.BaseURL)
	c.EmbedLLM.BaseURL = getEnv("EMBED_LLM_BASE_URL", c.EmbedLLM.BaseURL)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Database.Password = getEnv("DATABASE_PASSWORD", c.Database.Password)
	c.RAG.TopK = getEnvInt("TOP_K", c.RAG.TopK)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
