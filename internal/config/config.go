package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

type GeminiConfig struct {
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
	// APIKey comes from the GOOGLE_API_KEY environment variable, never from file.
	APIKey string `yaml:"-"`
}

type RAGConfig struct {
	ChunkSize        int      `yaml:"chunk_size"`
	ChunkOverlap     int      `yaml:"chunk_overlap"`
	TopK             int      `yaml:"top_k"`
	MaxContextChunks int      `yaml:"max_context_chunks"`
	DomainKeywords   []string `yaml:"domain_keywords"`
}

type StorageConfig struct {
	PDFDir      string `yaml:"pdf_dir"`
	VectorDBDir string `yaml:"vector_db_dir"`
}

type SessionConfig struct {
	MaxHistory  int `yaml:"max_history"`
	MaxAgeHours int `yaml:"max_age_hours"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	RAG       RAGConfig       `yaml:"rag"`
	Storage   StorageConfig   `yaml:"storage"`
	Session   SessionConfig   `yaml:"session"`
}

// defaultKeywords gates which queries are considered in-domain for the
// medical assistant. Matching is case-insensitive substring.
var defaultKeywords = []string{
	"drug", "medication", "medicine", "prescription", "dosage", "dose",
	"contraindication", "side effect", "adverse", "interaction", "treatment",
	"therapy", "pharmaceutical", "clinical", "patient", "healthcare",
	"medical", "diagnosis", "symptom", "disease", "condition", "health",
	"administration", "indication", "precaution", "warning", "safety",
}

// Load reads the yaml config at path. A missing file yields defaults.
// The Gemini API key is always taken from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	cfg.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 384
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = 0.1
	}
	if cfg.Gemini.MaxOutputTokens == 0 {
		cfg.Gemini.MaxOutputTokens = 4000
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 10
	}
	if cfg.RAG.MaxContextChunks == 0 {
		cfg.RAG.MaxContextChunks = 5
	}
	if len(cfg.RAG.DomainKeywords) == 0 {
		cfg.RAG.DomainKeywords = defaultKeywords
	}
	if cfg.Storage.PDFDir == "" {
		cfg.Storage.PDFDir = "./pdfs"
	}
	if cfg.Storage.VectorDBDir == "" {
		cfg.Storage.VectorDBDir = "./vector_db"
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 10
	}
	if cfg.Session.MaxAgeHours == 0 {
		cfg.Session.MaxAgeHours = 24
	}
}
