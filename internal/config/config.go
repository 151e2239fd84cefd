// Package config loads service configuration from the environment using
// Viper. Credentials are required and validated at startup; everything else
// has a documented default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the explicit configuration object handed to each component at
// construction. No component reads the environment on its own.
type Config struct {
	// Mailbox credentials (app-scoped password, not the account password).
	GmailAddress  string
	GmailPassword string

	// Text-generation endpoint.
	GeminiAPIKey string
	GenModel     string
	EmbedModel   string

	// Endpoints.
	IMAPAddr   string
	SMTPAddr   string
	ListenAddr string

	// Retrieval.
	TopK          int
	MinRelevance  float32
	KnowledgeFile string
	IndexDir      string

	// Processing.
	LLMRetries int
	BatchLimit int

	// Storage.
	DBPath string
}

func defaults(v *viper.Viper, configDir string) {
	v.SetDefault("imap_addr", "imap.gmail.com:993")
	v.SetDefault("smtp_addr", "smtp.gmail.com:587")
	v.SetDefault("listen_addr", "127.0.0.1:8000")
	v.SetDefault("top_k", 3)
	v.SetDefault("min_relevance", 0.3)
	v.SetDefault("llm_retries", 2)
	v.SetDefault("batch_limit", 20)
	v.SetDefault("db_path", filepath.Join(configDir, "mailpilot.db"))
	v.SetDefault("index_dir", filepath.Join(configDir, "index"))
	v.SetDefault("knowledge_file", "knowledge_base.txt")
	v.SetDefault("gen_model", "gemini-1.5-flash-latest")
	v.SetDefault("embed_model", "embedding-001")
}

// Load reads configuration from the environment. MAILPILOT_* variables
// override the defaults; the three credentials keep their historical
// unprefixed names. Missing credentials are a fatal startup error, returned
// here and reported by main.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determine home directory: %w", err)
	}
	configDir := filepath.Join(home, ".config", "mailpilot")

	v := viper.New()
	v.SetEnvPrefix("MAILPILOT")
	v.AutomaticEnv()
	defaults(v, configDir)

	// Credential names predate the MAILPILOT_ prefix and are deliberately
	// bound without it.
	for key, env := range map[string]string{
		"gmail_address":  "GMAIL_ADDRESS",
		"gmail_password": "GMAIL_PASSWORD",
		"gemini_api_key": "GEMINI_API_KEY",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		GmailAddress:  v.GetString("gmail_address"),
		GmailPassword: v.GetString("gmail_password"),
		GeminiAPIKey:  v.GetString("gemini_api_key"),
		GenModel:      v.GetString("gen_model"),
		EmbedModel:    v.GetString("embed_model"),
		IMAPAddr:      v.GetString("imap_addr"),
		SMTPAddr:      v.GetString("smtp_addr"),
		ListenAddr:    v.GetString("listen_addr"),
		TopK:          v.GetInt("top_k"),
		MinRelevance:  float32(v.GetFloat64("min_relevance")),
		KnowledgeFile: v.GetString("knowledge_file"),
		IndexDir:      v.GetString("index_dir"),
		LLMRetries:    v.GetInt("llm_retries"),
		BatchLimit:    v.GetInt("batch_limit"),
		DBPath:        v.GetString("db_path"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.GmailAddress == "" {
		missing = append(missing, "GMAIL_ADDRESS")
	}
	if c.GmailPassword == "" {
		missing = append(missing, "GMAIL_PASSWORD")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be positive, got %d", c.BatchLimit)
	}
	if c.LLMRetries < 0 {
		return fmt.Errorf("llm_retries must not be negative, got %d", c.LLMRetries)
	}
	return nil
}
