package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mailpilot/internal/analysis"
	"mailpilot/internal/compose"
	"mailpilot/internal/config"
	"mailpilot/internal/knowledge"
	"mailpilot/internal/llm"
	"mailpilot/internal/mailbox"
	"mailpilot/internal/pipeline"
	"mailpilot/internal/store"
	"mailpilot/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mailpilot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GenModel, cfg.EmbedModel)
	if err != nil {
		return fmt.Errorf("init gemini client: %w", err)
	}
	defer gemini.Close()
	generator := llm.WithRetry(gemini, cfg.LLMRetries)

	retriever, err := knowledge.NewRetriever(cfg.IndexDir, gemini, cfg.MinRelevance, logger)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	if cfg.KnowledgeFile != "" {
		n, err := retriever.LoadKnowledgeBase(ctx, cfg.KnowledgeFile)
		if err != nil {
			logger.Warn("knowledge base not loaded, retrieval will return no context",
				"path", cfg.KnowledgeFile, "error", err)
		} else {
			logger.Info("knowledge base loaded", "chunks", n, "path", cfg.KnowledgeFile)
		}
	}

	archive, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer archive.Close()

	gateway := mailbox.NewGateway(mailbox.Options{
		IMAPAddr:   cfg.IMAPAddr,
		SMTPAddr:   cfg.SMTPAddr,
		Username:   cfg.GmailAddress,
		Password:   cfg.GmailPassword,
		BatchLimit: cfg.BatchLimit,
		Logger:     logger,
	})

	analyzer := analysis.NewAnalyzer(generator, logger)
	composer := compose.NewComposer(generator, logger)

	pipe := pipeline.New(gateway, analyzer, retriever, composer, archive, cfg.TopK, logger)

	server := web.NewServer(pipe, logger)
	return server.ListenAndServe(cfg.ListenAddr)
}
