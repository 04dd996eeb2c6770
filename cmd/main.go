package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nihilism/server/internal/config"
	"nihilism/server/internal/engine"
	"nihilism/server/internal/interfaces"
	"nihilism/server/internal/prompts"
	"nihilism/server/internal/storage"
	"nihilism/server/internal/web"
)

func main() {
	// Optional .env next to the binary
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Failed to read .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	debug := cfg.Logging.Debug()

	snapshots, err := storage.Open(cfg.Persistence, debug)
	if err != nil {
		log.Fatalf("Failed to open %s snapshot store: %v", cfg.Persistence.Backend, err)
	}
	log.Printf("Snapshot store ready: %s", cfg.Persistence.Backend)

	narrator, err := newNarrator(cfg.LLM, debug)
	if err != nil {
		log.Fatalf("Failed to initialise narrator: %v", err)
	}
	log.Printf("Narrator ready: %s (%s)", cfg.LLM.Provider, cfg.LLM.Model)

	store := engine.NewSessionStore(engine.Options{
		Rules:           cfg.Game.Rules(),
		Narrator:        narrator,
		Snapshots:       snapshots,
		RecentMemories:  cfg.Game.RecentMemories,
		NarratorTimeout: cfg.LLM.RequestTimeout,
	})
	if cfg.Game.Autosave.Enabled {
		store.Subscribe(engine.NewAutosaver(store, cfg.Game.Autosave.IntervalChoices))
		log.Printf("Autosave every %d choices", cfg.Game.Autosave.IntervalChoices)
	}
	hub := web.NewSessionHub()
	store.Subscribe(hub)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      web.NewRouter(cfg.Server, store, hub),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	hub.Close()
	if err := store.Close(); err != nil {
		log.Printf("Snapshot store close error: %v", err)
	}

	log.Println("Server stopped")
}

func newNarrator(cfg config.LLMConfig, debug bool) (interfaces.Narrator, error) {
	tmpl := prompts.NewTemplateEngine()
	switch cfg.Provider {
	case config.ProviderGemini:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return engine.NewGeminiNarrator(ctx, cfg, tmpl, debug)
	default:
		return engine.NewOpenAINarrator(cfg, tmpl, debug), nil
	}
}
