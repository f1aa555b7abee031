package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"github.com/hcx1999/AIgame/internal/config"
	"github.com/hcx1999/AIgame/internal/engine"
	"github.com/hcx1999/AIgame/internal/logger"
	"github.com/hcx1999/AIgame/internal/services"
	"github.com/hcx1999/AIgame/internal/services/events"
	"github.com/hcx1999/AIgame/internal/storage"
	"github.com/hcx1999/AIgame/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg)

	if cfg.APIKey == "" {
		fmt.Fprintln(os.Stderr, "SILICONFLOW_API_KEY is required")
		os.Exit(1)
	}

	llm := services.NewSiliconFlowService(cfg.BaseURL, cfg.APIKey, cfg.ModelName, log)

	sensitiveWords, err := textfilter.LoadSensitiveWords(cfg.SensitiveWordsDir)
	if err != nil {
		log.Warn("Failed to load sensitive word lists", "error", err, "dir", cfg.SensitiveWordsDir)
	}
	screener := textfilter.NewScreener(sensitiveWords)

	presenter := &enginePresenter{}
	ensemble := engine.NewEnsemble(llm, log)
	coordinator := engine.NewCoordinator(llm, ensemble, presenter, log)
	assistant := engine.NewAssistant(llm, presenter, coordinator.SubmitBackground, log)

	if cfg.ImageModel != "" {
		coordinator.WithImages(services.NewSiliconFlowImageService(
			cfg.BaseURL, cfg.APIKey, cfg.ImageModel, cfg.ImageDir, log))
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("Invalid REDIS_URL, persistence disabled", "error", err)
		} else {
			client := redis.NewClient(opts)
			store := storage.NewSessionStore(client, log)
			coordinator.WithStore(store)
			broadcaster := events.NewBroadcaster(client, log)
			coordinator.WithBroadcaster(broadcaster)
			assistant.WithBroadcaster(broadcaster)
			defer func() { _ = store.Close() }()
		}
	}

	model := NewConsoleUI(coordinator, assistant, screener, cfg.MaxInputLength)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	presenter.program = program

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := coordinator.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Narrator coordinator stopped", "error", err)
		}
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running game client: %v\n", err)
		os.Exit(1)
	}
}
