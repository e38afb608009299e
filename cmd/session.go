package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MrMcEpic/whisper-transcription/internal/config"
	"github.com/MrMcEpic/whisper-transcription/internal/diarize"
	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/speaker"
	"github.com/MrMcEpic/whisper-transcription/internal/transcribe"
	"github.com/MrMcEpic/whisper-transcription/internal/translate"
	"github.com/MrMcEpic/whisper-transcription/internal/worker"
)

// loadConfig returns defaults, overlaid with --config when given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("config loaded", "path", configPath)
	return cfg, nil
}

// finishConfig reads secrets and validates cfg after flag overrides.
func finishConfig(cfg *config.Config) error {
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func newDiarizer(cfg *config.Config) speaker.Source {
	if !cfg.Diarization.Enabled {
		return diarize.Unavailable{Reason: "disabled"}
	}
	if cfg.Diarization.Token == "" {
		slog.Warn("no Hugging Face token set (TOKEN or HF_TOKEN), relying on a cached login")
	}
	return diarize.New(cfg.Diarization.Model, cfg.Diarization.Token)
}

func newTranslator(cfg *config.Config) *translate.Service {
	backend := translate.NewGemini(cfg.Translation.Model, cfg.Translation.APIKeys...)
	return translate.NewService(backend, translate.Options{
		Timeout:         time.Duration(cfg.Translation.TimeoutSec) * time.Second,
		RateLimitPerMin: cfg.Translation.RateLimitPerMin,
		MaxConcurrent:   cfg.Translation.MaxConcurrent,
	})
}

func newSession(cfg *config.Config, tr transcribe.Transcriber, translator *translate.Service, agg *progress.Aggregator) *worker.Session {
	return worker.New(worker.Deps{
		Transcriber: tr,
		Diarizer:    newDiarizer(cfg),
		Translator:  translator,
		Progress:    agg,
	})
}
