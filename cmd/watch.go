package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/transcribe"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
	"github.com/MrMcEpic/whisper-transcription/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Transcribe every media file dropped into a directory",
	Long: `Watch a directory and transcribe each new audio or video file, writing
<name>.txt and <name>.srt next to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchModel         string
	watchLanguage      string
	watchNoDiarization bool
	watchConcurrent    int
)

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchModel, "model", "", "whisper model (default from config)")
	f.StringVar(&watchLanguage, "language", "", "source language (default from config)")
	f.BoolVar(&watchNoDiarization, "no-speaker-diarization", false, "disable speaker diarization")
	f.IntVarP(&watchConcurrent, "max-concurrent", "j", 0, "files processed at once (default from config)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchModel != "" {
		cfg.Model = watchModel
	}
	if watchLanguage != "" {
		cfg.Language = watchLanguage
	}
	if watchNoDiarization {
		cfg.Diarization.Enabled = false
	}
	if watchConcurrent > 0 {
		cfg.Watch.MaxConcurrent = watchConcurrent
	}
	if err := finishConfig(cfg); err != nil {
		return err
	}
	mode, err := transcript.ParseMode(cfg.Output.Mode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	whisper := transcribe.NewWhisper()
	translator := newTranslator(cfg)

	handler := func(ctx context.Context, path string) error {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		sess := newSession(cfg, whisper, translator, progress.New(0))
		_, err := sess.Run(ctx, worker.Options{
			InputPath:      path,
			OutputPath:     base + ".txt",
			Model:          cfg.Model,
			Language:       cfg.Language,
			Mode:           mode,
			WordTimestamps: cfg.Output.WordTimestamps,
			Diarize:        cfg.Diarization.Enabled,
			Exports:        worker.Exports{SRT: base + ".srt"},
		})
		return err
	}

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	w, err := worker.NewWatcher(dir, handler, cfg.Watch.MaxConcurrent)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
