package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrMcEpic/whisper-transcription/internal/config"
	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/transcribe"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
	"github.com/MrMcEpic/whisper-transcription/internal/worker"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Transcribe an audio/video file",
	Long: `Transcribe an audio or video file with Whisper. Speaker labels come from
pyannote diarization when available; subtitles and translated subtitles can be
exported alongside the transcript.`,
	Args: cobra.NoArgs,
	RunE: runTranscribe,
}

var (
	inputPath        string
	model            string
	output           string
	noTimestamps     bool
	noWordTimestamps bool
	noDiarization    bool
	cleanFormat      bool
	wordLevel        bool
	language         string
	translateText    bool
	targetLanguage   string
	subtitleLanguage string

	exportSRT           string
	exportVTT           string
	exportSRTTranslated string
	exportVTTTranslated string
	exportJSON          string
	exportDocx          string
)

func init() {
	defaults := config.Default()
	f := transcribeCmd.Flags()

	f.StringVarP(&inputPath, "input", "i", "", "input audio/video file")
	f.StringVar(&model, "model", defaults.Model, "whisper model: "+strings.Join(config.WhisperModels, ", "))
	f.StringVarP(&output, "output", "o", "", "write the transcript to this file instead of stdout")
	f.BoolVar(&noTimestamps, "no-timestamps", false, "plain text without timestamps")
	f.BoolVar(&noWordTimestamps, "no-word-timestamps", false, "disable word-level timestamps")
	f.BoolVar(&noDiarization, "no-speaker-diarization", false, "disable speaker diarization")
	f.BoolVar(&cleanFormat, "clean-format", false, "one normalized line per segment")
	f.BoolVar(&wordLevel, "word-level", false, "list every word with its timing")
	f.StringVar(&language, "language", defaults.Language, "source language (auto to detect)")
	f.BoolVar(&translateText, "translate", false, "translate the transcript to --target-language")
	f.StringVar(&targetLanguage, "target-language", defaults.TargetLanguage, "transcript translation target")
	f.StringVar(&subtitleLanguage, "subtitle-language", defaults.SubtitleLanguage, "translated subtitle language")

	f.StringVar(&exportSRT, "export-srt", "", "export SRT subtitles to this path")
	f.StringVar(&exportVTT, "export-vtt", "", "export WebVTT subtitles to this path")
	f.StringVar(&exportSRTTranslated, "export-srt-translated", "", "export translated SRT subtitles to this path")
	f.StringVar(&exportVTTTranslated, "export-vtt-translated", "", "export translated WebVTT subtitles to this path")
	f.StringVar(&exportJSON, "export-json", "", "archive the raw transcription result as JSON")
	f.StringVar(&exportDocx, "export-docx", "", "export the transcript as a Word document")

	transcribeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(transcribeCmd)
}

// applyTranscribeFlags overrides cfg with flags set on the command line.
func applyTranscribeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("model") {
		cfg.Model = model
	}
	if f.Changed("language") {
		cfg.Language = language
	}
	if f.Changed("target-language") {
		cfg.TargetLanguage = targetLanguage
	}
	if f.Changed("subtitle-language") {
		cfg.SubtitleLanguage = subtitleLanguage
	}
	if noDiarization {
		cfg.Diarization.Enabled = false
	}
	if noWordTimestamps {
		cfg.Output.WordTimestamps = false
	}

	switch {
	case cleanFormat:
		cfg.Output.Mode = string(transcript.ModeClean)
	case noTimestamps:
		cfg.Output.Mode = string(transcript.ModePlain)
	case wordLevel:
		cfg.Output.Mode = string(transcript.ModeWords)
	}
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(inputPath)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return fmt.Errorf("%w: %s", worker.ErrInput, inputPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyTranscribeFlags(cmd, cfg)
	if err := finishConfig(cfg); err != nil {
		return err
	}
	mode, err := transcript.ParseMode(cfg.Output.Mode)
	if err != nil {
		return err
	}

	// Setup signal handling for graceful cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := worker.Options{
		InputPath:        absPath,
		OutputPath:       output,
		Model:            cfg.Model,
		Language:         cfg.Language,
		Mode:             mode,
		WordTimestamps:   cfg.Output.WordTimestamps,
		Diarize:          cfg.Diarization.Enabled,
		Translate:        translateText,
		TargetLanguage:   cfg.TargetLanguage,
		SubtitleLanguage: cfg.SubtitleLanguage,
		Exports: worker.Exports{
			SRT:           exportSRT,
			VTT:           exportVTT,
			SRTTranslated: exportSRTTranslated,
			VTTTranslated: exportVTTTranslated,
			JSON:          exportJSON,
			Docx:          exportDocx,
		},
	}

	agg := progress.New(64)
	sess := newSession(cfg, transcribe.NewWhisper(), newTranslator(cfg), agg)

	type outcome struct {
		report *worker.Report
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := sess.Run(ctx, opts)
		agg.Close()
		done <- outcome{report, err}
	}()

	newProgressView(quiet).Loop(agg.Events())
	res := <-done
	if res.err != nil {
		return res.err
	}

	report := res.report
	if len(report.Speakers) > 0 {
		slog.Info("speakers detected", "speakers", strings.Join(report.Speakers, ", "))
	}
	if output == "" && !opts.Exports.Subtitles() {
		fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("=", 50))
		fmt.Fprintln(cmd.OutOrStdout(), "TRANSCRIPT:")
		fmt.Fprintln(cmd.OutOrStdout(), strings.Repeat("=", 50))
		fmt.Fprintln(cmd.OutOrStdout(), report.Text)
	}

	if !quiet {
		slog.Info("done", "files", len(report.Written))
	}
	return nil
}
