package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/MrMcEpic/whisper-transcription/internal/diarize"
	"github.com/MrMcEpic/whisper-transcription/internal/ffmpeg"
	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/speaker"
	"github.com/MrMcEpic/whisper-transcription/internal/transcribe"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
	"github.com/MrMcEpic/whisper-transcription/internal/translate"
)

// ErrInput is returned when the input file is missing or unreadable.
var ErrInput = errors.New("input file not found")

// Options configures one run.
type Options struct {
	InputPath        string
	OutputPath       string
	Model            string
	Language         string
	Mode             transcript.Mode
	WordTimestamps   bool
	Diarize          bool
	Translate        bool
	TargetLanguage   string
	SubtitleLanguage string
	Exports          Exports
}

// Deps are the collaborators of a Session. Nil fields get working defaults.
type Deps struct {
	Transcriber transcribe.Transcriber
	Diarizer    speaker.Source
	Translator  *translate.Service
	Progress    *progress.Aggregator
	Stages      []progress.Stage
	// ConvertAudio turns the input into a WAV file the diarizer can read.
	ConvertAudio func(ctx context.Context, inputPath, outputPath string) error
}

// Report is the outcome of a successful run.
type Report struct {
	RunID    string
	Result   *transcript.Result
	Speakers []string
	Lines    []transcript.Line
	Text     string
	Written  []string
}

// Session runs transcriptions one at a time against a shared model.
type Session struct {
	deps Deps
}

// New returns a Session. The transcriber is required.
func New(deps Deps) *Session {
	if deps.Diarizer == nil {
		deps.Diarizer = diarize.Unavailable{Reason: "diarization disabled"}
	}
	if deps.Translator == nil {
		deps.Translator = translate.NewService(nil, translate.Options{})
	}
	if deps.Progress == nil {
		deps.Progress = progress.New(0)
	}
	if deps.Stages == nil {
		deps.Stages = progress.DefaultStages()
	}
	if deps.ConvertAudio == nil {
		deps.ConvertAudio = convertWithFFmpeg
	}
	return &Session{deps: deps}
}

// convertWithFFmpeg reports a missing ffmpeg as diarize.ErrUnavailable so
// the run continues without speakers.
func convertWithFFmpeg(ctx context.Context, inputPath, outputPath string) error {
	if !ffmpeg.Available() {
		return fmt.Errorf("%w: ffmpeg not found on PATH", diarize.ErrUnavailable)
	}
	return ffmpeg.ConvertToWAV(ctx, inputPath, outputPath)
}

// Progress returns the aggregator the session reports to.
func (s *Session) Progress() *progress.Aggregator {
	return s.deps.Progress
}

// Run transcribes opts.InputPath. Temporary files are removed on every
// return path.
func (s *Session) Run(ctx context.Context, opts Options) (*Report, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID)

	if _, err := os.Stat(opts.InputPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInput, opts.InputPath)
	}

	agg := s.deps.Progress
	agg.Reset()

	temps := &TempFiles{}
	defer temps.Cleanup()

	log.Info("processing file", "input", filepath.Base(opts.InputPath), "model", opts.Model)
	ffmpeg.LogMediaInfo(ctx, opts.InputPath)

	report, err := s.run(ctx, log, opts, temps)
	if err != nil {
		agg.Fail(err)
		return nil, err
	}
	report.RunID = runID

	agg.Finish("Transcription complete")
	return report, nil
}

func (s *Session) run(ctx context.Context, log *slog.Logger, opts Options, temps *TempFiles) (*Report, error) {
	agg := s.deps.Progress

	agg.Begin(progress.ModelLoading, "Loading Whisper model "+opts.Model)
	if err := s.deps.Transcriber.Load(ctx, opts.Model); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	locator := speaker.NewLocator(nil)
	if opts.Diarize {
		locator = s.diarize(ctx, log, opts.InputPath, temps)
	}

	agg.Begin(progress.Transcribing, "Transcribing")
	task := transcribe.TaskTranscribe
	if opts.Translate && opts.TargetLanguage == "en" {
		task = transcribe.TaskTranslate
	}
	result, err := s.deps.Transcriber.Transcribe(ctx, opts.InputPath, transcribe.Options{
		Language:       opts.Language,
		Task:           task,
		WordTimestamps: opts.WordTimestamps,
	}, agg.TranscriptionSink())
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	log.Info("transcription finished", "segments", len(result.Segments), "language", result.Language)

	var translations *transcript.Translations
	if opts.Translate && opts.TargetLanguage != "en" {
		translations = s.translate(ctx, log, result, opts.TargetLanguage)
	}

	lines := transcript.Render(result, locator, translations, transcript.Options{
		Mode:           opts.Mode,
		IncludeSpeaker: locator.Len() > 0,
		IncludeWords:   opts.WordTimestamps,
	})

	report := &Report{
		Result:   result,
		Speakers: locator.Speakers(),
		Lines:    lines,
		Text:     transcript.Join(lines),
	}

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, []byte(report.Text), 0644); err != nil {
			return nil, fmt.Errorf("write transcript: %w", err)
		}
		log.Info("transcript saved", "path", opts.OutputPath)
		report.Written = append(report.Written, opts.OutputPath)
	}

	written, err := s.export(ctx, log, opts, result, locator, lines)
	report.Written = append(report.Written, written...)
	if err != nil {
		return nil, err
	}
	return report, nil
}

type diarizeResult struct {
	turns []speaker.Turn
	err   error
}

// diarize runs the diarizer while simulating stage progress. Failures are
// logged and yield an empty locator.
func (s *Session) diarize(ctx context.Context, log *slog.Logger, inputPath string, temps *TempFiles) *speaker.Locator {
	agg := s.deps.Progress
	agg.Begin(progress.Diarizing, "Speaker diarization")

	fail := func(err error) *speaker.Locator {
		if errors.Is(err, diarize.ErrUnavailable) {
			log.Warn("speaker diarization not available, continuing without speakers", "err", err)
		} else {
			log.Warn("speaker diarization failed, continuing without speakers", "err", err)
		}
		agg.DiarizationFailed(err)
		return speaker.NewLocator(nil)
	}

	audioPath := inputPath
	if ffmpeg.NeedsConversion(inputPath) {
		wavPath := filepath.Join(os.TempDir(), "diarize_"+uuid.NewString()+".wav")
		temps.Add(wavPath)
		if err := s.deps.ConvertAudio(ctx, inputPath, wavPath); err != nil {
			return fail(fmt.Errorf("convert audio: %w", err))
		}
		audioPath = wavPath
	}

	simCtx, stop := context.WithCancel(ctx)
	defer stop()

	done := make(chan diarizeResult, 1)
	go func() {
		turns, err := s.deps.Diarizer.Diarize(ctx, audioPath)
		done <- diarizeResult{turns: turns, err: err}
		stop()
	}()

	progress.Simulate(simCtx, agg, s.deps.Stages)
	res := <-done

	if res.err != nil {
		return fail(res.err)
	}

	locator := speaker.NewLocator(res.turns)
	log.Info("speaker diarization complete", "turns", locator.Len(), "speakers", len(locator.Speakers()))
	agg.DiarizationDone(len(locator.Speakers()))
	return locator
}

func (s *Session) translate(ctx context.Context, log *slog.Logger, result *transcript.Result, target string) *transcript.Translations {
	if !s.deps.Translator.Available() {
		log.Warn("translation requested but no translator is configured", "target", target)
		return nil
	}
	if result.Language == target {
		log.Info("transcript already in target language", "target", target)
		return nil
	}

	s.deps.Progress.Begin(progress.Translating, "Translating to "+target)
	return s.deps.Translator.TranslateSegments(ctx, result, target, s.deps.Progress.Translation)
}
