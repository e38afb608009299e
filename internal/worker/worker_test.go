package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrMcEpic/whisper-transcription/internal/diarize"
	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/speaker"
	"github.com/MrMcEpic/whisper-transcription/internal/transcribe"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
	"github.com/MrMcEpic/whisper-transcription/internal/translate"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	loaded   []string
	opts     transcribe.Options
	result   *transcript.Result
	loadErr  error
	transErr error
}

func (f *fakeTranscriber) Load(ctx context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, model)
	return f.loadErr
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string, opts transcribe.Options, sink progress.Sink) (*transcript.Result, error) {
	f.mu.Lock()
	f.opts = opts
	f.mu.Unlock()
	if f.transErr != nil {
		return nil, f.transErr
	}
	for _, pct := range []int{0, 50, 100} {
		sink(pct)
	}
	return f.result, nil
}

type fakeDiarizer struct {
	turns []speaker.Turn
	err   error
	path  string
}

func (f *fakeDiarizer) Diarize(ctx context.Context, audioPath string) ([]speaker.Turn, error) {
	f.path = audioPath
	return f.turns, f.err
}

type upperBackend struct{}

func (upperBackend) Translate(ctx context.Context, text, target string) (string, error) {
	return strings.ToUpper(text), nil
}

func sampleResult() *transcript.Result {
	return &transcript.Result{
		Text:     " Hello there General Kenobi",
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: " Hello there", Words: []transcript.Word{
				{Start: 0, End: 1, Text: " Hello"},
				{Start: 1, End: 2, Text: " there"},
			}},
			{Start: 2.5, End: 4, Text: " General Kenobi"},
		},
	}
}

func sampleTurns() []speaker.Turn {
	return []speaker.Turn{
		{Start: 0, End: 2.2, Speaker: "SPEAKER_00"},
		{Start: 2.4, End: 4.5, Speaker: "SPEAKER_01"},
	}
}

func fastStages() []progress.Stage {
	return []progress.Stage{
		{Name: "segmentation", Weight: 10, Duration: time.Millisecond},
		{Name: "finalizing", Weight: 48, Duration: time.Millisecond},
	}
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunMissingInput(t *testing.T) {
	s := New(Deps{Transcriber: &fakeTranscriber{result: sampleResult()}})
	_, err := s.Run(context.Background(), Options{InputPath: filepath.Join(t.TempDir(), "nope.wav")})
	if !errors.Is(err, ErrInput) {
		t.Errorf("Run() error = %v, want ErrInput", err)
	}
}

func TestRunWithDiarization(t *testing.T) {
	input := writeInput(t, "talk.mp4")
	dir := filepath.Dir(input)

	var converted string
	convert := func(ctx context.Context, in, out string) error {
		converted = out
		return os.WriteFile(out, []byte("wav"), 0644)
	}

	tr := &fakeTranscriber{result: sampleResult()}
	dz := &fakeDiarizer{turns: sampleTurns()}
	agg := progress.New(0)

	s := New(Deps{
		Transcriber:  tr,
		Diarizer:     dz,
		Progress:     agg,
		Stages:       fastStages(),
		ConvertAudio: convert,
	})

	opts := Options{
		InputPath:      input,
		OutputPath:     filepath.Join(dir, "talk.txt"),
		Model:          "tiny",
		Mode:           transcript.ModeTimestamped,
		WordTimestamps: true,
		Diarize:        true,
		Exports: Exports{
			SRT:  filepath.Join(dir, "talk.srt"),
			VTT:  filepath.Join(dir, "talk.vtt"),
			JSON: filepath.Join(dir, "talk.json"),
		},
	}

	report, err := s.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "[0:00:00 - 0:00:02] [SPEAKER_00] Hello there\n" +
		"[0:00:02 - 0:00:04] [SPEAKER_01] General Kenobi"
	if report.Text != want {
		t.Errorf("Text = %q, want %q", report.Text, want)
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if len(report.Speakers) != 2 {
		t.Errorf("Speakers = %v, want 2 labels", report.Speakers)
	}
	if len(report.Written) != 4 {
		t.Errorf("Written = %v, want 4 files", report.Written)
	}

	if dz.path != converted || converted == "" {
		t.Errorf("diarizer got %q, want converted file %q", dz.path, converted)
	}
	if _, err := os.Stat(converted); !os.IsNotExist(err) {
		t.Errorf("temp file %s not cleaned up", converted)
	}

	saved, err := os.ReadFile(opts.OutputPath)
	if err != nil || string(saved) != want {
		t.Errorf("saved transcript = %q, %v", saved, err)
	}

	srt, err := os.ReadFile(opts.Exports.SRT)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(srt), "1\n00:00:00,000 --> 00:00:02,000\n[SPEAKER_00] Hello there\n\n") {
		t.Errorf("SRT = %q", srt)
	}

	vtt, _ := os.ReadFile(opts.Exports.VTT)
	if !strings.HasPrefix(string(vtt), "WEBVTT\n\n") {
		t.Errorf("VTT = %q", vtt)
	}

	var archived transcript.Result
	data, _ := os.ReadFile(opts.Exports.JSON)
	if err := json.Unmarshal(data, &archived); err != nil || len(archived.Segments) != 2 {
		t.Errorf("JSON archive = %s, %v", data, err)
	}

	if st := agg.State(); st.Phase != progress.Done || st.Overall != 100 {
		t.Errorf("final progress = %+v", st)
	}
	if tr.opts.Task != transcribe.TaskTranscribe || !tr.opts.WordTimestamps {
		t.Errorf("transcribe options = %+v", tr.opts)
	}
}

func TestRunDiarizationFailure(t *testing.T) {
	input := writeInput(t, "talk.wav")
	s := New(Deps{
		Transcriber: &fakeTranscriber{result: sampleResult()},
		Diarizer:    &fakeDiarizer{err: errors.New("model crashed")},
		Stages:      fastStages(),
	})

	report, err := s.Run(context.Background(), Options{
		InputPath: input,
		Mode:      transcript.ModeTimestamped,
		Diarize:   true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Contains(report.Text, "SPEAKER") {
		t.Errorf("Text = %q, want no speaker labels", report.Text)
	}
	if len(report.Speakers) != 0 {
		t.Errorf("Speakers = %v, want none", report.Speakers)
	}
}

func TestRunDiarizationUnavailable(t *testing.T) {
	input := writeInput(t, "talk.wav")
	agg := progress.New(0)
	s := New(Deps{
		Transcriber: &fakeTranscriber{result: sampleResult()},
		Diarizer:    diarize.Unavailable{},
		Progress:    agg,
		Stages:      fastStages(),
	})

	if _, err := s.Run(context.Background(), Options{InputPath: input, Diarize: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if agg.Diarized() {
		t.Error("Diarized() = true with unavailable diarizer")
	}
}

func TestRunConversionFailureCleansUp(t *testing.T) {
	input := writeInput(t, "talk.mkv")
	var tmp string
	convert := func(ctx context.Context, in, out string) error {
		tmp = out
		os.WriteFile(out, []byte("partial"), 0644)
		return errors.New("ffmpeg exploded")
	}
	dz := &fakeDiarizer{turns: sampleTurns()}
	s := New(Deps{
		Transcriber:  &fakeTranscriber{result: sampleResult()},
		Diarizer:     dz,
		Stages:       fastStages(),
		ConvertAudio: convert,
	})

	report, err := s.Run(context.Background(), Options{InputPath: input, Diarize: true, Mode: transcript.ModeTimestamped})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if dz.path != "" {
		t.Error("diarizer should not run when conversion fails")
	}
	if len(report.Speakers) != 0 {
		t.Errorf("Speakers = %v, want none", report.Speakers)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Errorf("temp file %s not cleaned up", tmp)
	}
}

func TestRunTranscriptionFailure(t *testing.T) {
	input := writeInput(t, "talk.wav")
	agg := progress.New(0)
	modelErr := &transcribe.ModelError{Op: "transcribe", Model: "tiny", Err: errors.New("CUDA out of memory")}
	s := New(Deps{
		Transcriber: &fakeTranscriber{transErr: modelErr},
		Progress:    agg,
	})

	_, err := s.Run(context.Background(), Options{InputPath: input, Model: "tiny"})
	var me *transcribe.ModelError
	if !errors.As(err, &me) {
		t.Fatalf("Run() error = %v, want *transcribe.ModelError", err)
	}
	if st := agg.State(); st.Phase != progress.Failed {
		t.Errorf("phase = %v, want failed", st.Phase)
	}
}

func TestRunLoadFailure(t *testing.T) {
	input := writeInput(t, "talk.wav")
	s := New(Deps{Transcriber: &fakeTranscriber{loadErr: errors.New("no python")}})
	if _, err := s.Run(context.Background(), Options{InputPath: input}); err == nil {
		t.Error("Run() error = nil, want load failure")
	}
}

func TestRunWhisperTranslateTask(t *testing.T) {
	input := writeInput(t, "talk.wav")
	tr := &fakeTranscriber{result: sampleResult()}
	s := New(Deps{Transcriber: tr})

	if _, err := s.Run(context.Background(), Options{InputPath: input, Translate: true, TargetLanguage: "en"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tr.opts.Task != transcribe.TaskTranslate {
		t.Errorf("Task = %q, want translate", tr.opts.Task)
	}
}

func TestRunTranslatedTranscript(t *testing.T) {
	input := writeInput(t, "talk.wav")
	s := New(Deps{
		Transcriber: &fakeTranscriber{result: sampleResult()},
		Translator:  translate.NewService(upperBackend{}, translate.Options{MaxConcurrent: 2}),
	})

	tests := []struct {
		mode transcript.Mode
		want string
	}{
		{transcript.ModeTimestamped, "[0:00:00 - 0:00:02] HELLO THERE\n[0:00:02 - 0:00:04] GENERAL KENOBI"},
		{transcript.ModePlain, "HELLO THERE GENERAL KENOBI"},
	}
	for _, tt := range tests {
		report, err := s.Run(context.Background(), Options{
			InputPath:      input,
			Mode:           tt.mode,
			Translate:      true,
			TargetLanguage: "de",
		})
		if err != nil {
			t.Fatalf("Run(%s) error = %v", tt.mode, err)
		}
		if report.Text != tt.want {
			t.Errorf("Run(%s) Text = %q, want %q", tt.mode, report.Text, tt.want)
		}
	}
}

func TestTranslatedExports(t *testing.T) {
	input := writeInput(t, "talk.wav")
	dir := filepath.Dir(input)

	s := New(Deps{
		Transcriber: &fakeTranscriber{result: sampleResult()},
		Translator:  translate.NewService(upperBackend{}, translate.Options{}),
	})
	opts := Options{
		InputPath:        input,
		SubtitleLanguage: "es",
		Exports: Exports{
			SRTTranslated: filepath.Join(dir, "talk.es.srt"),
			VTTTranslated: filepath.Join(dir, "talk.es.vtt"),
		},
	}
	if _, err := s.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	srt, _ := os.ReadFile(opts.Exports.SRTTranslated)
	if !strings.Contains(string(srt), "HELLO THERE") {
		t.Errorf("translated SRT = %q", srt)
	}
	vtt, _ := os.ReadFile(opts.Exports.VTTTranslated)
	if !strings.Contains(string(vtt), "00:00:02.500 --> 00:00:04.000\nGENERAL KENOBI") {
		t.Errorf("translated VTT = %q", vtt)
	}
}

func TestTranslatedExportsSkippedWithoutTranslator(t *testing.T) {
	input := writeInput(t, "talk.wav")
	out := filepath.Join(filepath.Dir(input), "talk.es.srt")

	s := New(Deps{Transcriber: &fakeTranscriber{result: sampleResult()}})
	report, err := s.Run(context.Background(), Options{
		InputPath: input,
		Exports:   Exports{SRTTranslated: out},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Written) != 0 {
		t.Errorf("Written = %v, want nothing", report.Written)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("translated SRT written without a translator")
	}
}

func TestExportFailure(t *testing.T) {
	input := writeInput(t, "talk.wav")
	s := New(Deps{Transcriber: &fakeTranscriber{result: sampleResult()}})
	_, err := s.Run(context.Background(), Options{
		InputPath: input,
		Exports:   Exports{SRT: filepath.Join(t.TempDir(), "missing", "dir", "x.srt")},
	})
	if err == nil || !strings.Contains(err.Error(), "export srt") {
		t.Errorf("Run() error = %v, want export srt failure", err)
	}
}

func TestExportsFlags(t *testing.T) {
	if (Exports{}).Any() {
		t.Error("empty Exports.Any() = true")
	}
	if !(Exports{JSON: "x.json"}).Any() {
		t.Error("Exports{JSON}.Any() = false")
	}
	if (Exports{Docx: "x.docx"}).Subtitles() {
		t.Error("docx export counted as subtitles")
	}
	if !(Exports{VTTTranslated: "x.vtt"}).Subtitles() {
		t.Error("translated VTT not counted as subtitles")
	}
}

func TestTempFilesCleanup(t *testing.T) {
	dir := t.TempDir()
	var tf TempFiles
	for _, name := range []string{"a.wav", "b.wav"} {
		p := filepath.Join(dir, name)
		os.WriteFile(p, nil, 0644)
		tf.Add(p)
	}
	tf.Add(filepath.Join(dir, "never-created.wav"))

	tf.Cleanup()
	tf.Cleanup()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files left after cleanup: %v", entries)
	}
}

func TestConvertWithoutFFmpeg(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	err := convertWithFFmpeg(context.Background(), "in.mp4", filepath.Join(t.TempDir(), "out.wav"))
	if !errors.Is(err, diarize.ErrUnavailable) {
		t.Errorf("convertWithFFmpeg() error = %v, want ErrUnavailable", err)
	}
}

func TestRunWithoutFFmpegSkipsDiarization(t *testing.T) {
	input := writeInput(t, "talk.mp4")
	t.Setenv("PATH", t.TempDir())

	dz := &fakeDiarizer{turns: sampleTurns()}
	agg := progress.New(0)
	s := New(Deps{
		Transcriber: &fakeTranscriber{result: sampleResult()},
		Diarizer:    dz,
		Progress:    agg,
		Stages:      fastStages(),
	})

	report, err := s.Run(context.Background(), Options{InputPath: input, Diarize: true, Mode: transcript.ModeTimestamped})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if dz.path != "" {
		t.Error("diarizer ran without a converted file")
	}
	if len(report.Speakers) != 0 || agg.Diarized() {
		t.Errorf("Speakers = %v, Diarized = %v, want none", report.Speakers, agg.Diarized())
	}
}
