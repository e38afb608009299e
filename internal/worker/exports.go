package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrMcEpic/whisper-transcription/internal/document"
	"github.com/MrMcEpic/whisper-transcription/internal/speaker"
	"github.com/MrMcEpic/whisper-transcription/internal/subtitle"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

// Exports lists the extra files to write. Empty paths are skipped.
type Exports struct {
	SRT           string
	VTT           string
	SRTTranslated string
	VTTTranslated string
	JSON          string
	Docx          string
}

// Any reports whether at least one export is requested.
func (e Exports) Any() bool {
	return e != Exports{}
}

// Subtitles reports whether a subtitle export is requested.
func (e Exports) Subtitles() bool {
	return e.SRT != "" || e.VTT != "" || e.SRTTranslated != "" || e.VTTTranslated != ""
}

// maxParallelExports bounds concurrent export writers.
const maxParallelExports = 4

type exportJob struct {
	kind  string
	path  string
	write func() error
}

// export writes every requested file concurrently and returns the paths
// written, even when another export failed.
func (s *Session) export(ctx context.Context, log *slog.Logger, opts Options, result *transcript.Result, locator *speaker.Locator, lines []transcript.Line) ([]string, error) {
	var speakers subtitle.SpeakerFunc
	if locator.Len() > 0 {
		speakers = locator.SpeakerAt
	}

	ex := opts.Exports
	var jobs []exportJob
	add := func(kind, path string, write func() error) {
		if path != "" {
			jobs = append(jobs, exportJob{kind: kind, path: path, write: write})
		}
	}

	add("srt", ex.SRT, func() error {
		return subtitle.WriteSRT(ex.SRT, result.Segments, speakers, nil)
	})
	add("vtt", ex.VTT, func() error {
		return subtitle.WriteVTT(ex.VTT, result.Segments, speakers, nil)
	})

	if ex.SRTTranslated != "" || ex.VTTTranslated != "" {
		if !s.deps.Translator.Available() {
			log.Warn("translated subtitles requested but no translator is configured, skipping")
		} else {
			tr := subtitle.TranslateFunc(s.deps.Translator.Func(ctx, opts.SubtitleLanguage))
			add("srt-translated", ex.SRTTranslated, func() error {
				return subtitle.WriteSRT(ex.SRTTranslated, result.Segments, speakers, tr)
			})
			add("vtt-translated", ex.VTTTranslated, func() error {
				return subtitle.WriteVTT(ex.VTTTranslated, result.Segments, speakers, tr)
			})
		}
	}

	add("json", ex.JSON, func() error {
		return saveJSON(ex.JSON, result)
	})
	add("docx", ex.Docx, func() error {
		return document.WriteDocx(ex.Docx, filepath.Base(opts.InputPath), lines)
	})

	if len(jobs) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		written []string
	)

	var g errgroup.Group
	g.SetLimit(maxParallelExports)
	for _, job := range jobs {
		g.Go(func() error {
			if err := job.write(); err != nil {
				return fmt.Errorf("export %s: %w", job.kind, err)
			}
			log.Info("exported", "kind", job.kind, "path", job.path)

			mu.Lock()
			written = append(written, job.path)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return written, err
}

func saveJSON(path string, result *transcript.Result) error {
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
