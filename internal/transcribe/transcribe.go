// Package transcribe runs a speech-to-text model and returns its result in
// transcript form.
package transcribe

import (
	"context"
	"fmt"

	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)

// Options controls a single transcription.
type Options struct {
	Language       string
	Task           string
	WordTimestamps bool
}

// Transcriber is a loaded speech model.
type Transcriber interface {
	// Load prepares model. Loading the same model again is a no-op.
	Load(ctx context.Context, model string) error
	Transcribe(ctx context.Context, path string, opts Options, sink progress.Sink) (*transcript.Result, error)
}

// ModelError wraps a failure reported by the external model.
type ModelError struct {
	Op    string
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("whisper %s (model %s): %v", e.Op, e.Model, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}
