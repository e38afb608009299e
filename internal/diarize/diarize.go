// Package diarize labels who spoke when by running pyannote.audio through
// an embedded python helper.
package diarize

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/MrMcEpic/whisper-transcription/internal/speaker"
)

const DefaultModel = "pyannote/speaker-diarization-3.1"

// exit status used by the helper when pyannote.audio is not importable
const exitMissingPackage = 3

// ErrUnavailable means diarization cannot run in this environment.
var ErrUnavailable = errors.New("speaker diarization unavailable")

//go:embed assets/pyannote_runner.py
var runnerScript []byte

// Unavailable is the speaker.Source used when diarization is disabled or
// cannot run.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Diarize(ctx context.Context, audioPath string) ([]speaker.Turn, error) {
	if u.Reason == "" {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

// Pyannote runs a pyannote pipeline in a python subprocess.
type Pyannote struct {
	python string
	model  string
	token  string
}

// New returns a Pyannote source, or Unavailable when no python interpreter
// can be found.
func New(model, token string) speaker.Source {
	py := os.Getenv("WHISPER_PY")
	if py == "" {
		py = "python3"
	}
	if _, err := exec.LookPath(py); err != nil {
		return Unavailable{Reason: fmt.Sprintf("python interpreter %q not found", py)}
	}
	if model == "" {
		model = DefaultModel
	}
	return &Pyannote{python: py, model: model, token: token}
}

func (p *Pyannote) Diarize(ctx context.Context, audioPath string) ([]speaker.Turn, error) {
	script := filepath.Join(os.TempDir(), "pyannote_runner_"+uuid.NewString()+".py")
	if err := os.WriteFile(script, runnerScript, 0o755); err != nil {
		return nil, fmt.Errorf("write helper script: %w", err)
	}
	defer os.Remove(script)

	cmd := exec.CommandContext(ctx, p.python, script, "--audio", audioPath, "--model", p.model)
	cmd.Env = os.Environ()
	if p.token != "" {
		cmd.Env = append(cmd.Env, "TOKEN="+p.token)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		var ee *exec.ExitError
		if errors.As(err, &ee) && ee.ExitCode() == exitMissingPackage {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		if msg != "" {
			return nil, fmt.Errorf("pyannote failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("pyannote failed: %w", err)
	}
	return DecodeTurns(out)
}

// DecodeTurns parses the helper's JSON array of speaker turns.
func DecodeTurns(data []byte) ([]speaker.Turn, error) {
	var turns []speaker.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parse helper output: %w", err)
	}
	return turns, nil
}
