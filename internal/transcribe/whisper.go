package transcribe

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrMcEpic/whisper-transcription/internal/progress"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

//go:embed assets/whisper_runner.py
var runnerScript []byte

// Whisper runs openai-whisper through an embedded python helper.
type Whisper struct {
	python string

	mu    sync.Mutex
	model string
}

// NewWhisper uses $WHISPER_PY, or python3, as the interpreter.
func NewWhisper() *Whisper {
	py := os.Getenv("WHISPER_PY")
	if py == "" {
		py = "python3"
	}
	return &Whisper{python: py}
}

func (w *Whisper) Load(ctx context.Context, model string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == model {
		return nil
	}

	if _, err := exec.LookPath(w.python); err != nil {
		return &ModelError{Op: "load", Model: model, Err: err}
	}

	script, cleanup, err := writeScript()
	if err != nil {
		return &ModelError{Op: "load", Model: model, Err: err}
	}
	defer cleanup()

	cmd := exec.CommandContext(ctx, w.python, script, "--check", "--model", model)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ModelError{Op: "load", Model: model, Err: commandError(err, stderr.String())}
	}

	w.model = model
	return nil
}

func (w *Whisper) Transcribe(ctx context.Context, path string, opts Options, sink progress.Sink) (*transcript.Result, error) {
	w.mu.Lock()
	model := w.model
	w.mu.Unlock()
	if model == "" {
		return nil, &ModelError{Op: "transcribe", Err: errors.New("model not loaded")}
	}

	script, cleanup, err := writeScript()
	if err != nil {
		return nil, &ModelError{Op: "transcribe", Model: model, Err: err}
	}
	defer cleanup()

	task := opts.Task
	if task == "" {
		task = TaskTranscribe
	}
	args := []string{script, "--audio", path, "--model", model, "--task", task}
	if opts.Language != "" && opts.Language != "auto" {
		args = append(args, "--language", opts.Language)
	}
	if opts.WordTimestamps {
		args = append(args, "--word-timestamps")
	}

	cmd := exec.CommandContext(ctx, w.python, args...)
	cmd.Env = os.Environ()
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &ModelError{Op: "transcribe", Model: model, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &ModelError{Op: "transcribe", Model: model, Err: err}
	}
	tail := ScanProgress(stderr, sink)
	if err := cmd.Wait(); err != nil {
		return nil, &ModelError{Op: "transcribe", Model: model, Err: commandError(err, tail)}
	}

	result, err := DecodeResult(stdout.Bytes())
	if err != nil {
		return nil, &ModelError{Op: "transcribe", Model: model, Err: err}
	}
	return result, nil
}

func writeScript() (string, func(), error) {
	path := filepath.Join(os.TempDir(), "whisper_runner_"+uuid.NewString()+".py")
	if err := os.WriteFile(path, runnerScript, 0o755); err != nil {
		return "", nil, fmt.Errorf("write helper script: %w", err)
	}
	return path, func() { os.Remove(path) }, nil
}

func commandError(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}

var percentRe = regexp.MustCompile(`(\d+)%`)

// ParsePercent extracts the percentage from a tqdm progress bar line.
func ParsePercent(line string) (int, bool) {
	if !strings.Contains(line, "|") || !strings.Contains(line, "%") {
		return 0, false
	}
	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.Atoi(m[1])
	if err != nil || pct > 100 {
		return 0, false
	}
	return pct, true
}

const (
	stderrTailLines = 20
	maxStderrLine   = 1 << 20
)

// ScanProgress reads r until EOF, feeding progress bar percentages to sink.
// It returns the last non-progress lines for error reporting. A line longer
// than maxStderrLine stops parsing, but r is still read to EOF so the writer
// never blocks.
func ScanProgress(r io.Reader, sink progress.Sink) string {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxStderrLine)
	sc.Split(scanLinesOrCR)

	var tail []string
	for sc.Scan() {
		line := sc.Text()
		if pct, ok := ParsePercent(line); ok {
			if sink != nil {
				sink(pct)
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
	}
	if err := sc.Err(); err != nil {
		tail = append(tail, "stderr scan stopped: "+err.Error())
		io.Copy(io.Discard, r)
	}
	return strings.Join(tail, "\n")
}

// scanLinesOrCR splits on \n or \r so tqdm redraws arrive as separate lines.
func scanLinesOrCR(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type whisperOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Word  string  `json:"word"`
		} `json:"words"`
	} `json:"segments"`
}

// DecodeResult parses the helper's JSON output.
func DecodeResult(data []byte) (*transcript.Result, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse helper output: %w", err)
	}

	result := &transcript.Result{
		Text:     out.Text,
		Language: out.Language,
		Segments: make([]transcript.Segment, 0, len(out.Segments)),
	}
	for _, s := range out.Segments {
		seg := transcript.Segment{Start: s.Start, End: s.End, Text: s.Text}
		for _, w := range s.Words {
			seg.Words = append(seg.Words, transcript.Word{Start: w.Start, End: w.End, Text: w.Word})
		}
		result.Segments = append(result.Segments, seg)
	}
	return result, nil
}
