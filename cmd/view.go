package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/MrMcEpic/whisper-transcription/internal/progress"
)

const viewTick = 100 * time.Millisecond

// progressView draws progress events on stderr: a redrawn status line on a
// terminal, one log record per phase otherwise.
type progressView struct {
	out    io.Writer
	tty    bool
	silent bool

	last    progress.Event
	drawn   bool
	started bool
}

func newProgressView(silent bool) *progressView {
	return &progressView{
		out:    os.Stderr,
		tty:    term.IsTerminal(int(os.Stderr.Fd())),
		silent: silent,
	}
}

// Loop drains events every tick until the channel is closed.
func (v *progressView) Loop(events <-chan progress.Event) {
	ticker := time.NewTicker(viewTick)
	defer ticker.Stop()

	for range ticker.C {
		if closed := v.drain(events); closed {
			v.finish()
			return
		}
		v.draw()
	}
}

func (v *progressView) drain(events <-chan progress.Event) bool {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return true
			}
			v.apply(ev)
		default:
			return false
		}
	}
}

func (v *progressView) apply(ev progress.Event) {
	if !v.started || ev.Phase != v.last.Phase {
		v.phaseChanged(ev)
	}
	v.started = true
	v.last = ev
}

func (v *progressView) phaseChanged(ev progress.Event) {
	if v.silent {
		return
	}
	if v.tty {
		if v.drawn {
			fmt.Fprintln(v.out)
			v.drawn = false
		}
		return
	}
	if ev.Phase != progress.Idle {
		slog.Info(ev.Phase.String(), "status", ev.Status, "overall", ev.Overall)
	}
}

func (v *progressView) draw() {
	if v.silent || !v.tty || !v.started || v.last.Phase == progress.Idle {
		return
	}
	fmt.Fprintf(v.out, "\r\033[K%s", formatEvent(v.last))
	v.drawn = true
}

func (v *progressView) finish() {
	if v.silent {
		return
	}
	if v.tty {
		v.draw()
		if v.drawn {
			fmt.Fprintln(v.out)
		}
		return
	}
	if v.last.Phase.Terminal() {
		slog.Info(v.last.Phase.String(), "status", v.last.Status)
	}
}

func formatEvent(ev progress.Event) string {
	return fmt.Sprintf("%-13s %s %3d%%  overall %s %3d%%  %s",
		ev.Phase, bar(ev.Current, 20), ev.Current, bar(ev.Overall, 20), ev.Overall, ev.Status)
}

func bar(pct, width int) string {
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
