// Package progress turns the steps of a transcription run into a stream of
// phase and percentage events for a presentation loop.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Phase int

const (
	Idle Phase = iota
	ModelLoading
	Diarizing
	Transcribing
	Translating
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ModelLoading:
		return "loading model"
	case Diarizing:
		return "diarizing"
	case Transcribing:
		return "transcribing"
	case Translating:
		return "translating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Terminal reports whether no further events follow p in a run.
func (p Phase) Terminal() bool {
	return p == Done || p == Failed
}

// Event is a snapshot published to the presentation loop.
type Event struct {
	Phase   Phase
	Current int
	Overall int
	Status  string
}

// Sink receives a percentage in [0, 100] from a long-running model call.
type Sink func(pct int)

// Stage is one simulated step of speaker diarization.
type Stage struct {
	Name     string
	Weight   int
	Duration time.Duration
}

// DiarizedOverall is the overall percentage reached once diarization
// succeeds; transcription fills the remaining half.
const DiarizedOverall = 50

// DefaultStages returns the diarization stages shown while the real model
// runs.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "loading models", Weight: 0, Duration: 500 * time.Millisecond},
		{Name: "segmentation", Weight: 10, Duration: time.Second},
		{Name: "embeddings", Weight: 25, Duration: 2 * time.Second},
		{Name: "clustering", Weight: 40, Duration: time.Second},
		{Name: "finalizing", Weight: 48, Duration: 500 * time.Millisecond},
	}
}

// Aggregator holds the progress state of the current run. Progress ticks
// are dropped when the event buffer is full; phase changes always wait for
// room.
type Aggregator struct {
	mu       sync.Mutex
	state    Event
	diarized bool

	sendMu sync.Mutex
	closed bool
	events chan Event
}

// New returns an Aggregator whose event channel holds up to buffer events.
// With buffer <= 0 no events are published and only State is useful.
func New(buffer int) *Aggregator {
	a := &Aggregator{}
	if buffer > 0 {
		a.events = make(chan Event, buffer)
	}
	return a
}

// Events returns the channel drained by the presentation loop.
func (a *Aggregator) Events() <-chan Event {
	return a.events
}

// State returns the latest snapshot.
func (a *Aggregator) State() Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Diarized reports whether speaker diarization finished in this run.
func (a *Aggregator) Diarized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.diarized
}

// Reset starts a new run at 0/0.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.state = Event{Phase: Idle}
	a.diarized = false
	ev := a.state
	a.mu.Unlock()
	a.publish(ev, true)
}

// Begin enters phase p with the current bar at zero.
func (a *Aggregator) Begin(p Phase, status string) {
	a.update(true, func(s *Event) {
		s.Phase = p
		s.Current = 0
		s.Status = status
	})
}

// Stage reports a simulated diarization stage.
func (a *Aggregator) Stage(st Stage) {
	a.update(false, func(s *Event) {
		s.Current = st.Weight * 2
		s.Overall = st.Weight
		s.Status = "Speaker diarization: " + st.Name
	})
}

// DiarizationDone marks diarization as finished with speakers available.
func (a *Aggregator) DiarizationDone(speakers int) {
	a.mu.Lock()
	a.diarized = true
	a.mu.Unlock()
	a.update(true, func(s *Event) {
		s.Current = 100
		s.Overall = DiarizedOverall
		s.Status = fmt.Sprintf("Speaker diarization complete: %d speakers", speakers)
	})
}

// DiarizationFailed records that transcription continues without speakers.
func (a *Aggregator) DiarizationFailed(err error) {
	a.mu.Lock()
	a.diarized = false
	a.mu.Unlock()
	a.update(true, func(s *Event) {
		s.Status = fmt.Sprintf("Speaker diarization failed: %v", err)
	})
}

// Transcription maps a transcription percentage onto both bars.
func (a *Aggregator) Transcription(pct int) {
	pct = clamp(pct)
	a.mu.Lock()
	diarized := a.diarized
	a.mu.Unlock()

	overall := pct
	if diarized {
		overall = DiarizedOverall + pct/2
	}
	a.update(false, func(s *Event) {
		s.Current = pct
		s.Overall = overall
		s.Status = fmt.Sprintf("Transcribing: %d%%", pct)
	})
}

// TranscriptionSink adapts Transcription to a Sink.
func (a *Aggregator) TranscriptionSink() Sink {
	return a.Transcription
}

// Translation reports segment translation progress on the current bar.
func (a *Aggregator) Translation(done, total int) {
	if total <= 0 {
		return
	}
	a.update(false, func(s *Event) {
		s.Current = done * 100 / total
		s.Status = fmt.Sprintf("Translating segment %d/%d", done, total)
	})
}

// Finish ends the run successfully.
func (a *Aggregator) Finish(status string) {
	a.update(true, func(s *Event) {
		s.Phase = Done
		s.Current = 100
		s.Overall = 100
		s.Status = status
	})
}

// Fail ends the run with err.
func (a *Aggregator) Fail(err error) {
	a.update(true, func(s *Event) {
		s.Phase = Failed
		s.Status = fmt.Sprintf("Error: %v", err)
	})
}

// Close closes the event channel. Later updates only change State.
func (a *Aggregator) Close() {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	if a.events != nil {
		close(a.events)
	}
}

func (a *Aggregator) update(blocking bool, fn func(*Event)) {
	a.mu.Lock()
	prev := a.state.Overall
	fn(&a.state)
	a.state.Current = clamp(a.state.Current)
	a.state.Overall = max(clamp(a.state.Overall), prev)
	ev := a.state
	a.mu.Unlock()

	a.publish(ev, blocking)
}

func (a *Aggregator) publish(ev Event, blocking bool) {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	if a.closed || a.events == nil {
		return
	}
	if blocking {
		a.events <- ev
		return
	}
	select {
	case a.events <- ev:
	default:
	}
}

// Simulate walks through stages, holding each for its duration, until the
// list ends or ctx is cancelled.
func Simulate(ctx context.Context, a *Aggregator, stages []Stage) {
	for _, st := range stages {
		if ctx.Err() != nil {
			return
		}
		a.Stage(st)

		timer := time.NewTimer(st.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func clamp(pct int) int {
	return min(max(pct, 0), 100)
}
