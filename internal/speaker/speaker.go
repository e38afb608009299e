// Package speaker resolves which diarized speaker is active at a point in
// time.
package speaker

import (
	"context"
	"math"
	"sort"
)

// MatchThreshold is the largest gap, in seconds, between a timestamp and the
// nearest turn edge that still attributes the turn's speaker.
const MatchThreshold = 0.8

// Turn is one labeled interval of a diarization result.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Source produces speaker turns for an audio file.
type Source interface {
	Diarize(ctx context.Context, audioPath string) ([]Turn, error)
}

// Locator answers speaker queries against one diarization result. The zero
// value and a nil *Locator resolve nothing.
//
// Overlapping turns are resolved deterministically: earliest start first,
// then the shorter turn, then the lexically smaller label.
type Locator struct {
	turns []Turn
}

// NewLocator copies and orders turns for lookup.
func NewLocator(turns []Turn) *Locator {
	ordered := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if math.IsNaN(t.Start) || math.IsNaN(t.End) {
			continue
		}
		ordered = append(ordered, t)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if da, db := a.End-a.Start, b.End-b.Start; da != db {
			return da < db
		}
		return a.Speaker < b.Speaker
	})
	return &Locator{turns: ordered}
}

// Len returns the number of usable turns.
func (l *Locator) Len() int {
	if l == nil {
		return 0
	}
	return len(l.turns)
}

// Speakers returns the distinct labels in order of first appearance.
func (l *Locator) Speakers() []string {
	if l == nil {
		return nil
	}
	seen := make(map[string]bool)
	var labels []string
	for _, t := range l.turns {
		if !seen[t.Speaker] {
			seen[t.Speaker] = true
			labels = append(labels, t.Speaker)
		}
	}
	return labels
}

// SpeakerAt returns the speaker active at ts. A turn containing ts (both
// edges inclusive) wins; otherwise the turn with the nearest edge is used if
// it lies within MatchThreshold.
func (l *Locator) SpeakerAt(ts float64) (string, bool) {
	if l == nil || len(l.turns) == 0 {
		return "", false
	}

	for _, t := range l.turns {
		if t.Start <= ts && ts <= t.End {
			return t.Speaker, true
		}
	}

	best := -1
	minDistance := math.Inf(1)
	for i, t := range l.turns {
		var distance float64
		if ts < t.Start {
			distance = t.Start - ts
		} else {
			distance = ts - t.End
		}
		if distance < minDistance {
			minDistance = distance
			best = i
		}
	}

	if best < 0 || minDistance > MatchThreshold {
		return "", false
	}
	return l.turns[best].Speaker, true
}

// Resolve is a one-shot lookup for callers that hold a raw turn slice.
func Resolve(ts float64, turns []Turn) (string, bool) {
	return NewLocator(turns).SpeakerAt(ts)
}
