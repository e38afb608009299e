// Package transcript merges transcription segments, speaker attribution and
// translated text into display lines.
package transcript

import (
	"fmt"
	"strings"

	"github.com/MrMcEpic/whisper-transcription/internal/speaker"
	"github.com/MrMcEpic/whisper-transcription/internal/timestamp"
)

// Mode selects the transcript layout.
type Mode string

const (
	ModePlain       Mode = "plain"
	ModeTimestamped Mode = "timestamped"
	ModeClean       Mode = "clean"
	ModeWords       Mode = "words"
)

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePlain, ModeTimestamped, ModeClean, ModeWords:
		return m, nil
	}
	return "", fmt.Errorf("unknown transcript format %q (want plain, timestamped, clean or words)", s)
}

// Options controls Render.
type Options struct {
	Mode           Mode
	IncludeSpeaker bool
	IncludeWords   bool
}

// LineKind tells what a rendered line represents.
type LineKind int

const (
	KindText LineKind = iota
	KindSegment
	KindWord
	KindFullSegment
)

// Line is one rendered transcript line.
type Line struct {
	Kind    LineKind
	Start   float64
	End     float64
	Speaker string
	Text    string
}

func (l Line) String() string {
	prefix := ""
	if l.Speaker != "" {
		prefix = "[" + l.Speaker + "] "
	}

	switch l.Kind {
	case KindSegment:
		return fmt.Sprintf("[%s - %s] %s%s", timestamp.Human(l.Start), timestamp.Human(l.End), prefix, l.Text)
	case KindWord:
		return fmt.Sprintf("  %s-%s: %s%s", timestamp.Human(l.Start), timestamp.Human(l.End), prefix, l.Text)
	case KindFullSegment:
		return "Full segment: " + prefix + l.Text
	default:
		return l.Text
	}
}

// Join renders lines as newline-separated text.
func Join(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	return strings.Join(parts, "\n")
}

// Render builds the display lines for result. locator and translations may
// be nil.
func Render(result *Result, locator *speaker.Locator, translations *Translations, opts Options) []Line {
	if result == nil {
		return nil
	}

	speakerAt := func(ts float64) string {
		if !opts.IncludeSpeaker {
			return ""
		}
		label, _ := locator.SpeakerAt(ts)
		return label
	}

	switch opts.Mode {
	case ModeTimestamped, ModeClean, ModeWords:
	default:
		text := result.Text
		if translations != nil && translations.FullText != "" && translations.Target != result.Language {
			text = translations.FullText
		}
		return []Line{{Kind: KindText, Text: text}}
	}

	lines := make([]Line, 0, len(result.Segments))
	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if translated, ok := translations.Lookup(seg); ok {
			text = translated
		}
		if opts.Mode == ModeClean {
			text = NormalizeSpace(text)
		}
		label := speakerAt(seg.Start)

		if opts.Mode == ModeWords && opts.IncludeWords && len(seg.Words) > 0 {
			words := seg.Words
			if tw, ok := translations.LookupWords(seg); ok {
				words = tw
			}
			for _, w := range words {
				lines = append(lines, Line{
					Kind:    KindWord,
					Start:   w.Start,
					End:     w.End,
					Speaker: speakerAt(w.Start),
					Text:    strings.TrimSpace(w.Text),
				})
			}
			lines = append(lines, Line{Kind: KindFullSegment, Start: seg.Start, End: seg.End, Speaker: label, Text: text})
			continue
		}

		lines = append(lines, Line{Kind: KindSegment, Start: seg.Start, End: seg.End, Speaker: label, Text: text})
	}
	return lines
}

// NormalizeSpace trims text and collapses internal whitespace runs to a
// single space.
func NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
