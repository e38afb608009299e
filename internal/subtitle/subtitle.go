// Package subtitle writes transcription segments as SRT and WebVTT files.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MrMcEpic/whisper-transcription/internal/timestamp"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

// vttHeader opens every WebVTT file.
const vttHeader = "WEBVTT"

// SpeakerFunc returns the speaker active at a timestamp.
type SpeakerFunc func(ts float64) (string, bool)

// TranslateFunc replaces cue text. Implementations must not fail; on error
// they return their input.
type TranslateFunc func(text string) string

// Format names a subtitle wire format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// Write dispatches to WriteSRT or WriteVTT.
func Write(format Format, path string, segments []transcript.Segment, speakers SpeakerFunc, translate TranslateFunc) error {
	switch format {
	case FormatSRT:
		return WriteSRT(path, segments, speakers, translate)
	case FormatVTT:
		return WriteVTT(path, segments, speakers, translate)
	}
	return fmt.Errorf("unsupported subtitle format %q", format)
}

// WriteSRT overwrites path with an SRT rendering of segments.
func WriteSRT(path string, segments []transcript.Segment, speakers SpeakerFunc, translate TranslateFunc) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeSRT(w, segments, speakers, translate)
	})
}

// WriteVTT overwrites path with a WebVTT rendering of segments.
func WriteVTT(path string, segments []transcript.Segment, speakers SpeakerFunc, translate TranslateFunc) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeVTT(w, segments, speakers, translate)
	})
}

// EncodeSRT writes numbered SRT blocks to w.
func EncodeSRT(w io.Writer, segments []transcript.Segment, speakers SpeakerFunc, translate TranslateFunc) error {
	bw := bufio.NewWriter(w)
	for i, seg := range segments {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			timestamp.SRT(seg.Start),
			timestamp.SRT(seg.End),
			cueText(seg, speakers, translate))
	}
	return bw.Flush()
}

// EncodeVTT writes the WebVTT header followed by one cue per segment.
func EncodeVTT(w io.Writer, segments []transcript.Segment, speakers SpeakerFunc, translate TranslateFunc) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(vttHeader + "\n\n")
	for _, seg := range segments {
		fmt.Fprintf(bw, "%s --> %s\n%s\n\n",
			timestamp.VTT(seg.Start),
			timestamp.VTT(seg.End),
			cueText(seg, speakers, translate))
	}
	return bw.Flush()
}

func cueText(seg transcript.Segment, speakers SpeakerFunc, translate TranslateFunc) string {
	text := strings.TrimSpace(seg.Text)
	if translate != nil {
		text = translate(text)
	}

	if speakers != nil {
		if label, ok := speakers(seg.Start); ok && label != "" {
			return "[" + label + "] " + text
		}
	}
	return text
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create subtitle file: %w", err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("write subtitle file: %w", err)
	}
	return f.Close()
}
