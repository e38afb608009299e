// Package document exports a rendered transcript as a Word document.
package document

import (
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/MrMcEpic/whisper-transcription/internal/timestamp"
	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 12
	titleSize = 16
	wordSize  = 10
	textColor = "000000"
	metaColor = "555555"
)

type block struct {
	meta string
	text string
	size uint64
}

// blocks groups lines into paragraphs: a grey metadata run (time span and
// speaker) followed by the text.
func blocks(lines []transcript.Line) []block {
	out := make([]block, 0, len(lines))
	for _, l := range lines {
		b := block{text: l.Text, size: fontSize}

		var meta []string
		switch l.Kind {
		case transcript.KindSegment:
			meta = append(meta, fmt.Sprintf("[%s - %s]", timestamp.Human(l.Start), timestamp.Human(l.End)))
		case transcript.KindWord:
			meta = append(meta, fmt.Sprintf("%s-%s", timestamp.Human(l.Start), timestamp.Human(l.End)))
			b.size = wordSize
		case transcript.KindFullSegment:
			meta = append(meta, "Full segment:")
		}
		if l.Speaker != "" {
			meta = append(meta, l.Speaker)
		}
		b.meta = strings.Join(meta, " ")

		if b.meta == "" && strings.TrimSpace(b.text) == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

// WriteDocx writes title and lines to a .docx file at path.
func WriteDocx(path, title string, lines []transcript.Line) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	if title != "" {
		addRun(doc.AddParagraph(""), title, titleSize, textColor).Bold(true)
	}

	for _, b := range blocks(lines) {
		p := doc.AddParagraph("")
		if b.meta != "" {
			addRun(p, b.meta+" ", b.size, metaColor).Bold(true)
		}
		if b.text != "" {
			addRun(p, b.text, b.size, textColor)
		}
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func addRun(p *docx.Paragraph, text string, size uint64, color string) *docx.Run {
	return p.AddText(text).Font(fontName).Size(size).Color(color)
}
