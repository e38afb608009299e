package translate

import (
	"strings"

	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

// MappedWord is a translated token placed on the original timeline.
type MappedWord struct {
	Start    float64
	End      float64
	Text     string
	Original string
}

// DistributeWordTimings spreads the tokens of translated over the time span
// of original. Equal token counts map one to one; otherwise the span is cut
// into equal slices, the last ending no later than the original span.
func DistributeWordTimings(original []transcript.Word, translated string) []MappedWord {
	tokens := strings.Fields(translated)
	if len(tokens) == 0 || len(original) == 0 {
		return nil
	}

	mapped := make([]MappedWord, len(tokens))
	if len(tokens) == len(original) {
		for i, tok := range tokens {
			mapped[i] = MappedWord{
				Start:    original[i].Start,
				End:      original[i].End,
				Text:     tok,
				Original: strings.TrimSpace(original[i].Text),
			}
		}
		return mapped
	}

	spanStart := original[0].Start
	spanEnd := original[len(original)-1].End
	slice := (spanEnd - spanStart) / float64(len(tokens))

	for i, tok := range tokens {
		start := spanStart + float64(i)*slice
		end := spanStart + float64(i+1)*slice
		if end > spanEnd {
			end = spanEnd
		}
		mapped[i] = MappedWord{Start: start, End: end, Text: tok}
	}
	return mapped
}
