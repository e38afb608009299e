package transcript

// Word is a word-level timing emitted by the transcription model.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// Segment is a contiguous span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Key returns the translation lookup key for the segment.
func (s Segment) Key() SegmentKey {
	return SegmentKey{Start: s.Start, End: s.End}
}

// Result is the full output of one transcription run. It is also the shape
// written by the JSON archive export.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// SegmentKey identifies a segment by its time span.
type SegmentKey struct {
	Start float64
	End   float64
}

// Translations holds translated text for one target language.
type Translations struct {
	Target   string
	FullText string
	Segments map[SegmentKey]string
	// Words holds translated tokens placed on each segment's word timings.
	Words map[SegmentKey][]Word
}

// Lookup returns the translated text for seg, if present.
func (t *Translations) Lookup(seg Segment) (string, bool) {
	if t == nil || t.Segments == nil {
		return "", false
	}
	text, ok := t.Segments[seg.Key()]
	return text, ok
}

// LookupWords returns the translated word timings for seg, if present.
func (t *Translations) LookupWords(seg Segment) ([]Word, bool) {
	if t == nil || t.Words == nil {
		return nil, false
	}
	words, ok := t.Words[seg.Key()]
	return words, ok && len(words) > 0
}
