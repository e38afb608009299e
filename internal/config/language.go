package config

import "slices"

const DefaultModel = "large-v3"

// WhisperModels lists the model names the whisper helper accepts.
var WhisperModels = []string{"tiny", "base", "small", "medium", "large", "large-v2", "large-v3", "turbo"}

// CommonLanguages are the transcription languages offered by default.
var CommonLanguages = []string{
	"auto", "en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko",
	"zh", "ar", "hi", "nl", "pl", "tr", "sv", "da", "no", "fi",
}

// TranslationLanguages maps display names to subtitle translation targets.
var TranslationLanguages = map[string]string{
	"Spanish":    "es",
	"French":     "fr",
	"German":     "de",
	"Italian":    "it",
	"Portuguese": "pt",
	"Russian":    "ru",
	"Japanese":   "ja",
	"Korean":     "ko",
	"Chinese":    "zh",
	"Arabic":     "ar",
	"Hindi":      "hi",
	"Dutch":      "nl",
}

// IsKnownModel reports whether name is a whisper model.
func IsKnownModel(name string) bool {
	return slices.Contains(WhisperModels, name)
}

// IsLanguageCode accepts "auto" and any two or three letter lowercase code.
// Whisper knows more languages than CommonLanguages lists.
func IsLanguageCode(code string) bool {
	if code == "auto" {
		return true
	}
	if len(code) < 2 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// LanguageName returns the display name for a translation target, or the
// code itself when unknown.
func LanguageName(code string) string {
	for name, c := range TranslationLanguages {
		if c == code {
			return name
		}
	}
	return code
}
