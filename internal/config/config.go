package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DiarizationConfig controls speaker labelling.
type DiarizationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model" validate:"required"`
	// Token is read from the environment only.
	Token string `yaml:"-"`
}

// TranslationConfig controls the machine translation backend.
type TranslationConfig struct {
	Model           string   `yaml:"model" validate:"required"`
	APIKeys         []string `yaml:"-"`
	TimeoutSec      int      `yaml:"timeout_sec" validate:"gte=1,lte=300"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min" validate:"gte=0"`
	MaxConcurrent   int      `yaml:"max_concurrent" validate:"gte=1,lte=32"`
}

// OutputConfig controls transcript rendering.
type OutputConfig struct {
	Mode           string `yaml:"mode" validate:"oneof=plain timestamped clean words"`
	WordTimestamps bool   `yaml:"word_timestamps"`
}

// WatchConfig controls the folder watcher.
type WatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" validate:"gte=1,lte=16"`
}

// Config holds the full application configuration.
type Config struct {
	Model            string `yaml:"model" validate:"whisper_model"`
	Language         string `yaml:"language" validate:"required,language"`
	TargetLanguage   string `yaml:"target_language" validate:"required,language"`
	SubtitleLanguage string `yaml:"subtitle_language" validate:"required,language"`

	Diarization DiarizationConfig `yaml:"diarization"`
	Translation TranslationConfig `yaml:"translation"`
	Output      OutputConfig      `yaml:"output"`
	Watch       WatchConfig       `yaml:"watch"`
}

// Default returns a Config with hardcoded defaults.
func Default() *Config {
	return &Config{
		Model:            DefaultModel,
		Language:         "auto",
		TargetLanguage:   "en",
		SubtitleLanguage: "es",
		Diarization: DiarizationConfig{
			Enabled: true,
			Model:   "pyannote/speaker-diarization-3.1",
		},
		Translation: TranslationConfig{
			Model:           "gemini-2.0-flash",
			TimeoutSec:      10,
			RateLimitPerMin: 60,
			MaxConcurrent:   4,
		},
		Output: OutputConfig{
			Mode:           "timestamped",
			WordTimestamps: true,
		},
		Watch: WatchConfig{
			MaxConcurrent: 1,
		},
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv fills secrets from the environment.
func (c *Config) ApplyEnv() {
	c.Diarization.Token = firstEnv("TOKEN", "HF_TOKEN")

	c.Translation.APIKeys = nil
	for _, name := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		for _, k := range strings.Split(os.Getenv(name), ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Translation.APIKeys = append(c.Translation.APIKeys, k)
			}
		}
		if len(c.Translation.APIKeys) > 0 {
			return
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("whisper_model", func(fl validator.FieldLevel) bool {
		return IsKnownModel(fl.Field().String())
	})
	v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return IsLanguageCode(fl.Field().String())
	})
	return v
}

// Validate checks field constraints and normalizes language codes.
func (c *Config) Validate() error {
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	c.TargetLanguage = strings.ToLower(strings.TrimSpace(c.TargetLanguage))
	c.SubtitleLanguage = strings.ToLower(strings.TrimSpace(c.SubtitleLanguage))

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
