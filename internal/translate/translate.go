// Package translate adapts machine translation backends into a memoizing
// service that never fails its caller.
package translate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/MrMcEpic/whisper-transcription/internal/transcript"
)

// ErrUnavailable is returned by backends that are not configured.
var ErrUnavailable = errors.New("translation backend unavailable")

// Backend performs a single translation request.
type Backend interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// Unavailable is the backend used when no translator is configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Translate(ctx context.Context, text, target string) (string, error) {
	if u.Reason != "" {
		return "", errors.Join(ErrUnavailable, errors.New(u.Reason))
	}
	return "", ErrUnavailable
}

// Options tunes a Service.
type Options struct {
	Timeout         time.Duration
	RateLimitPerMin int
	MaxConcurrent   int
}

type cacheKey struct {
	text   string
	target string
}

// Service memoizes translations for the lifetime of one run.
type Service struct {
	backend       Backend
	timeout       time.Duration
	limiter       *rate.Limiter
	maxConcurrent int

	mu    sync.Mutex
	cache map[cacheKey]string
}

// NewService wraps backend. A nil backend behaves like Unavailable.
func NewService(backend Backend, opts Options) *Service {
	if backend == nil {
		backend = Unavailable{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	limit := rate.Inf
	if opts.RateLimitPerMin > 0 {
		limit = rate.Limit(float64(opts.RateLimitPerMin) / 60.0)
	}

	return &Service{
		backend:       backend,
		timeout:       opts.Timeout,
		limiter:       rate.NewLimiter(limit, 1),
		maxConcurrent: opts.MaxConcurrent,
		cache:         make(map[cacheKey]string),
	}
}

// Available reports whether a real backend is configured.
func (s *Service) Available() bool {
	switch s.backend.(type) {
	case Unavailable, *Unavailable:
		return false
	}
	return true
}

// ClearCache drops every memoized translation.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[cacheKey]string)
	s.mu.Unlock()
}

// CacheLen returns the number of memoized translations.
func (s *Service) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Translate returns text translated into target. Any failure is logged and
// the input is returned unchanged.
func (s *Service) Translate(ctx context.Context, text, target string) string {
	if strings.TrimSpace(text) == "" || target == "" {
		return text
	}

	key := cacheKey{text: text, target: target}
	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached
	}

	if !s.Available() {
		return text
	}

	if err := s.limiter.Wait(ctx); err != nil {
		slog.Warn("translation skipped", "target", target, "err", err)
		return text
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	translated, err := s.backend.Translate(callCtx, text, target)
	if err != nil {
		slog.Warn("translation failed, keeping original text", "target", target, "err", err)
		return text
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		slog.Debug("translation returned empty text", "target", target)
		return text
	}

	s.mu.Lock()
	s.cache[key] = translated
	s.mu.Unlock()
	return translated
}

// Func binds ctx and target into a plain text transformer for subtitle
// export.
func (s *Service) Func(ctx context.Context, target string) func(string) string {
	return func(text string) string {
		return s.Translate(ctx, text, target)
	}
}

// ProgressFunc is called after each translated segment.
type ProgressFunc func(done, total int)

// TranslateSegments translates every segment and the full text of result.
// Each distinct segment text is sent once, with bounded concurrency;
// onProgress is called with strictly increasing segment counts. Segments
// with word timings also get translated words spread over their span.
func (s *Service) TranslateSegments(ctx context.Context, result *transcript.Result, target string, onProgress ProgressFunc) *transcript.Translations {
	out := &transcript.Translations{
		Target:   target,
		Segments: make(map[transcript.SegmentKey]string, len(result.Segments)),
		Words:    make(map[transcript.SegmentKey][]transcript.Word),
	}

	// segments per distinct text, in first-seen order
	var unique []string
	users := make(map[string]int)
	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if users[text] == 0 {
			unique = append(unique, text)
		}
		users[text]++
	}

	translated := make([]string, len(unique))
	total := len(result.Segments)

	var (
		progressMu sync.Mutex
		done       int
	)

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for i, text := range unique {
		g.Go(func() error {
			translated[i] = s.Translate(ctx, text, target)

			progressMu.Lock()
			done += users[text]
			if onProgress != nil {
				onProgress(done, total)
			}
			progressMu.Unlock()
			return nil
		})
	}
	g.Wait()

	byText := make(map[string]string, len(unique))
	for i, text := range unique {
		byText[text] = translated[i]
	}

	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		tr := byText[text]
		out.Segments[seg.Key()] = tr
		if tr == text || len(seg.Words) == 0 {
			continue
		}
		mapped := DistributeWordTimings(seg.Words, tr)
		words := make([]transcript.Word, len(mapped))
		for j, m := range mapped {
			words[j] = transcript.Word{Start: m.Start, End: m.End, Text: m.Text}
		}
		out.Words[seg.Key()] = words
	}
	if result.Text != "" {
		out.FullText = s.Translate(ctx, strings.TrimSpace(result.Text), target)
	}
	return out
}
