package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/knowledgequest/quiz-engine/internal/metrics"
)

var (
	// ErrEmptyInput is returned when there is nothing to build a quiz from.
	ErrEmptyInput = errors.New("please paste some material or a question set to begin")
	// ErrInvalidJSON marks input that looked like a question array but did not parse.
	ErrInvalidJSON = errors.New("JSON format error")

	errNoCompleter     = errors.New("AI generation is not configured")
	errEmptyCompletion = errors.New("no response received from AI")
	errNothingParsed   = errors.New("AI response did not contain any complete question")
)

// Completer is the chat-completion collaborator. An empty string with a
// nil error means the model answered with no content.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// GenerationCache remembers accepted generations (implemented by Cache).
type GenerationCache interface {
	Get(ctx context.Context, key CacheKey) ([]Question, error)
	Set(ctx context.Context, key CacheKey, qs []Question) error
}

type ServiceOptions struct {
	DefaultModel  string
	DefaultCount  int
	MaxInputChars int
	// GenerateTimeout bounds the whole LLM path including the cache.
	GenerateTimeout time.Duration
}

// Service turns raw user input into a usable question set: direct JSON
// first, then LLM generation, then the demo set.
type Service struct {
	llm     Completer
	cache   GenerationCache
	metrics *metrics.Metrics
	opts    ServiceOptions
	logger  zerolog.Logger
}

func NewService(llm Completer, cache GenerationCache, m *metrics.Metrics, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 3
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "GPT-5-mini"
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 2 * time.Minute
	}
	return &Service{
		llm:     llm,
		cache:   cache,
		metrics: m,
		opts:    opts,
		logger:  logger.With().Str("component", "question_service").Logger(),
	}
}

// IsDirectJSON reports whether input already is a valid question set.
func IsDirectJSON(input string) bool {
	_, err := parseDirect(strings.TrimSpace(input))
	return err == nil
}

// Obtain resolves one start-quiz action into questions. It only fails on
// input errors; every other failure degrades to the demo set.
func (s *Service) Obtain(ctx context.Context, req ObtainRequest) (Outcome, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return Outcome{}, ErrEmptyInput
	}
	count := req.Count
	if count <= 0 {
		count = s.opts.DefaultCount
	}
	model := req.Model
	if model == "" {
		model = s.opts.DefaultModel
	}
	out := Outcome{Requested: count}

	direct, err := parseDirect(input)
	if err == nil {
		out.Questions = direct
		out.Source = SourceDirectJSON
		out.Requested = len(direct)
		s.metrics.ObserveGeneration(string(out.Source))
		s.logger.Info().Int("questions", len(direct)).Msg("using direct JSON input")
		return out, nil
	}
	if strings.HasPrefix(input, "[") {
		s.logger.Info().Err(err).Msg("rejected malformed question JSON")
		return Outcome{}, err
	}

	material := input
	if limit := s.opts.MaxInputChars; limit > 0 && utf8.RuneCountInString(material) > limit {
		material = string([]rune(material)[:limit])
		out.Notices = append(out.Notices, fmt.Sprintf("Input was truncated to the first %d characters before generation.", limit))
	}

	qs, raw, genErr := s.generate(ctx, material, count, model)
	if genErr != nil {
		out.Questions = DemoQuestions()
		out.Source = SourceDemo
		out.RawResponse = raw
		out.Warnings = append(out.Warnings, fmt.Sprintf("Failed to generate questions (%v). Using demo questions instead.", genErr))
		s.metrics.ObserveGeneration(string(out.Source))
		s.logger.Warn().Err(genErr).Int("raw_len", len(raw)).Msg("falling back to demo questions")
		return out, nil
	}

	out.Questions = qs
	out.Source = SourceGenerated
	if len(qs) < count {
		out.Warnings = append(out.Warnings, fmt.Sprintf("Only %d of %d requested questions could be generated.", len(qs), count))
	}
	s.metrics.ObserveGeneration(string(out.Source))
	s.logger.Info().Int("questions", len(qs)).Int("requested", count).Str("model", model).Msg("generated question set")
	return out, nil
}

func (s *Service) generate(ctx context.Context, material string, count int, model string) ([]Question, string, error) {
	if s.llm == nil {
		return nil, "", errNoCompleter
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	key := CacheKey{Model: model, Count: count, Material: material}
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil && len(cached) > 0 {
			s.metrics.ObserveLLMCall("cached", 0)
			return cached, "", nil
		} else if err != nil {
			s.logger.Warn().Err(err).Msg("generation cache lookup failed")
		}
	}

	prompt := BuildPrompt(material, count)
	start := time.Now()
	resp, err := s.llm.Complete(ctx, prompt, model)
	took := time.Since(start)
	if err != nil {
		s.metrics.ObserveLLMCall("error", took)
		s.logger.Error().Err(err).Str("model", model).Dur("took", took).Msg("chat completion failed")
		return nil, "", fmt.Errorf("chat completion failed: %w", err)
	}
	if strings.TrimSpace(resp) == "" {
		s.metrics.ObserveLLMCall("empty", took)
		s.logger.Warn().Str("model", model).Dur("took", took).Msg("chat completion returned empty content")
		return nil, "", errEmptyCompletion
	}
	s.metrics.ObserveLLMCall("ok", took)

	candidate, ok := Extract(resp)
	if !ok {
		return nil, resp, ErrNoJSON
	}
	items := ParsePartial(candidate)
	if len(items) == 0 {
		return nil, resp, errNothingParsed
	}
	qs, err := Decode(items)
	if err != nil {
		return nil, resp, fmt.Errorf("generated questions validation failed: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, qs); err != nil {
			s.logger.Warn().Err(err).Msg("generation cache store failed")
		}
	}
	return qs, resp, nil
}

func parseDirect(input string) ([]Question, error) {
	candidate, ok := Extract(input)
	if !ok {
		// Arrays without any object ("[]", "[1]") still decode and get
		// the item-level validation message.
		candidate = input
	}
	items, err := DecodeArray(candidate)
	if err != nil {
		if !ok && !strings.HasPrefix(input, "[") {
			return nil, ErrNoJSON
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return Decode(items)
}
