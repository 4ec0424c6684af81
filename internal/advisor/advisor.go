// Package advisor asks a text-generation provider for market benchmarks and
// project suggestions. It is the only place provider credentials are used.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/cache"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/llm"
	"github.com/TobiSchelling/cubo/internal/portfolio"
	"github.com/TobiSchelling/cubo/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Request types accepted by Handle.
const (
	TypeBenchmark   = "benchmark"
	TypeSuggestions = "suggestions"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 45 * time.Second

// ErrNotConfigured is wrapped in the proxy error returned when no provider
// is available.
var ErrNotConfigured = errors.New("no text generation provider configured")

// ClickCounter records proxy usage per session.
type ClickCounter interface {
	IncrementClicks(sessionID, counter string) error
}

// Options tunes provider calls.
type Options struct {
	MaxTokens int
	Timeout   time.Duration
}

// Request is the body of a proxy call. Suggestion requests carry the two
// context fields; a bare Description is accepted for callers that already
// combined them.
type Request struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	History     string `json:"context_history,omitempty"`
	Initiatives string `json:"context_initiatives,omitempty"`
}

// Response carries text for benchmarks or projects for suggestions.
type Response struct {
	Text     string                 `json:"text,omitempty"`
	Projects []portfolio.Suggestion `json:"projects,omitempty"`
}

// Advisor serves benchmark and suggestion requests.
type Advisor struct {
	provider  llm.Provider
	cache     *cache.Cache
	clicks    ClickCounter
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
	group     singleflight.Group
}

// New creates an Advisor. provider may be nil, in which case every request
// fails with a proxy error. clicks may be nil to skip usage counting.
func New(provider llm.Provider, c *cache.Cache, clicks ClickCounter, opts Options, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Advisor{
		provider:  provider,
		cache:     c,
		clicks:    clicks,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		logger:    logger,
	}
}

// Configured reports whether a provider is available.
func (a *Advisor) Configured() bool {
	return a.provider != nil
}

// Handle dispatches a proxy request by type.
func (a *Advisor) Handle(ctx context.Context, h session.Handle, req Request) (*Response, error) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "", TypeBenchmark:
		text, err := a.Benchmark(ctx, h, req.Description)
		if err != nil {
			return nil, err
		}
		return &Response{Text: text}, nil
	case TypeSuggestions:
		var projects []portfolio.Suggestion
		var err error
		if req.History != "" || req.Initiatives != "" || strings.TrimSpace(req.Description) == "" {
			projects, err = a.Suggest(ctx, h, req.History, req.Initiatives)
		} else {
			projects, err = a.suggest(ctx, h, req.Description)
		}
		if err != nil {
			return nil, err
		}
		return &Response{Projects: projects}, nil
	}
	return nil, apperr.Validation("type", "type must be benchmark or suggestions")
}

// Benchmark returns market benchmark text for a project description. Cached
// answers are returned without calling the provider or counting a click.
// Concurrent requests for the same description share one provider call.
func (a *Advisor) Benchmark(ctx context.Context, h session.Handle, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", apperr.Validation("description", "project description is required")
	}
	if text, ok := a.cache.Get(description); ok {
		a.logger.Debug("benchmark cache hit", zap.String("op", "advisor.benchmark"))
		return text, nil
	}
	if a.provider == nil {
		return "", apperr.Proxy("generating benchmark", ErrNotConfigured)
	}

	key := cache.NormalizeKey(description)
	ch := a.group.DoChan(key, func() (any, error) {
		if text, ok := a.cache.Get(description); ok {
			return text, nil
		}
		a.countClick(h, database.CounterBenchmark)

		// The shared call outlives any single waiter's cancellation.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		text, err := a.generate(callCtx, benchmarkPrompt(description))
		if err != nil {
			return nil, err
		}
		a.cache.Put(description, text)
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", apperr.Proxy("generating benchmark", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			a.logger.Warn("benchmark generation failed",
				zap.String("op", "advisor.benchmark"), zap.Error(res.Err))
			return "", apperr.Proxy("generating benchmark", res.Err)
		}
		return res.Val.(string), nil
	}
}

// Suggest proposes strategic projects from the company's history and current
// initiatives. Every suggestion comes back selected.
func (a *Advisor) Suggest(ctx context.Context, h session.Handle, history, initiatives string) ([]portfolio.Suggestion, error) {
	history = strings.TrimSpace(history)
	initiatives = strings.TrimSpace(initiatives)
	if history == "" {
		return nil, apperr.Validation("context_history", "company history is required")
	}
	if initiatives == "" {
		return nil, apperr.Validation("context_initiatives", "current initiatives are required")
	}
	return a.suggest(ctx, h, ContextDescription(history, initiatives))
}

// ContextDescription combines the portfolio context fields into the text sent
// for suggestions.
func ContextDescription(history, initiatives string) string {
	return fmt.Sprintf("Histórico da empresa: %s\n\nIniciativas atuais: %s", history, initiatives)
}

func (a *Advisor) suggest(ctx context.Context, h session.Handle, description string) ([]portfolio.Suggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.Validation("description", "context is required")
	}
	if a.provider == nil {
		return nil, apperr.Proxy("generating suggestions", ErrNotConfigured)
	}

	a.countClick(h, database.CounterSuggestions)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.generate(callCtx, suggestionsPrompt(description))
	if err != nil {
		a.logger.Warn("suggestion generation failed",
			zap.String("op", "advisor.suggest"), zap.Error(err))
		return nil, apperr.Proxy("generating suggestions", err)
	}

	var parsed struct {
		Projects []portfolio.Suggestion `json:"projects"`
	}
	if err := llm.DecodeJSONResponse(text, &parsed); err != nil {
		a.logger.Warn("malformed suggestions response",
			zap.String("op", "advisor.suggest"), zap.Error(err))
		return nil, apperr.Proxy("generating suggestions", err)
	}
	if len(parsed.Projects) == 0 {
		return nil, apperr.Proxy("generating suggestions", errors.New("response contained no projects"))
	}

	for i := range parsed.Projects {
		parsed.Projects[i].Selected = true
	}
	return parsed.Projects, nil
}

func (a *Advisor) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := a.provider.Generate(ctx, prompt, a.maxTokens)
	a.logger.Debug("provider call finished",
		zap.String("op", "advisor.generate"),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("provider returned an empty response")
	}
	return text, nil
}

func (a *Advisor) countClick(h session.Handle, counter string) {
	if a.clicks == nil || !h.Valid() {
		return
	}
	if err := a.clicks.IncrementClicks(h.ID, counter); err != nil {
		a.logger.Warn("could not record click",
			zap.String("op", "advisor.click"), zap.String("counter", counter), zap.Error(err))
	}
}

// CacheLen returns the number of cached benchmarks.
func (a *Advisor) CacheLen() int {
	return a.cache.Len()
}

// IsTimeout reports whether err came from a provider call running out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
