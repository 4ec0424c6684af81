package advisor

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/cache"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/session"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (m *mockProvider) Generate(ctx context.Context, _ string, _ int) (string, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) (*database.DB, session.Handle) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h, _, err := session.NewManager(db, "", nil).Open("ADVISOR")
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	return db, h
}

func TestBenchmarkCachesAndCountsOnce(t *testing.T) {
	db, h := openTestDB(t)
	p := &mockProvider{response: "ROI típico de 20%"}
	a := New(p, cache.New(time.Minute), db, Options{}, nil)

	for i, desc := range []string{"App de vendas", "  APP DE VENDAS "} {
		text, err := a.Benchmark(context.Background(), h, desc)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if text != "ROI típico de 20%" {
			t.Errorf("call %d: unexpected text %q", i, text)
		}
	}

	if got := p.calls.Load(); got != 1 {
		t.Errorf("expected 1 provider call, got %d", got)
	}
	s, _ := db.GetSession(h.ID)
	if s.BenchmarkClicks != 1 {
		t.Errorf("expected 1 benchmark click, got %d", s.BenchmarkClicks)
	}
}

func TestBenchmarkExpiredEntryCallsAgain(t *testing.T) {
	now := time.Now()
	c := cache.New(time.Minute).WithClock(func() time.Time { return now })
	p := &mockProvider{response: "texto"}
	a := New(p, c, nil, Options{}, nil)

	a.Benchmark(context.Background(), session.Handle{}, "x")
	now = now.Add(2 * time.Minute)
	a.Benchmark(context.Background(), session.Handle{}, "x")

	if got := p.calls.Load(); got != 2 {
		t.Errorf("expected 2 provider calls after expiry, got %d", got)
	}
}

func TestBenchmarkEmptyDescription(t *testing.T) {
	p := &mockProvider{response: "x"}
	a := New(p, nil, nil, Options{}, nil)

	_, err := a.Benchmark(context.Background(), session.Handle{}, "   ")
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if p.calls.Load() != 0 {
		t.Error("expected no provider call")
	}
}

func TestBenchmarkNoProvider(t *testing.T) {
	a := New(nil, nil, nil, Options{}, nil)
	_, err := a.Benchmark(context.Background(), session.Handle{}, "x")
	if apperr.KindOf(err) != apperr.KindProxy || !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected proxy error for missing provider, got %v", err)
	}
}

func TestBenchmarkProviderFailureNotCached(t *testing.T) {
	p := &mockProvider{err: errors.New("boom")}
	a := New(p, nil, nil, Options{}, nil)

	_, err := a.Benchmark(context.Background(), session.Handle{}, "x")
	if apperr.KindOf(err) != apperr.KindProxy {
		t.Fatalf("expected proxy error, got %v", err)
	}
	if !apperr.Retryable(err) {
		t.Error("expected proxy error to be retryable")
	}
	if a.CacheLen() != 0 {
		t.Error("expected failed call not to be cached")
	}
}

func TestBenchmarkEmptyResponse(t *testing.T) {
	a := New(&mockProvider{response: "  "}, nil, nil, Options{}, nil)
	if _, err := a.Benchmark(context.Background(), session.Handle{}, "x"); apperr.KindOf(err) != apperr.KindProxy {
		t.Errorf("expected proxy error for empty response, got %v", err)
	}
}

func TestBenchmarkTimeout(t *testing.T) {
	p := &mockProvider{response: "late", delay: time.Second}
	a := New(p, nil, nil, Options{Timeout: 20 * time.Millisecond}, nil)

	_, err := a.Benchmark(context.Background(), session.Handle{}, "slow")
	if apperr.KindOf(err) != apperr.KindProxy {
		t.Fatalf("expected proxy error, got %v", err)
	}
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestBenchmarkCoalescesConcurrentRequests(t *testing.T) {
	db, h := openTestDB(t)
	p := &mockProvider{response: "compartilhado", delay: 50 * time.Millisecond}
	a := New(p, nil, db, Options{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := a.Benchmark(context.Background(), h, "mesmo projeto")
			if err != nil || text != "compartilhado" {
				t.Errorf("unexpected result %q (%v)", text, err)
			}
		}()
	}
	wg.Wait()

	if got := p.calls.Load(); got != 1 {
		t.Errorf("expected 1 provider call, got %d", got)
	}
	s, _ := db.GetSession(h.ID)
	if s.BenchmarkClicks != 1 {
		t.Errorf("expected 1 click, got %d", s.BenchmarkClicks)
	}
}

func TestSuggest(t *testing.T) {
	db, h := openTestDB(t)
	resp := "```json\n" + `{"projects": [
		{"name": "Marketplace", "category": "Adjacente", "impact": 8, "complexity": 6, "description": "Canal B2B", "expectedReturn": "Novas receitas"},
		{"name": "IA generativa", "category": "Transformacional", "impact": 9, "complexity": 9}
	]}` + "\n```"
	a := New(&mockProvider{response: resp}, nil, db, Options{}, nil)

	projects, err := a.Suggest(context.Background(), h, "Varejo desde 1990", "Loja online")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ExpectedReturn != "Novas receitas" || !projects[0].Selected {
		t.Errorf("unexpected first project %+v", projects[0])
	}

	s, _ := db.GetSession(h.ID)
	if s.ProjectSuggestionsClicks != 1 {
		t.Errorf("expected 1 suggestion click, got %d", s.ProjectSuggestionsClicks)
	}
}

func TestSuggestRequiresContext(t *testing.T) {
	p := &mockProvider{response: `{"projects":[]}`}
	a := New(p, nil, nil, Options{}, nil)

	if _, err := a.Suggest(context.Background(), session.Handle{}, "", "x"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for history, got %v", err)
	}
	if _, err := a.Suggest(context.Background(), session.Handle{}, "x", " "); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for initiatives, got %v", err)
	}
	if p.calls.Load() != 0 {
		t.Error("expected no provider call")
	}
}

func TestSuggestMalformedResponse(t *testing.T) {
	for _, resp := range []string{"Aqui estão algumas ideias...", `{"projects": []}`} {
		a := New(&mockProvider{response: resp}, nil, nil, Options{}, nil)
		_, err := a.Suggest(context.Background(), session.Handle{}, "a", "b")
		if apperr.KindOf(err) != apperr.KindProxy {
			t.Errorf("response %q: expected proxy error, got %v", resp, err)
		}
	}
}

func TestHandleDispatch(t *testing.T) {
	a := New(&mockProvider{response: `{"projects":[{"name":"X","category":"Core","impact":5,"complexity":5}]}`}, nil, nil, Options{}, nil)

	resp, err := a.Handle(context.Background(), session.Handle{}, Request{Description: "ctx", Type: "suggestions"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Projects) != 1 || resp.Text != "" {
		t.Errorf("unexpected response %+v", resp)
	}

	resp, err = a.Handle(context.Background(), session.Handle{}, Request{Description: "ctx", Type: "benchmark"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Text, "projects") {
		t.Errorf("expected raw text for benchmark, got %q", resp.Text)
	}

	if _, err := a.Handle(context.Background(), session.Handle{}, Request{Description: "x", Type: "poem"}); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for unknown type, got %v", err)
	}
}

func TestHandleSuggestionsWithContextFields(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"both blank", Request{Type: "suggestions", History: " ", Initiatives: "\n"}, "context_history"},
		{"missing initiatives", Request{Type: "suggestions", History: "Varejo"}, "context_initiatives"},
		{"nothing at all", Request{Type: "suggestions"}, "context_history"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{response: `{"projects":[{"name":"X","category":"Core","impact":5,"complexity":5}]}`}
			a := New(p, nil, nil, Options{}, nil)

			_, err := a.Handle(context.Background(), session.Handle{}, tt.req)
			var e *apperr.Error
			if !errors.As(err, &e) || e.Kind != apperr.KindValidation || e.Field != tt.field {
				t.Errorf("expected validation error on %s, got %v", tt.field, err)
			}
			if n := p.calls.Load(); n != 0 {
				t.Errorf("expected no provider call, got %d", n)
			}
		})
	}

	p := &mockProvider{response: `{"projects":[{"name":"X","category":"Core","impact":5,"complexity":5}]}`}
	a := New(p, nil, nil, Options{}, nil)
	resp, err := a.Handle(context.Background(), session.Handle{},
		Request{Type: "suggestions", History: "Varejo desde 1990", Initiatives: "Loja online"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Projects) != 1 || p.calls.Load() != 1 {
		t.Errorf("expected one suggestion from one call, got %+v (%d calls)", resp.Projects, p.calls.Load())
	}
}
