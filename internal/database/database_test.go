package database

import (
	"path/filepath"
	"sync"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fptr(f float64) *float64 { return &f }

func mustSession(t *testing.T, db *DB, code string) *Session {
	t.Helper()
	s, _, err := db.FindOrCreateSession(code)
	if err != nil {
		t.Fatalf("FindOrCreateSession(%q): %v", code, err)
	}
	return s
}

func sampleROIProject(sessionID, name string) *ROIProject {
	return &ROIProject{
		SessionID:        sessionID,
		ProjectName:      name,
		Description:      "Automação de vendas",
		InvestmentAmount: 10000,
		Timeframe:        12,
		ExpectedRevenue:  20000,
		ExpectedCosts:    5000,
		RiskLevel:        "Medium",
		CalculationModel: "Simple",
		ROIResult:        50,
		NetProfit:        5000,
		BreakEvenMonths:  fptr(8),
		MonthlyReturn:    416.67,
		RiskAdjustedROI:  42.5,
	}
}

func TestFindOrCreateSessionIdempotent(t *testing.T) {
	db := openTestDB(t)

	first, created, err := db.FindOrCreateSession("ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected first call to create the session")
	}

	second, created, err := db.FindOrCreateSession("ABC123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected second call to load the existing session")
	}
	if first.ID != second.ID {
		t.Errorf("expected same id, got %q and %q", first.ID, second.ID)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", stats.Sessions)
	}
}

func TestFindOrCreateSessionConcurrent(t *testing.T) {
	db := openTestDB(t)

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _, err := db.FindOrCreateSession("RACE")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids[i] = s.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected one session id, got %v", ids)
		}
	}
	sessions, _ := db.ListSessions("")
	if len(sessions) != 1 {
		t.Errorf("expected 1 session row, got %d", len(sessions))
	}
}

func TestGetSessionMissing(t *testing.T) {
	db := openTestDB(t)
	s, err := db.GetSession("does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("expected nil for missing session")
	}
}

func TestIncrementClicks(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "CLICKS")

	for i := 0; i < 3; i++ {
		if err := db.IncrementClicks(s.ID, CounterBenchmark); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := db.IncrementClicks(s.ID, CounterSuggestions); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := db.GetSession(s.ID)
	if got.BenchmarkClicks != 3 {
		t.Errorf("expected 3 benchmark clicks, got %d", got.BenchmarkClicks)
	}
	if got.ProjectSuggestionsClicks != 1 {
		t.Errorf("expected 1 suggestion click, got %d", got.ProjectSuggestionsClicks)
	}

	if err := db.IncrementClicks(s.ID, "id"); err == nil {
		t.Error("expected error for unknown counter")
	}
	if err := db.IncrementClicks("missing", CounterBenchmark); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestListSessionsWithCounts(t *testing.T) {
	db := openTestDB(t)
	a := mustSession(t, db, "alpha-01")
	mustSession(t, db, "BETA-02")

	db.InsertROIProject(sampleROIProject(a.ID, "P1"))
	db.InsertROIProject(sampleROIProject(a.ID, "P2"))
	db.UpsertStrategyConfig(a.ID, "Portfólio", "", "")

	all, err := db.ListSessions("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(all))
	}

	filtered, _ := db.ListSessions("ALPHA")
	if len(filtered) != 1 {
		t.Fatalf("expected 1 filtered session, got %d", len(filtered))
	}
	if filtered[0].ROIProjectCount != 2 {
		t.Errorf("expected 2 ROI projects, got %d", filtered[0].ROIProjectCount)
	}
	if filtered[0].StrategySessionCount != 1 {
		t.Errorf("expected 1 strategy session, got %d", filtered[0].StrategySessionCount)
	}
}

func TestROIProjectLifecycle(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "ROI")
	other := mustSession(t, db, "OTHER")

	p := sampleROIProject(s.ID, "CRM")
	p.NPV = fptr(4068.85)
	if err := db.InsertROIProject(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" || p.CreatedAt == nil {
		t.Error("expected id and created_at to be filled in")
	}
	db.InsertROIProject(sampleROIProject(s.ID, "ERP"))

	projects, err := db.GetROIProjects(s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ProjectName != "ERP" {
		t.Errorf("expected newest first, got %q", projects[0].ProjectName)
	}

	got, _ := db.GetROIProject(s.ID, p.ID)
	if got == nil {
		t.Fatal("expected project")
	}
	if got.BreakEvenMonths == nil || *got.BreakEvenMonths != 8 {
		t.Errorf("expected break-even 8, got %v", got.BreakEvenMonths)
	}
	if got.NPV == nil || *got.NPV != 4068.85 {
		t.Errorf("expected NPV stored, got %v", got.NPV)
	}
	if got.IRR != nil {
		t.Error("expected NULL IRR to scan as nil")
	}

	// Another session cannot see or delete it.
	if g, _ := db.GetROIProject(other.ID, p.ID); g != nil {
		t.Error("expected project to be invisible to another session")
	}
	if ok, _ := db.DeleteROIProject(other.ID, p.ID); ok {
		t.Error("expected delete from another session to be a no-op")
	}

	ok, err := db.DeleteROIProject(s.ID, p.ID)
	if err != nil || !ok {
		t.Fatalf("expected delete to succeed, got %v %v", ok, err)
	}
	projects, _ = db.GetROIProjects(s.ID)
	if len(projects) != 1 {
		t.Errorf("expected 1 project after delete, got %d", len(projects))
	}
}

func TestInsertROIProjectRejectsNonPositiveInvestment(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "CHECK")
	p := sampleROIProject(s.ID, "Bad")
	p.InvestmentAmount = 0
	if err := db.InsertROIProject(p); err == nil {
		t.Error("expected check constraint failure")
	}
}

func TestStrategyConfigUpsert(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "STRAT")

	id1, err := db.UpsertStrategyConfig(s.ID, "Primeiro", "hist", "init")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := db.UpsertStrategyConfig(s.ID, "Segundo", "hist2", "init2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != id2 {
		t.Error("expected one portfolio per session")
	}

	ss, _ := db.GetStrategySession(s.ID)
	if ss.PortfolioName != "Segundo" || ss.ContextHistory != "hist2" {
		t.Errorf("expected updated config, got %+v", ss)
	}
	if len(ss.Projects) != 0 {
		t.Errorf("expected no projects, got %d", len(ss.Projects))
	}
}

func TestReplaceStrategyOverwrites(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "REPLACE")

	_, err := db.ReplaceStrategy(s.ID, "P", "", "", []StrategyProject{
		{Name: "A", Impact: 5, Complexity: 5, Category: "Core", Selected: true},
		{Name: "B", Impact: 7, Complexity: 2, Category: "Adjacent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = db.ReplaceStrategy(s.ID, "P", "", "", []StrategyProject{
		{Name: "C", Impact: 9, Complexity: 8, Category: "Transformational", Selected: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ss, _ := db.GetStrategySession(s.ID)
	if len(ss.Projects) != 1 || ss.Projects[0].Name != "C" {
		t.Fatalf("expected only project C, got %+v", ss.Projects)
	}
	if !ss.Projects[0].Selected {
		t.Error("expected selected flag to round-trip")
	}
}

func TestReplaceStrategyKeepsOrder(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "ORDER")

	names := []string{"Z", "A", "M"}
	var projects []StrategyProject
	for _, n := range names {
		projects = append(projects, StrategyProject{Name: n, Impact: 1, Complexity: 1, Category: "Core"})
	}
	if _, err := db.ReplaceStrategy(s.ID, "P", "", "", projects); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ss, _ := db.GetStrategySession(s.ID)
	for i, n := range names {
		if ss.Projects[i].Name != n {
			t.Errorf("position %d: expected %q, got %q", i, n, ss.Projects[i].Name)
		}
	}
}

func TestReplaceStrategyRollsBackOnFailure(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "ROLLBACK")

	_, err := db.ReplaceStrategy(s.ID, "Original", "", "", []StrategyProject{
		{Name: "Keep", Impact: 5, Complexity: 5, Category: "Core"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The second project violates the impact check constraint.
	_, err = db.ReplaceStrategy(s.ID, "Changed", "", "", []StrategyProject{
		{Name: "New", Impact: 5, Complexity: 5, Category: "Core"},
		{Name: "Broken", Impact: 11, Complexity: 5, Category: "Core"},
	})
	if err == nil {
		t.Fatal("expected replace to fail")
	}

	ss, _ := db.GetStrategySession(s.ID)
	if ss.PortfolioName != "Original" {
		t.Errorf("expected config rollback, got %q", ss.PortfolioName)
	}
	if len(ss.Projects) != 1 || ss.Projects[0].Name != "Keep" {
		t.Errorf("expected original projects kept, got %+v", ss.Projects)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	db := openTestDB(t)
	s := mustSession(t, db, "CASCADE")
	db.InsertROIProject(sampleROIProject(s.ID, "P"))
	db.ReplaceStrategy(s.ID, "P", "", "", []StrategyProject{{Name: "A", Impact: 1, Complexity: 1, Category: "Core"}})

	if err := db.DeleteSession(s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, _ := db.GetStats()
	if stats.ROIProjects != 0 || stats.Portfolios != 0 || stats.StrategyProjects != 0 {
		t.Errorf("expected cascading delete, got %+v", stats)
	}
}
