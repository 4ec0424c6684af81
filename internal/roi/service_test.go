package roi

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/database"
	"github.com/TobiSchelling/cubo/internal/session"
)

func newTestService(t *testing.T) (*Service, *database.DB, session.Handle) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h, _, err := session.NewManager(db, "", nil).Open("ROI-TEST")
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	return NewService(db, nil), db, h
}

func sampleInput() Input {
	return Input{
		ProjectName:     "CRM",
		Investment:      10000,
		TimeframeMonths: 12,
		ExpectedRevenue: 20000,
		ExpectedCosts:   5000,
		Risk:            RiskMedium,
		Model:           ModelEnterprise,
	}
}

func TestServiceSaveAndList(t *testing.T) {
	svc, _, h := newTestService(t)

	p, m, err := svc.Save(h, sampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" {
		t.Error("expected stored project id")
	}
	if p.ROIResult != m.ROI || p.ROIResult != 50 {
		t.Errorf("expected stored ROI 50, got %v", p.ROIResult)
	}
	if p.NPV == nil {
		t.Error("expected NPV stored for enterprise model")
	}

	projects, err := svc.List(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 1 || projects[0].ProjectName != "CRM" {
		t.Fatalf("expected one CRM project, got %+v", projects)
	}
	if projects[0].CalculationModel != "Enterprise" || projects[0].RiskLevel != "Medium" {
		t.Errorf("unexpected labels: %q %q", projects[0].CalculationModel, projects[0].RiskLevel)
	}
}

func TestServiceSaveRequiresName(t *testing.T) {
	svc, _, h := newTestService(t)
	in := sampleInput()
	in.ProjectName = "   "

	_, _, err := svc.Save(h, in)
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestServiceSaveRejectsZeroInvestment(t *testing.T) {
	svc, _, h := newTestService(t)
	in := sampleInput()
	in.Investment = 0

	_, _, err := svc.Save(h, in)
	var e *apperr.Error
	if !errors.As(err, &e) || e.Field != "investment_amount" {
		t.Errorf("expected investment_amount validation error, got %v", err)
	}
	projects, _ := svc.List(h)
	if len(projects) != 0 {
		t.Error("expected nothing stored")
	}
}

func TestServiceWithoutSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	var none session.Handle

	if _, _, err := svc.Save(none, sampleInput()); !errors.Is(err, apperr.ErrNoActiveSession) {
		t.Errorf("Save: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := svc.List(none); !errors.Is(err, apperr.ErrNoActiveSession) {
		t.Errorf("List: expected ErrNoActiveSession, got %v", err)
	}
	if err := svc.Delete(none, "x"); !errors.Is(err, apperr.ErrNoActiveSession) {
		t.Errorf("Delete: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := svc.Calculate(sampleInput()); err != nil {
		t.Errorf("Calculate should not need a session: %v", err)
	}
}

func TestServiceSaveBackendFailureReturnsMetrics(t *testing.T) {
	svc, db, h := newTestService(t)
	db.Close()

	p, m, err := svc.Save(h, sampleInput())
	if apperr.KindOf(err) != apperr.KindBackend {
		t.Fatalf("expected backend error, got %v", err)
	}
	if p != nil {
		t.Error("expected no stored project")
	}
	if m == nil || m.ROI != 50 {
		t.Errorf("expected computed metrics alongside the error, got %+v", m)
	}
}

func TestServiceDeleteScopedToSession(t *testing.T) {
	svc, db, h := newTestService(t)
	other, _, _ := session.NewManager(db, "", nil).Open("OTHER")

	p, _, _ := svc.Save(h, sampleInput())

	if err := svc.Delete(other, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projects, _ := svc.List(h); len(projects) != 1 {
		t.Error("expected project to survive delete from another session")
	}

	if err := svc.Delete(h, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projects, _ := svc.List(h); len(projects) != 0 {
		t.Error("expected project deleted")
	}
}
