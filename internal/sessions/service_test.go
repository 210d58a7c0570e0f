package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"portfolio-backend/internal/generator"
	"portfolio-backend/internal/resumes"
	localstore "portfolio-backend/internal/shared/storage/object/local"
	"portfolio-backend/internal/templates"
)

func newTestService(t *testing.T) (*Service, *resumes.MemoryRepo, *templates.MemoryRepo) {
	t.Helper()
	resumeRepo := resumes.NewMemoryRepo()
	templateRepo := templates.NewMemoryRepo()
	svc := NewService(
		NewMemoryRepo(),
		resumeRepo,
		templateRepo,
		generator.NewSiteGenerator(),
		localstore.New(t.TempDir()),
	)

	ctx := context.Background()
	if err := resumeRepo.Put(ctx, resumes.Resume{
		ID:        "r1",
		UserID:    "u1",
		Title:     "Jane Doe",
		Data:      map[string]any{"summary": "Engineer."},
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	if err := templateRepo.Put(ctx, templates.Template{ID: "t1", Name: "Minimal"}); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	if err := templateRepo.Put(ctx, templates.Template{ID: "t-premium", Name: "Studio", Premium: true}); err != nil {
		t.Fatalf("seed premium template: %v", err)
	}
	return svc, resumeRepo, templateRepo
}

func TestGetOrCreateCreatesThenReuses(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", nil, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s", first.Outcome)
	}
	if first.Session.Status != StatusGenerated {
		t.Fatalf("expected generated status, got %s", first.Session.Status)
	}
	if first.Session.BundleKey == "" {
		t.Fatalf("expected bundle key")
	}

	second, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", nil, false)
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if second.Outcome != OutcomeReused {
		t.Fatalf("expected reused, got %s", second.Outcome)
	}
	if second.Session.ID != first.Session.ID {
		t.Fatalf("reuse returned a different session")
	}
}

func TestGetOrCreateForceNewMakesSibling(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", nil, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	forced, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", nil, true)
	if err != nil {
		t.Fatalf("forced generate: %v", err)
	}
	if forced.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s", forced.Outcome)
	}
	if forced.Session.ID == first.Session.ID {
		t.Fatalf("forced generation reused the session")
	}

	// The original stays listable.
	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
}

func TestGetOrCreateDistinctOptionsDistinctSessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", map[string]string{"accent": "#000"}, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", map[string]string{"accent": "#fff"}, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Session.ID == b.Session.ID {
		t.Fatalf("different options collapsed to one session")
	}
}

func TestGetOrCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "u1", "", "t1", nil, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing resume id, got %v", err)
	}
	if _, err := svc.GetOrCreate(ctx, "u1", "missing", "t1", nil, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown resume, got %v", err)
	}
	if _, err := svc.GetOrCreate(ctx, "u1", "r1", "missing", nil, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown template, got %v", err)
	}
	// Another user's resume does not resolve.
	if _, err := svc.GetOrCreate(ctx, "u2", "r1", "t1", nil, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for foreign resume, got %v", err)
	}

	// No session may be left behind by a failed request.
	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("failed requests left %d sessions", len(list))
	}
}

func TestGetOrCreatePremiumEntitlement(t *testing.T) {
	svc, _, templateRepo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "u1", "r1", "t-premium", nil, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for premium template, got %v", err)
	}

	if err := templateRepo.Grant(ctx, "u1", "t-premium"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	result, err := svc.GetOrCreate(ctx, "u1", "r1", "t-premium", nil, false)
	if err != nil {
		t.Fatalf("generate after grant: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s", result.Outcome)
	}
}

func TestOpenBundleRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", nil, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	rc, err := svc.OpenBundle(ctx, "u1", result.Session.ID)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer rc.Close()

	if _, err := svc.OpenBundle(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.OpenBundle(ctx, "u2", result.Session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
}

func TestConcurrentIdenticalRequestsShareSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const n = 8
	results := make(chan GenerateResult, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			r, err := svc.GetOrCreate(ctx, "u1", "r1", "t1", nil, false)
			if err != nil {
				errs <- err
				return
			}
			results <- r
		}()
	}

	ids := make(map[string]bool)
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("generate: %v", err)
		case r := <-results:
			ids[r.Session.ID] = true
		}
	}
	if len(ids) != 1 {
		t.Fatalf("concurrent identical requests created %d sessions", len(ids))
	}
}
