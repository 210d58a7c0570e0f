package drivers

import (
	"context"
	"errors"
	"testing"
)

type nopDriver struct{}

func (nopDriver) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	return DeployResult{}, nil
}

func (nopDriver) Redeploy(ctx context.Context, ref string, req DeployRequest) (DeployResult, error) {
	return DeployResult{}, nil
}

func (nopDriver) Delete(ctx context.Context, userID, ref string) error { return nil }

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	r.Register("github", nopDriver{})

	if _, err := r.Get("github"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := r.Get("geocities"); !errors.Is(err, ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestRegistryPlatformsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("vercel", nopDriver{})
	r.Register("github", nopDriver{})
	r.Register("netlify", nopDriver{})

	got := r.Platforms()
	want := []string{"github", "netlify", "vercel"}
	if len(got) != len(want) {
		t.Fatalf("expected %d platforms, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPlatformErrorMatching(t *testing.T) {
	err := platformErr("github", "create repo", 502, errors.New("boom"))
	if !errors.Is(err, ErrPlatform) {
		t.Fatalf("expected ErrPlatform match")
	}
	var perr *PlatformError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PlatformError, got %T", err)
	}
	if perr.Status != 502 || perr.Platform != "github" {
		t.Fatalf("unexpected error: %+v", perr)
	}
}
