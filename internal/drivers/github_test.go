package drivers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"portfolio-backend/internal/platformlinks"
)

func testBundle(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range []struct{ name, body string }{
		{"index.html", "<html></html>"},
		{"styles.css", "body {}"},
	} {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

type fakeGitHub struct {
	mu       sync.Mutex
	puts     []string
	pages    bool
	cname    string
	failRepo bool
}

func (g *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if g.failRepo {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"name already exists"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"full_name": "octocat/site"})
	})
	mux.HandleFunc("/repos/octocat/site/pages", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			if g.pages {
				w.WriteHeader(http.StatusConflict)
				return
			}
			g.pages = true
			w.WriteHeader(http.StatusCreated)
		case http.MethodPut:
			var body struct {
				CName string `json:"cname"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			g.cname = body.CName
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/repos/octocat/site/contents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		g.mu.Lock()
		g.puts = append(g.puts, strings.TrimPrefix(r.URL.Path, "/repos/octocat/site/contents/"))
		g.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func newGitHubFixture(t *testing.T, fake *fakeGitHub) *GitHubDriver {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	links := platformlinks.NewService(platformlinks.NewMemoryRepo())
	if err := links.Link(context.Background(), "u1", platformlinks.PlatformGitHub, "tok"); err != nil {
		t.Fatalf("link: %v", err)
	}

	driver := NewGitHubDriver(srv.URL, links)
	driver.HTTPClient = srv.Client()
	return driver
}

func TestGitHubDeployPushesFilesAndEnablesPages(t *testing.T) {
	fake := &fakeGitHub{}
	driver := newGitHubFixture(t, fake)

	result, err := driver.Deploy(context.Background(), DeployRequest{
		UserID:   "u1",
		RepoName: "site",
		Bundle:   testBundle(t),
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if result.Ref != "octocat/site" {
		t.Fatalf("unexpected ref: %s", result.Ref)
	}
	if result.LiveURL != "https://octocat.github.io/site/" {
		t.Fatalf("unexpected live url: %s", result.LiveURL)
	}
	if result.DNS != nil {
		t.Fatalf("unexpected dns instructions without custom domain")
	}
	if len(fake.puts) != 2 {
		t.Fatalf("expected 2 file pushes, got %v", fake.puts)
	}
	if !fake.pages {
		t.Fatalf("pages were not enabled")
	}
}

func TestGitHubDeployCustomDomain(t *testing.T) {
	fake := &fakeGitHub{}
	driver := newGitHubFixture(t, fake)

	result, err := driver.Deploy(context.Background(), DeployRequest{
		UserID:       "u1",
		RepoName:     "site",
		CustomDomain: "www.example.com",
		Bundle:       testBundle(t),
	})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if result.LiveURL != "https://www.example.com/" {
		t.Fatalf("unexpected live url: %s", result.LiveURL)
	}
	if result.DNS == nil || result.DNS.Type != "subdomain" {
		t.Fatalf("expected subdomain dns instructions, got %+v", result.DNS)
	}
	if fake.cname != "www.example.com" {
		t.Fatalf("cname not set: %q", fake.cname)
	}
}

func TestGitHubRedeployToleratesExistingPages(t *testing.T) {
	fake := &fakeGitHub{pages: true}
	driver := newGitHubFixture(t, fake)

	result, err := driver.Redeploy(context.Background(), "octocat/site", DeployRequest{
		UserID:   "u1",
		RepoName: "site",
		Bundle:   testBundle(t),
	})
	if err != nil {
		t.Fatalf("redeploy: %v", err)
	}
	if result.Ref != "octocat/site" {
		t.Fatalf("unexpected ref: %s", result.Ref)
	}
	if len(fake.puts) != 2 {
		t.Fatalf("expected 2 file pushes, got %v", fake.puts)
	}
}

func TestGitHubDeployPlatformError(t *testing.T) {
	fake := &fakeGitHub{failRepo: true}
	driver := newGitHubFixture(t, fake)

	_, err := driver.Deploy(context.Background(), DeployRequest{
		UserID:   "u1",
		RepoName: "site",
		Bundle:   testBundle(t),
	})
	if !errors.Is(err, ErrPlatform) {
		t.Fatalf("expected platform error, got %v", err)
	}
	var perr *PlatformError
	if !errors.As(err, &perr) || perr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 platform error, got %+v", err)
	}
}

func TestGitHubDeployNotLinked(t *testing.T) {
	fake := &fakeGitHub{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	links := platformlinks.NewService(platformlinks.NewMemoryRepo())
	driver := NewGitHubDriver(srv.URL, links)
	driver.HTTPClient = srv.Client()

	_, err := driver.Deploy(context.Background(), DeployRequest{UserID: "u1", RepoName: "site"})
	if !errors.Is(err, platformlinks.ErrNotLinked) {
		t.Fatalf("expected not linked, got %v", err)
	}
}
