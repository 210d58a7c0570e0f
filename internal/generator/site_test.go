package generator

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"portfolio-backend/internal/resumes"
	"portfolio-backend/internal/templates"
)

func sampleInput() Input {
	return Input{
		Resume: resumes.Resume{
			ID:     "r1",
			UserID: "u1",
			Title:  "Jane Doe",
			Data: map[string]any{
				"summary":    "Engineer.",
				"skills":     []any{"Go", "SQL"},
				"experience": map[string]any{"company": "Acme", "years": float64(3)},
			},
		},
		Template: templates.Template{ID: "template-minimal", Name: "Minimal"},
		Options:  map[string]string{"accent": "#123456"},
	}
}

func TestRenderDeterministic(t *testing.T) {
	g := NewSiteGenerator()

	first, err := g.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := g.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !bytes.Equal(first.Bundle, second.Bundle) {
		t.Fatalf("identical input produced different bundles")
	}
	if first.PreviewHTML != second.PreviewHTML {
		t.Fatalf("identical input produced different previews")
	}
}

func TestRenderBundleContents(t *testing.T) {
	g := NewSiteGenerator()

	artifact, err := g.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(artifact.Bundle), int64(len(artifact.Bundle)))
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 files, got %d", len(zr.File))
	}
	if zr.File[0].Name != "index.html" || zr.File[1].Name != "styles.css" {
		t.Fatalf("unexpected file order: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open index.html: %v", err)
	}
	defer rc.Close()
	page, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read index.html: %v", err)
	}
	for _, want := range []string{"<h1>Jane Doe</h1>", "<li>Go</li>", "Engineer."} {
		if !strings.Contains(string(page), want) {
			t.Fatalf("index.html missing %q", want)
		}
	}
}

func TestRenderOptionsChangeOutput(t *testing.T) {
	g := NewSiteGenerator()

	base, err := g.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	other := sampleInput()
	other.Options = map[string]string{"accent": "#654321"}
	changed, err := g.Render(context.Background(), other)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if bytes.Equal(base.Bundle, changed.Bundle) {
		t.Fatalf("different options produced identical bundles")
	}
}

func TestRenderEscapesMarkup(t *testing.T) {
	g := NewSiteGenerator()

	input := sampleInput()
	input.Resume.Data = map[string]any{"summary": `<script>alert("x")</script>`}
	artifact, err := g.Render(context.Background(), input)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(artifact.PreviewHTML, "<script>alert") {
		t.Fatalf("markup was not escaped")
	}
}

func TestRenderRequiresResumeAndTemplate(t *testing.T) {
	g := NewSiteGenerator()
	if _, err := g.Render(context.Background(), Input{}); err == nil {
		t.Fatalf("expected error for empty input")
	}
}
