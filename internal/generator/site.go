package generator

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// SiteGenerator renders a resume into a static portfolio site.
type SiteGenerator struct{}

// NewSiteGenerator constructs a SiteGenerator.
func NewSiteGenerator() *SiteGenerator {
	return &SiteGenerator{}
}

// Render produces the site bundle and preview markup. Output contains
// no timestamps or random identifiers; zip entries carry zero mtimes
// and are written in a fixed order so identical input yields identical
// bytes.
func (g *SiteGenerator) Render(ctx context.Context, input Input) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if input.Resume.ID == "" || input.Template.ID == "" {
		return Artifact{}, fmt.Errorf("resume and template are required")
	}

	page, err := renderPage(input)
	if err != nil {
		return Artifact{}, err
	}
	css := renderStylesheet(input)

	files := []struct {
		name string
		body string
	}{
		{"index.html", page},
		{"styles.css", css},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.name, Method: zip.Deflate}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return Artifact{}, fmt.Errorf("bundle %s: %w", f.name, err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			return Artifact{}, fmt.Errorf("bundle %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close bundle: %w", err)
	}

	return Artifact{Bundle: buf.Bytes(), PreviewHTML: page}, nil
}

func renderPage(input Input) (string, error) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(input.Resume.Title))
	b.WriteString("<link rel=\"stylesheet\" href=\"styles.css\">\n")
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<header class=\"tpl-%s\"><h1>%s</h1></header>\n",
		html.EscapeString(input.Template.ID), html.EscapeString(input.Resume.Title))

	keys := make([]string, 0, len(input.Resume.Data))
	for k := range input.Resume.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		body, err := renderSection(input.Resume.Data[k])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "<section id=\"%s\">\n<h2>%s</h2>\n%s</section>\n",
			html.EscapeString(k), html.EscapeString(sectionTitle(k)), body)
	}

	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

func renderSection(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("<p>%s</p>\n", html.EscapeString(v)), nil
	case []any:
		var b strings.Builder
		b.WriteString("<ul>\n")
		for _, item := range v {
			body, err := renderInline(item)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", body)
		}
		b.WriteString("</ul>\n")
		return b.String(), nil
	default:
		return renderInline(value)
	}
}

func renderInline(value any) (string, error) {
	if s, ok := value.(string); ok {
		return html.EscapeString(s), nil
	}
	// json.Marshal sorts map keys, keeping nested structures
	// deterministic.
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("render value: %w", err)
	}
	return "<code>" + html.EscapeString(string(raw)) + "</code>", nil
}

func sectionTitle(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

func renderStylesheet(input Input) string {
	accent := input.Options["accent"]
	if accent == "" {
		accent = "#1f6feb"
	}
	font := input.Options["font"]
	if font == "" {
		font = "system-ui, sans-serif"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "body { font-family: %s; margin: 0 auto; max-width: 48rem; padding: 2rem; }\n", font)
	fmt.Fprintf(&b, "header h1 { color: %s; }\n", accent)
	fmt.Fprintf(&b, "section h2 { border-bottom: 1px solid %s; }\n", accent)
	return b.String()
}

var _ Generator = (*SiteGenerator)(nil)
