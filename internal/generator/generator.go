package generator

import (
	"context"

	"portfolio-backend/internal/resumes"
	"portfolio-backend/internal/templates"
)

// Input is everything a render depends on. Renders are a pure function
// of this value; byte-identical output for identical input is what
// makes fingerprint-based session reuse correct.
type Input struct {
	Resume   resumes.Resume
	Template templates.Template
	Options  map[string]string
}

// Artifact is a fully rendered static site: a downloadable zip bundle
// and standalone preview markup.
type Artifact struct {
	Bundle      []byte
	PreviewHTML string
}

// Generator renders an input into an artifact. Implementations must be
// deterministic and must return either a complete artifact or an
// error, never a partial one.
type Generator interface {
	Render(ctx context.Context, input Input) (Artifact, error)
}
