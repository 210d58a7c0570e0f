package sessions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/generator"
	"portfolio-backend/internal/resumes"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/templates"
)

// Outcome tags a generate result so callers cannot lose track of
// whether work happened or an existing artifact was handed back.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeReused  Outcome = "reused"
)

// GenerateResult pairs a session with how it was obtained.
type GenerateResult struct {
	Outcome Outcome
	Session GenerationSession
}

// Service coordinates portfolio generation: input validation,
// fingerprint reuse, rendering and bundle storage.
type Service struct {
	Repo      Repo
	Resumes   resumes.Repo
	Templates templates.Repo
	Generator generator.Generator
	Store     object.ObjectStore
}

// NewService constructs a Service.
func NewService(repo Repo, resumeRepo resumes.Repo, templateRepo templates.Repo, gen generator.Generator, store object.ObjectStore) *Service {
	return &Service{
		Repo:      repo,
		Resumes:   resumeRepo,
		Templates: templateRepo,
		Generator: gen,
		Store:     store,
	}
}

// GetOrCreate returns the live session matching the request
// fingerprint, or renders a new artifact and creates one. forceNew
// always renders a fresh session; the prior one stays untouched.
// Failures leave no session behind and charge nothing.
func (s *Service) GetOrCreate(ctx context.Context, userID, resumeID, templateID string, options map[string]string, forceNew bool) (GenerateResult, error) {
	if resumeID == "" || templateID == "" {
		return GenerateResult{}, fmt.Errorf("%w: resume_id and template_id are required", ErrInvalidInput)
	}

	resume, err := s.Resumes.GetByID(ctx, userID, resumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) || errors.Is(err, resumes.ErrForbidden) {
			return GenerateResult{}, fmt.Errorf("%w: resume %s not found", ErrInvalidInput, resumeID)
		}
		return GenerateResult{}, err
	}

	tmpl, err := s.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return GenerateResult{}, fmt.Errorf("%w: template %s not found", ErrInvalidInput, templateID)
		}
		return GenerateResult{}, err
	}
	entitled, err := s.Templates.IsEntitled(ctx, userID, templateID)
	if err != nil {
		return GenerateResult{}, err
	}
	if !entitled {
		return GenerateResult{}, fmt.Errorf("%w: template %s requires entitlement", ErrForbidden, templateID)
	}

	fingerprint := Fingerprint(resumeID, templateID, options)

	if !forceNew {
		existing, err := s.Repo.GetByFingerprint(ctx, userID, fingerprint)
		if err == nil {
			metrics.IncGenerateReused()
			telemetry.Info("sessions.generate.reused", map[string]any{
				"user_id":    userID,
				"session_id": existing.ID,
			})
			return GenerateResult{Outcome: OutcomeReused, Session: existing}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return GenerateResult{}, err
		}
	}

	artifact, err := s.Generator.Render(ctx, generator.Input{
		Resume:   resume,
		Template: tmpl,
		Options:  options,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	bundleKey, _, _, err := s.Store.Save(ctx, userID,
		"portfolio_"+fingerprint[:12]+".zip", bytes.NewReader(artifact.Bundle))
	if err != nil {
		return GenerateResult{}, err
	}

	session := GenerationSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		ResumeID:    resumeID,
		TemplateID:  templateID,
		Options:     options,
		Fingerprint: fingerprint,
		Status:      StatusGenerated,
		BundleKey:   bundleKey,
		PreviewHTML: artifact.PreviewHTML,
		CreatedAt:   time.Now().UTC(),
	}

	if forceNew {
		if err := s.Repo.Create(ctx, session); err != nil {
			return GenerateResult{}, err
		}
		metrics.IncGenerateCreated()
		telemetry.Info("sessions.generate.created", map[string]any{
			"user_id":    userID,
			"session_id": session.ID,
			"forced":     true,
		})
		return GenerateResult{Outcome: OutcomeCreated, Session: session}, nil
	}

	stored, created, err := s.Repo.CreateIfAbsent(ctx, session)
	if err != nil {
		return GenerateResult{}, err
	}
	if !created {
		// Lost a race to an identical request. Its session wins; our
		// render is discarded.
		metrics.IncGenerateReused()
		return GenerateResult{Outcome: OutcomeReused, Session: stored}, nil
	}
	metrics.IncGenerateCreated()
	telemetry.Info("sessions.generate.created", map[string]any{
		"user_id":    userID,
		"session_id": stored.ID,
	})
	return GenerateResult{Outcome: OutcomeCreated, Session: stored}, nil
}

// GetByID returns a live session owned by the user.
func (s *Service) GetByID(ctx context.Context, userID, sessionID string) (GenerationSession, error) {
	return s.Repo.GetByID(ctx, userID, sessionID)
}

// List returns the user's live sessions, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]GenerationSession, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// OpenBundle opens the stored zip bundle of a session for download.
func (s *Service) OpenBundle(ctx context.Context, userID, sessionID string) (io.ReadCloser, error) {
	session, err := s.Repo.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.BundleKey == "" {
		return nil, fmt.Errorf("%w: session has no bundle", ErrInvalidInput)
	}
	return s.Store.Open(ctx, session.BundleKey)
}
