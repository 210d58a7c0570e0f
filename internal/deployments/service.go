package deployments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/credits"
	"portfolio-backend/internal/drivers"
	"portfolio-backend/internal/platformlinks"
	"portfolio-backend/internal/sessions"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
)

// Outcome is what one deploy request produced.
type Outcome struct {
	Deployment Deployment
	DNS        *drivers.DNSInstructions
	// Reused is true when the request matched the already active
	// deployment and nothing was charged or redeployed.
	Reused bool
}

// SessionSummary is one session with its deployment history attached.
type SessionSummary struct {
	Session     sessions.GenerationSession
	Deployments []Deployment
	TotalSpent  int
}

// DeleteOutcome reports a session deletion. Warnings carry remote
// teardown failures; local deletion has already happened when they
// are returned.
type DeleteOutcome struct {
	RemoteRemoved bool
	Warnings      []string
}

// Service orchestrates deployments: credential check, two-phase credit
// charge, driver call, history write. Credits move only on confirmed
// platform success.
type Service struct {
	Repo     Repo
	Sessions sessions.Repo
	Links    *platformlinks.Service
	Credits  *credits.Service
	Registry *drivers.Registry
	Store    object.ObjectStore
	Costs    map[string]int
	Timeout  time.Duration
}

// Deploy performs a first-time deploy of a session to a platform.
func (s *Service) Deploy(ctx context.Context, userID, sessionID, platform, repoName, customDomain string) (Outcome, error) {
	return s.run(ctx, userID, sessionID, platform, repoName, customDomain, false)
}

// Redeploy pushes the session's artifact over the existing active
// deployment, which becomes replaced. Charged at the same rate as a
// deploy.
func (s *Service) Redeploy(ctx context.Context, userID, sessionID, platform, repoName, customDomain string) (Outcome, error) {
	return s.run(ctx, userID, sessionID, platform, repoName, customDomain, true)
}

func (s *Service) run(ctx context.Context, userID, sessionID, platform, repoName, customDomain string, redeploy bool) (Outcome, error) {
	if repoName == "" {
		return Outcome{}, fmt.Errorf("%w: repo name is required", ErrInvalidInput)
	}
	driver, err := s.Registry.Get(platform)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, platform)
	}

	session, err := s.Sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return Outcome{}, ErrNotFound
		}
		return Outcome{}, err
	}
	if session.Status != sessions.StatusGenerated {
		return Outcome{}, fmt.Errorf("%w: session is not generated yet", ErrInvalidInput)
	}

	// Fail before touching credits when the platform is not linked.
	linked, err := s.Links.IsLinked(ctx, userID, platform)
	if err != nil {
		return Outcome{}, err
	}
	if !linked {
		return Outcome{}, fmt.Errorf("%w: %s", platformlinks.ErrNotLinked, platform)
	}

	prior, err := s.Repo.GetActive(ctx, sessionID, platform)
	priorExists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Outcome{}, err
	}
	if redeploy && !priorExists {
		return Outcome{}, fmt.Errorf("%w: no active deployment to redeploy", ErrNotFound)
	}
	if priorExists && prior.RepoName == repoName && prior.CustomDomain == customDomain {
		// The session's artifact is immutable, so a request matching
		// the active target exactly is a retry. Nothing to push,
		// nothing to charge.
		return Outcome{Deployment: prior, Reused: true}, nil
	}
	if !redeploy && priorExists {
		return Outcome{}, fmt.Errorf("%w: session already deployed to %s, use redeploy", ErrConflict, platform)
	}

	cost := s.Costs[platform]
	reservation, err := s.Credits.Reserve(ctx, userID, cost, "deploy:"+platform)
	if err != nil {
		return Outcome{}, err
	}

	bundle, err := s.loadBundle(ctx, session.BundleKey)
	if err != nil {
		_ = s.Credits.Release(ctx, reservation.Token)
		return Outcome{}, err
	}

	req := drivers.DeployRequest{
		UserID:       userID,
		RepoName:     repoName,
		CustomDomain: customDomain,
		Bundle:       bundle,
		PreviewHTML:  session.PreviewHTML,
	}

	metrics.IncDeployStarted()
	started := time.Now()

	cctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var result drivers.DeployResult
	var derr error
	if redeploy {
		result, derr = driver.Redeploy(cctx, prior.RemoteRef, req)
	} else {
		result, derr = driver.Deploy(cctx, req)
	}
	metrics.ObserveDeployDurationMs(float64(time.Since(started).Milliseconds()))

	if derr != nil {
		return Outcome{}, s.fail(ctx, reservation.Token, session, platform, repoName, customDomain, derr)
	}

	dep := Deployment{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		UserID:       userID,
		Platform:     platform,
		Status:       StatusActive,
		RepoName:     repoName,
		CustomDomain: customDomain,
		LiveURL:      result.LiveURL,
		RemoteRef:    result.Ref,
		CreditsSpent: cost,
		DeployedAt:   time.Now().UTC(),
	}

	priorID := ""
	if redeploy {
		priorID = prior.ID
	}
	if err := s.Repo.ActivateSuperseding(ctx, dep, priorID); err != nil {
		_ = s.Credits.Release(ctx, reservation.Token)
		if errors.Is(err, ErrConflict) {
			metrics.IncDeployConflict()
			return Outcome{}, fmt.Errorf("%w: a concurrent deployment superseded this one", ErrConflict)
		}
		return Outcome{}, err
	}

	if err := s.Credits.Commit(ctx, reservation.Token); err != nil {
		// Deployment is live and recorded; a stuck hold is an ops
		// problem, not a user-facing failure.
		telemetry.Error("deployments.commit_failed", map[string]any{
			"reservation": reservation.Token,
			"session_id":  sessionID,
			"error":       err.Error(),
		})
	}

	metrics.IncDeploySucceeded()
	telemetry.Info("deployments.succeeded", map[string]any{
		"session_id":    sessionID,
		"deployment_id": dep.ID,
		"platform":      platform,
		"live_url":      dep.LiveURL,
		"redeploy":      redeploy,
	})
	return Outcome{Deployment: dep, DNS: result.DNS}, nil
}

// fail releases the hold and records a zero-cost failed attempt before
// surfacing the driver error.
func (s *Service) fail(ctx context.Context, token string, session sessions.GenerationSession, platform, repoName, customDomain string, derr error) error {
	metrics.IncDeployFailed()
	if err := s.Credits.Release(ctx, token); err != nil {
		telemetry.Error("deployments.release_failed", map[string]any{
			"reservation": token,
			"error":       err.Error(),
		})
	}

	attempt := Deployment{
		ID:           uuid.NewString(),
		SessionID:    session.ID,
		UserID:       session.UserID,
		Platform:     platform,
		Status:       StatusFailed,
		RepoName:     repoName,
		CustomDomain: customDomain,
		DeployedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, attempt); err != nil {
		telemetry.Error("deployments.record_failed", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	telemetry.Error("deployments.failed", map[string]any{
		"session_id": session.ID,
		"platform":   platform,
		"error":      derr.Error(),
	})

	if errors.Is(derr, platformlinks.ErrNotLinked) {
		return derr
	}
	if errors.Is(derr, drivers.ErrPlatform) {
		return derr
	}
	if errors.Is(derr, context.DeadlineExceeded) {
		return &drivers.PlatformError{Platform: platform, Op: "deploy", Err: derr}
	}
	return derr
}

func (s *Service) loadBundle(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ListSessions returns the user's live sessions with their deployment
// history and per-session credit totals, newest first.
func (s *Service) ListSessions(ctx context.Context, userID string) ([]SessionSummary, error) {
	list, err := s.Sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, 0, len(list))
	for _, session := range list {
		deps, err := s.Repo.ListBySession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		total, err := s.Repo.TotalSpent(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SessionSummary{Session: session, Deployments: deps, TotalSpent: total})
	}
	return out, nil
}

// DeleteSession soft-deletes the session and its deployment rows, then
// makes best-effort teardown calls against each remote target. Local
// deletion is complete before any remote call starts, so remote
// failures degrade to warnings.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) (DeleteOutcome, error) {
	if _, err := s.Sessions.GetByID(ctx, userID, sessionID); err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return DeleteOutcome{}, ErrNotFound
		}
		return DeleteOutcome{}, err
	}

	deps, err := s.Repo.ListBySession(ctx, sessionID)
	if err != nil {
		return DeleteOutcome{}, err
	}

	if err := s.Sessions.MarkDeleted(ctx, userID, sessionID); err != nil {
		return DeleteOutcome{}, err
	}
	if err := s.Repo.MarkDeleted(ctx, sessionID); err != nil {
		return DeleteOutcome{}, err
	}

	outcome := DeleteOutcome{RemoteRemoved: true}
	seen := make(map[string]bool)
	for _, dep := range deps {
		if dep.RemoteRef == "" || dep.Status == StatusFailed {
			continue
		}
		key := dep.Platform + "\x00" + dep.RemoteRef
		if seen[key] {
			continue
		}
		seen[key] = true

		driver, err := s.Registry.Get(dep.Platform)
		if err != nil {
			continue
		}
		cctx, cancel := context.WithTimeout(ctx, s.Timeout)
		err = driver.Delete(cctx, userID, dep.RemoteRef)
		cancel()
		if err != nil {
			outcome.RemoteRemoved = false
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("failed to remove %s target %s: %v", dep.Platform, dep.RemoteRef, err))
			telemetry.Error("deployments.teardown_failed", map[string]any{
				"session_id": sessionID,
				"platform":   dep.Platform,
				"remote_ref": dep.RemoteRef,
				"error":      err.Error(),
			})
		}
	}

	telemetry.Info("deployments.session_deleted", map[string]any{
		"session_id": sessionID,
		"warnings":   strings.Join(outcome.Warnings, "; "),
	})
	return outcome, nil
}
