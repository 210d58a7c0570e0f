package platformlinks

import (
	"context"
	"errors"
	"time"
)

// Service answers credential questions for the deployment core.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// IsLinked reports whether the user has a credential for the platform.
func (s *Service) IsLinked(ctx context.Context, userID, platform string) (bool, error) {
	_, err := s.Repo.Get(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, ErrNotLinked) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Token returns the stored access token for the platform.
func (s *Service) Token(ctx context.Context, userID, platform string) (string, error) {
	link, err := s.Repo.Get(ctx, userID, platform)
	if err != nil {
		return "", err
	}
	return link.AccessToken, nil
}

// List returns the user's linked platforms.
func (s *Service) List(ctx context.Context, userID string) ([]PlatformLink, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// Link stores a credential. Exposed on dev routes; production linking
// happens through the account OAuth flow outside this service.
func (s *Service) Link(ctx context.Context, userID, platform, token string) error {
	if !KnownPlatform(platform) {
		return errors.New("unknown platform")
	}
	if token == "" {
		return errors.New("token is required")
	}
	return s.Repo.Upsert(ctx, PlatformLink{
		UserID:      userID,
		Platform:    platform,
		AccessToken: token,
		LinkedAt:    time.Now().UTC(),
	})
}
