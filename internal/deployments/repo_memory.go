package deployments

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores deployment history in memory and is safe for
// concurrent use.
type MemoryRepo struct {
	mu        sync.Mutex
	bySession map[string][]Deployment
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bySession: make(map[string][]Deployment)}
}

// Create appends an attempt row.
func (r *MemoryRepo) Create(ctx context.Context, dep Deployment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySession[dep.SessionID] = append(r.bySession[dep.SessionID], dep)
	return nil
}

// GetActive returns the active deployment of (session, platform).
func (r *MemoryRepo) GetActive(ctx context.Context, sessionID, platform string) (Deployment, error) {
	if err := ctx.Err(); err != nil {
		return Deployment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dep := range r.bySession[sessionID] {
		if dep.Platform == platform && dep.Status == StatusActive {
			return dep, nil
		}
	}
	return Deployment{}, ErrNotFound
}

// ActivateSuperseding atomically retires the prior active row and
// inserts the new one.
func (r *MemoryRepo) ActivateSuperseding(ctx context.Context, dep Deployment, priorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	deps := r.bySession[dep.SessionID]

	if priorID != "" {
		replaced := false
		for i := range deps {
			if deps[i].ID == priorID {
				if deps[i].Status != StatusActive {
					return ErrConflict
				}
				now := time.Now().UTC()
				deps[i].Status = StatusReplaced
				deps[i].ReplacedAt = &now
				replaced = true
				break
			}
		}
		if !replaced {
			return ErrConflict
		}
	}

	for i := range deps {
		if deps[i].Platform == dep.Platform && deps[i].Status == StatusActive {
			return ErrConflict
		}
	}

	r.bySession[dep.SessionID] = append(deps, dep)
	return nil
}

// ListBySession returns the session's history, newest first.
func (r *MemoryRepo) ListBySession(ctx context.Context, sessionID string) ([]Deployment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Deployment, len(r.bySession[sessionID]))
	copy(out, r.bySession[sessionID])
	sort.Slice(out, func(i, j int) bool { return out[i].DeployedAt.After(out[j].DeployedAt) })
	return out, nil
}

// TotalSpent sums credits spent across the session's history.
func (r *MemoryRepo) TotalSpent(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, dep := range r.bySession[sessionID] {
		total += dep.CreditsSpent
	}
	return total, nil
}

// MarkDeleted flips active and replaced rows of the session to deleted.
func (r *MemoryRepo) MarkDeleted(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deps := r.bySession[sessionID]
	for i := range deps {
		if deps[i].Status == StatusActive || deps[i].Status == StatusReplaced {
			deps[i].Status = StatusDeleted
		}
	}
	r.bySession[sessionID] = deps
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
