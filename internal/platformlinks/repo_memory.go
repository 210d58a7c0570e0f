package platformlinks

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores platform links in memory and is safe for
// concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byUser map[string]map[string]PlatformLink
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byUser: make(map[string]map[string]PlatformLink)}
}

// Get returns the link for a user and platform.
func (r *MemoryRepo) Get(ctx context.Context, userID, platform string) (PlatformLink, error) {
	if err := ctx.Err(); err != nil {
		return PlatformLink{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.byUser[userID][platform]
	if !ok {
		return PlatformLink{}, ErrNotLinked
	}
	return link, nil
}

// ListByUser returns all links for a user ordered by platform name.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]PlatformLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	links := make([]PlatformLink, 0, len(r.byUser[userID]))
	for _, link := range r.byUser[userID] {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Platform < links[j].Platform })
	return links, nil
}

// Upsert stores or replaces a link.
func (r *MemoryRepo) Upsert(ctx context.Context, link PlatformLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[link.UserID] == nil {
		r.byUser[link.UserID] = make(map[string]PlatformLink)
	}
	r.byUser[link.UserID][link.Platform] = link
	return nil
}
