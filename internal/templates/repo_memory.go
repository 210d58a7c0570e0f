package templates

import (
	"context"
	"sync"
)

// MemoryRepo stores templates in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	byID     map[string]Template
	entitled map[string]map[string]bool
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Template),
		entitled: make(map[string]map[string]bool),
	}
}

// Put stores a template, used by seeding and tests.
func (r *MemoryRepo) Put(ctx context.Context, tpl Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[tpl.ID] = tpl
	return nil
}

// Grant records an entitlement, used by seeding and tests.
func (r *MemoryRepo) Grant(ctx context.Context, userID, templateID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entitled[userID] == nil {
		r.entitled[userID] = make(map[string]bool)
	}
	r.entitled[userID][templateID] = true
	return nil
}

// GetByID returns a template by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, templateID string) (Template, error) {
	if err := ctx.Err(); err != nil {
		return Template{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.byID[templateID]
	if !ok {
		return Template{}, ErrNotFound
	}
	return tpl, nil
}

// IsEntitled reports whether the user may generate with the template.
// Non-premium templates are open to everyone.
func (r *MemoryRepo) IsEntitled(ctx context.Context, userID, templateID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.byID[templateID]
	if !ok {
		return false, ErrNotFound
	}
	if !tpl.Premium {
		return true, nil
	}
	return r.entitled[userID][templateID], nil
}
