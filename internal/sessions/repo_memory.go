package sessions

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores generation sessions in memory and is safe for
// concurrent use.
type MemoryRepo struct {
	mu            sync.Mutex
	byID          map[string]GenerationSession
	byFingerprint map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:          make(map[string]GenerationSession),
		byFingerprint: make(map[string]string),
	}
}

func fpKey(userID, fingerprint string) string {
	return userID + "\x00" + fingerprint
}

// CreateIfAbsent inserts the session unless a live session with the
// same (user, fingerprint) exists. Check and insert happen under one
// lock so racing identical requests get the same session back.
func (r *MemoryRepo) CreateIfAbsent(ctx context.Context, session GenerationSession) (GenerationSession, bool, error) {
	if err := ctx.Err(); err != nil {
		return GenerationSession{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fpKey(session.UserID, session.Fingerprint)
	if id, ok := r.byFingerprint[key]; ok {
		if existing, ok := r.byID[id]; ok && existing.DeletedAt == nil {
			return existing, false, nil
		}
	}
	r.byID[session.ID] = session
	r.byFingerprint[key] = session.ID
	return session, true, nil
}

// Create inserts unconditionally. The fingerprint index moves to the
// new session so later unforced requests reuse the freshest artifact.
func (r *MemoryRepo) Create(ctx context.Context, session GenerationSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[session.ID] = session
	r.byFingerprint[fpKey(session.UserID, session.Fingerprint)] = session.ID
	return nil
}

// GetByID returns a live session by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, sessionID string) (GenerationSession, error) {
	if err := ctx.Err(); err != nil {
		return GenerationSession{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[sessionID]
	if !ok || session.DeletedAt != nil {
		return GenerationSession{}, ErrNotFound
	}
	if session.UserID != userID {
		return GenerationSession{}, ErrNotFound
	}
	return session, nil
}

// GetByFingerprint returns the live session for (user, fingerprint).
func (r *MemoryRepo) GetByFingerprint(ctx context.Context, userID, fingerprint string) (GenerationSession, error) {
	if err := ctx.Err(); err != nil {
		return GenerationSession{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byFingerprint[fpKey(userID, fingerprint)]
	if !ok {
		return GenerationSession{}, ErrNotFound
	}
	session, ok := r.byID[id]
	if !ok || session.DeletedAt != nil {
		return GenerationSession{}, ErrNotFound
	}
	return session, nil
}

// ListByUser returns the user's live sessions, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]GenerationSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []GenerationSession
	for _, s := range r.byID {
		if s.UserID == userID && s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkDeleted soft-deletes the session.
func (r *MemoryRepo) MarkDeleted(ctx context.Context, userID, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[sessionID]
	if !ok || session.UserID != userID || session.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	session.DeletedAt = &now
	r.byID[sessionID] = session
	delete(r.byFingerprint, fpKey(userID, session.Fingerprint))
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
