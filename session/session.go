package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session scopes a single script run's artifacts and tenancy. When the
// kernel runs with `--sessions`, scripts create and look up sessions
// through the Lua `Session` global (`Session.create`, `Session.get`); a
// session handle offers `create_artifact`, `list_artifacts` and `close`.
type Session struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Registry tracks active sessions and scopes artifact operations to them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	manager  *Manager
}

// NewRegistry builds a session registry backed by the given artifact manager.
func NewRegistry(manager *Manager) *Registry {
	return &Registry{sessions: make(map[string]*Session), manager: manager}
}

// Create starts a new session.
func (r *Registry) Create(tenantID string) *Session {
	s := &Session{ID: uuid.New().String(), TenantID: tenantID, CreatedAt: time.Now()}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get retrieves a session by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Close marks a session closed and cleans up its artifacts.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("session: unknown session %q", id)
	}
	now := time.Now()
	s.ClosedAt = &now
	r.mu.Unlock()

	artifacts, err := r.manager.List(ctx, ArtifactQuery{SessionID: id})
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := r.manager.Archive(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// CleanupScope deletes every artifact listed under sessionID, whatever its
// status, and drops the session from the registry. It returns how many
// artifacts were deleted; artifacts whose delete fails are skipped.
func (r *Registry) CleanupScope(ctx context.Context, sessionID string) (int, error) {
	artifacts, err := r.manager.List(ctx, ArtifactQuery{SessionID: sessionID})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, a := range artifacts {
		if err := r.manager.Delete(ctx, a.ID); err != nil {
			continue
		}
		deleted++
	}
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return deleted, nil
}
