// Package editor keeps one blueprint editor per project and serializes the
// concurrent HTTP requests that edit it.
package editor

import (
	"errors"
	"sync"

	"wrapreel/internal/blueprint"
	"wrapreel/internal/model"
	"wrapreel/internal/store"

	"go.uber.org/zap"
)

// Store is the persistence a registry needs. *store.MemoryStore satisfies it.
type Store interface {
	GetBlueprint(projectID string) (model.BlueprintDoc, error)
	SaveBlueprint(projectID string, bp blueprint.SceneBlueprint, v blueprint.Validation) (model.BlueprintDoc, error)
	DeleteBlueprint(projectID string)
}

// Snapshot is the editor state after an operation.
type Snapshot struct {
	Blueprint  *blueprint.SceneBlueprint `json:"blueprint"`
	Validation blueprint.Validation      `json:"validation"`
	Revision   int64                     `json:"revision"`
}

type Registry struct {
	store Store
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(st Store, logger *zap.Logger) *Registry {
	return &Registry{
		store:    st,
		log:      logger,
		sessions: map[string]*Session{},
	}
}

// Open returns the project's session, seeding it from the stored blueprint
// the first time.
func (r *Registry) Open(projectID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[projectID]; ok {
		return s, nil
	}

	s := &Session{projectID: projectID, ed: blueprint.NewEditor()}
	doc, err := r.store.GetBlueprint(projectID)
	switch {
	case err == nil:
		s.ed.Replace(doc.Blueprint)
		s.revision = doc.Revision
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, err
	}

	// Registered after seeding so loading does not write back.
	s.ed.OnChange(func(bp *blueprint.SceneBlueprint, v blueprint.Validation) {
		if bp == nil {
			r.store.DeleteBlueprint(projectID)
			s.revision = 0
			return
		}
		doc, err := r.store.SaveBlueprint(projectID, *bp, v)
		if err != nil {
			r.log.Error("persist blueprint failed", zap.String("project_id", projectID), zap.Error(err))
			s.saveErr = err
			// The edit is applied in memory only. Forget the session so the
			// next Open reloads what the store actually holds.
			r.evict(projectID, s)
			return
		}
		s.revision = doc.Revision
	})
	r.sessions[projectID] = s
	return s, nil
}

// Close drops the project's session, e.g. when the project is deleted.
func (r *Registry) Close(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, projectID)
}

func (r *Registry) evict(projectID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[projectID] == s {
		delete(r.sessions, projectID)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type Session struct {
	projectID string

	mu       sync.Mutex
	ed       *blueprint.Editor
	revision int64
	saveErr  error
}

// Do runs fn with exclusive access to the editor and returns the resulting
// state. A persistence failure during fn is returned after fn's own error.
func (s *Session) Do(fn func(ed *blueprint.Editor) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = nil
	err := fn(s.ed)
	if err == nil {
		err = s.saveErr
	}
	return s.snapshot(), err
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{Validation: s.ed.Validation(), Revision: s.revision}
	if bp, ok := s.ed.Current(); ok {
		snap.Blueprint = &bp
	}
	return snap
}
