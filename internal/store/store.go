package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/astroline/consult-agent-go/internal/audit"
	"github.com/astroline/consult-agent-go/internal/model"
	"github.com/astroline/consult-agent-go/internal/repository"
)

// Store is the durable record of the one active live interaction. Writes
// are write-through: memory first, then the repository, so a crash right
// after Start still leaves a restorable record. Storage failures are
// logged and do not abort the in-memory transition; the in-memory view
// stays authoritative for the life of the process.
//
// Start always fully overwrites any prior session. Conflict resolution is
// the coordinator's job before it calls Start.
type Store struct {
	repo    repository.SessionStateRepository
	ownerID string

	mu      sync.RWMutex
	current *model.ActiveSession
}

func New(repo repository.SessionStateRepository, ownerID string) *Store {
	return &Store{repo: repo, ownerID: ownerID}
}

// Restore loads the persisted session into memory. Called exactly once at
// process start, before any other component acts on session state.
func (s *Store) Restore(ctx context.Context) *model.ActiveSession {
	row, err := s.repo.Find(ctx, s.ownerID)
	if err != nil {
		log.Error().Err(err).Msg("session store: restore failed")
		return nil
	}
	if row == nil {
		return nil
	}

	session, err := row.Session()
	if err != nil {
		log.Error().Err(err).Msg("session store: discarding unreadable persisted session")
		if delErr := s.repo.Delete(ctx, s.ownerID); delErr != nil {
			log.Warn().Err(delErr).Msg("session store: failed to delete unreadable session row")
		}
		return nil
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	audit.Log(audit.Event{
		Type:      audit.EventSessionRestored,
		SessionID: session.Params.SessionID,
	})
	log.Info().
		Str("type", string(session.Type)).
		Str("sessionId", session.Params.SessionID).
		Msg("active session restored")

	return session
}

// Start records a new active session, overwriting any prior one.
func (s *Store) Start(ctx context.Context, sessionType model.SessionType, params model.SessionParams) {
	session := &model.ActiveSession{Type: sessionType, Params: params}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	raw, err := json.Marshal(params)
	if err != nil {
		log.Error().Err(err).Msg("session store: marshal params")
		return
	}
	if err := s.repo.Upsert(ctx, s.ownerID, sessionType, raw); err != nil {
		log.Error().Err(err).
			Str("sessionId", params.SessionID).
			Msg("session store: persist failed, session is memory-only")
		return
	}

	log.Info().
		Str("type", string(sessionType)).
		Str("sessionId", params.SessionID).
		Msg("active session started")
}

// End clears the active session from memory and durable storage.
func (s *Store) End(ctx context.Context) {
	s.mu.Lock()
	ended := s.current
	s.current = nil
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, s.ownerID); err != nil {
		log.Error().Err(err).Msg("session store: clear persisted session failed")
	}

	if ended != nil {
		log.Info().
			Str("type", string(ended.Type)).
			Str("sessionId", ended.Params.SessionID).
			Msg("active session ended")
	}
}

// Current returns the in-memory active session, or nil.
func (s *Store) Current() *model.ActiveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
