package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"Tapflow/pkg/logger"
	"Tapflow/pkg/types"
)

// Key layout
const (
	SessionListKey   = "session_list"
	SessionKeyPrefix = "session_"
)

// SessionKey returns the key holding session id
func SessionKey(id string) string {
	return SessionKeyPrefix + id
}

// SessionSummary is the listing view of a session
type SessionSummary struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	StartTime   string           `json:"startTime"`
	ActionCount int              `json:"actionCount"`
	DurationMs  int64            `json:"durationMs"`
	DeviceInfo  types.DeviceInfo `json:"deviceInfo"`
}

// Sessions stores recording sessions on a KV. The id list is kept in
// insertion order, newest last.
type Sessions struct {
	kv KV
	mu sync.Mutex
}

// NewSessions creates a repository over kv
func NewSessions(kv KV) *Sessions {
	return &Sessions{kv: kv}
}

// IDs returns the stored session ids, newest last
func (s *Sessions) IDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids()
}

func (s *Sessions) ids() ([]string, error) {
	data, err := s.kv.Get(SessionListKey)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", SessionListKey, err)
	}
	return ids, nil
}

func (s *Sessions) writeIDs(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.kv.Set(SessionListKey, data)
}

// Save writes session and appends its id to the list when new
func (s *Sessions) Save(session *types.RecordingSession) error {
	if session == nil || session.ID == "" {
		return errors.New("session has no id")
	}

	timer := logger.StartOperation("store", "save_session").AddDetail("id", session.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(session)
	if err != nil {
		timer.EndWithError(err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.kv.Set(SessionKey(session.ID), data); err != nil {
		timer.EndWithError(err)
		return err
	}

	ids, err := s.ids()
	if err != nil {
		timer.EndWithError(err)
		return err
	}
	if !slices.Contains(ids, session.ID) {
		if err := s.writeIDs(append(ids, session.ID)); err != nil {
			timer.EndWithError(err)
			return err
		}
	}

	timer.AddDetail("actions", len(session.Actions)).End()
	return nil
}

// Load reads one session
func (s *Sessions) Load(id string) (*types.RecordingSession, error) {
	data, err := s.kv.Get(SessionKey(id))
	if err != nil {
		return nil, err
	}
	var session types.RecordingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return &session, nil
}

// List loads every listed session, newest last. Ids whose record is missing
// are skipped.
func (s *Sessions) List() ([]*types.RecordingSession, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	sessions := make([]*types.RecordingSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.Load(id)
		if errors.Is(err, ErrNotFound) {
			logger.LogWarn("store").Str("id", id).Msg("Listed session has no record")
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// Summaries lists sessions without their actions
func (s *Sessions) Summaries() ([]SessionSummary, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, Summarize(session))
	}
	return out, nil
}

// Summarize builds the listing view of session
func Summarize(session *types.RecordingSession) SessionSummary {
	return SessionSummary{
		ID:          session.ID,
		Name:        session.Name,
		StartTime:   session.StartTime.Format("2006-01-02 15:04:05"),
		ActionCount: len(session.Actions),
		DurationMs:  session.Duration().Milliseconds(),
		DeviceInfo:  session.DeviceInfo,
	}
}

// Rename sets the post-hoc name of a stored session
func (s *Sessions) Rename(id, name string) (*types.RecordingSession, error) {
	session, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	session.Name = name
	if err := s.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes the session and its list entry
func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.ids()
	if err != nil {
		return err
	}
	idx := slices.Index(ids, id)
	if idx < 0 {
		if _, err := s.kv.Get(SessionKey(id)); err != nil {
			return err
		}
	} else {
		if err := s.writeIDs(slices.Delete(ids, idx, idx+1)); err != nil {
			return err
		}
	}

	if err := s.kv.Delete(SessionKey(id)); err != nil {
		return err
	}
	logger.LogInfo("store").Str("id", id).Msg("Session deleted")
	return nil
}
