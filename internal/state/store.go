package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/memohub/memo-gateway/internal/conversation"
)

// DefaultProject is the project every user starts in. It always exists
// conceptually and cannot be deleted.
const DefaultProject = "default"

// VoiceMode values. "auto" is the lazy default and counts as enabled.
const (
	VoiceAuto = "auto"
	VoiceOn   = "on"
	VoiceOff  = "off"
)

// UserSettings holds per-user preferences.
type UserSettings struct {
	VoiceMode string
}

// VoiceEnabled reports whether voice replies are on for these settings.
func (s UserSettings) VoiceEnabled() bool {
	return s.VoiceMode != VoiceOff
}

// Stats is a point-in-time snapshot of the store.
type Stats struct {
	Histories int
	Turns     int
	Users     int
}

// Store holds all volatile bot state: conversation histories keyed by
// scope key, per-user settings, and per-user active projects. Everything
// lives in memory for the process lifetime; nothing is persisted.
type Store struct {
	mu        sync.RWMutex
	histories map[string][]conversation.Turn
	settings  map[int64]UserSettings
	projects  map[int64]string

	// maxTurns bounds each history's length when > 0; the oldest turns
	// are evicted in pairs after append. 0 keeps histories unbounded.
	maxTurns int
}

// NewStore creates an empty store. maxTurns of 0 disables eviction.
func NewStore(maxTurns int) *Store {
	return &Store{
		histories: make(map[string][]conversation.Turn),
		settings:  make(map[int64]UserSettings),
		projects:  make(map[int64]string),
		maxTurns:  maxTurns,
	}
}

// ScopeKey derives the history partition key for an inbound message.
// Topic (thread) messages get their own partition independent of the
// user's project selection; everything else is scoped user x project.
func (s *Store) ScopeKey(chatID, userID int64, isThread bool, threadID int) string {
	if isThread {
		return ThreadKey(chatID, threadID)
	}
	return UserKey(userID, s.ActiveProject(userID))
}

// ThreadKey builds a thread-scoped key.
func ThreadKey(chatID int64, threadID int) string {
	return fmt.Sprintf("topic_%d_%d", chatID, threadID)
}

// UserKey builds a user x project scoped key.
func UserKey(userID int64, project string) string {
	return fmt.Sprintf("user_%d_%s", userID, project)
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user_%d_", userID)
}

// Settings returns the user's settings, creating the default record on
// first access.
func (s *Store) Settings(userID int64) UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		st = UserSettings{VoiceMode: VoiceAuto}
		s.settings[userID] = st
	}
	return st
}

// ToggleVoice flips voice output for the user. "auto" counts as enabled
// and toggles to off.
func (s *Store) ToggleVoice(userID int64) UserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		st = UserSettings{VoiceMode: VoiceAuto}
	}
	if st.VoiceMode == VoiceOff {
		st.VoiceMode = VoiceOn
	} else {
		st.VoiceMode = VoiceOff
	}
	s.settings[userID] = st
	return st
}

// ActiveProject returns the user's current project, defaulting to
// DefaultProject when none was ever selected.
func (s *Store) ActiveProject(userID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.projects[userID]; ok {
		return p
	}
	return DefaultProject
}

// SwitchProject makes name the user's active project, creating an empty
// history for it if none exists yet. Idempotent.
func (s *Store) SwitchProject(userID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[userID] = name
	key := UserKey(userID, name)
	if _, ok := s.histories[key]; !ok {
		s.histories[key] = []conversation.Turn{}
	}
}

// DeleteProject removes the project's history. Deleting the active
// project resets the user to DefaultProject. Deleting DefaultProject is
// rejected.
func (s *Store) DeleteProject(userID int64, name string) bool {
	if name == DefaultProject {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, UserKey(userID, name))
	if s.projects[userID] == name {
		s.projects[userID] = DefaultProject
	}
	return true
}

// ListProjects returns the user's project names, sorted. DefaultProject
// is always present; the rest are recovered by scanning stored scope
// keys with the user's prefix, so the scan grows with total history
// count.
func (s *Store) ListProjects(userID int64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := map[string]bool{DefaultProject: true}
	prefix := userPrefix(userID)
	for key := range s.histories {
		if strings.HasPrefix(key, prefix) {
			names[strings.TrimPrefix(key, prefix)] = true
		}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Append adds a turn to the history at key, creating the history on
// first reference. When a retention cap is configured, the oldest turns
// are evicted in pairs to keep user/model turns aligned.
func (s *Store) Append(key string, turn conversation.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.histories[key], turn)
	if s.maxTurns > 0 {
		for len(h) > s.maxTurns {
			drop := 2
			if len(h)-s.maxTurns < 2 {
				drop = len(h) - s.maxTurns
			}
			h = h[drop:]
		}
	}
	s.histories[key] = h
}

// TruncateLast removes the most recent turn at key, if any. Used to roll
// back a user turn after a failed backend call.
func (s *Store) TruncateLast(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.histories[key]
	if len(h) > 0 {
		s.histories[key] = h[:len(h)-1]
	}
}

// Clear resets the history at key to empty.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[key] = []conversation.Turn{}
}

// History returns a copy of the turns stored at key.
func (s *Store) History(key string) []conversation.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.histories[key]
	out := make([]conversation.Turn, len(h))
	copy(out, h)
	return out
}

// HistoryLen returns the number of turns stored at key.
func (s *Store) HistoryLen(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories[key])
}

// Stats snapshots the store for the periodic stats job.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := 0
	for _, h := range s.histories {
		turns += len(h)
	}
	return Stats{
		Histories: len(s.histories),
		Turns:     turns,
		Users:     len(s.settings),
	}
}
