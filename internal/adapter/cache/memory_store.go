package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/subtrack/internal/domain"
	"github.com/smallbiznis/subtrack/internal/domain/gmail"
	"github.com/smallbiznis/subtrack/internal/repository"
)

// ReminderRetention is how long untouched reminder settings are kept. It
// matches the session cookie lifetime, after which the session id is gone.
const ReminderRetention = 30 * 24 * time.Hour

// MemoryStore keeps artifacts and reminder settings in process memory.
// Entries vanish on restart, which matches the lifetime of browser session storage.
type MemoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	artifacts map[string]memoryArtifact
	reminders map[string]memoryReminders
}

type memoryArtifact struct {
	artifact  gmail.AuthorizationArtifact
	expiresAt time.Time
}

type memoryReminders struct {
	settings  domain.ReminderSettings
	touchedAt time.Time
}

var (
	_ repository.ArtifactStore = (*MemoryStore)(nil)
	_ repository.SettingsStore = (*MemoryStore)(nil)
)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		artifacts: make(map[string]memoryArtifact),
		reminders: make(map[string]memoryReminders),
	}
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, artifact gmail.AuthorizationArtifact, ttl time.Duration) error {
	if strings.TrimSpace(artifact.Code) == "" {
		return fmt.Errorf("save artifact: empty code")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.evictLocked(now)
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	m.artifacts[sessionID] = memoryArtifact{artifact: artifact, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*gmail.AuthorizationArtifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.artifacts[sessionID]
	if !ok || entry.expired(m.now()) {
		return nil, nil
	}
	artifact := entry.artifact
	return &artifact, nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.artifacts, sessionID)
	return nil
}

func (m *MemoryStore) GetReminders(_ context.Context, sessionID string) (domain.ReminderSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if entry, ok := m.reminders[sessionID]; ok && !entry.stale(m.now()) {
		return entry.settings, nil
	}
	return domain.DefaultReminderSettings(), nil
}

func (m *MemoryStore) PutReminders(_ context.Context, sessionID string, settings domain.ReminderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.evictLocked(now)
	m.reminders[sessionID] = memoryReminders{settings: settings, touchedAt: now}
	return nil
}

func (m *MemoryStore) evictLocked(now time.Time) {
	for key, entry := range m.artifacts {
		if entry.expired(now) {
			delete(m.artifacts, key)
		}
	}
	for key, entry := range m.reminders {
		if entry.stale(now) {
			delete(m.reminders, key)
		}
	}
}

func (e memoryArtifact) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (e memoryReminders) stale(now time.Time) bool {
	return now.Sub(e.touchedAt) > ReminderRetention
}
