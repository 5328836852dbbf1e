package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/subtrack/internal/domain"
	"github.com/smallbiznis/subtrack/internal/domain/gmail"
)

// ArtifactStore keeps authorization artifacts for a browser session.
//
// Artifacts are written when the backend cannot take a code at callback time
// and cleared once a later exchange succeeds. Nothing replays them yet.
type ArtifactStore interface {
	Save(ctx context.Context, sessionID string, artifact gmail.AuthorizationArtifact, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (*gmail.AuthorizationArtifact, error)
	Clear(ctx context.Context, sessionID string) error
}

// SettingsStore holds per-session reminder preferences.
type SettingsStore interface {
	GetReminders(ctx context.Context, sessionID string) (domain.ReminderSettings, error)
	PutReminders(ctx context.Context, sessionID string, settings domain.ReminderSettings) error
}
