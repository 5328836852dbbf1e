package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/subtrack/internal/domain"
	"github.com/smallbiznis/subtrack/internal/domain/gmail"
)

func TestMemoryStoreArtifactLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "sess-1", gmail.AuthorizationArtifact{Code: "abc123", State: "xyz"}, time.Minute))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "abc123", got.Code)
	require.Equal(t, "xyz", got.State)

	other, err := store.Load(ctx, "sess-2")
	require.NoError(t, err)
	require.Nil(t, other)

	now = now.Add(2 * time.Minute)
	expired, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Nil(t, expired)
}

func TestMemoryStoreRejectsEmptyCode(t *testing.T) {
	store := NewMemoryStore()
	require.Error(t, store.Save(context.Background(), "sess", gmail.AuthorizationArtifact{}, time.Minute))
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "abc"}, 0))
	require.NoError(t, store.Clear(ctx, "sess"))

	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStoreReminders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	settings, err := store.GetReminders(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultReminderSettings(), settings)

	settings.Email = true
	settings.OneDay = false
	require.NoError(t, store.PutReminders(ctx, "sess", settings))

	got, err := store.GetReminders(ctx, "sess")
	require.NoError(t, err)
	require.True(t, got.Email)
	require.False(t, got.OneDay)
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "abc"}, time.Minute))

	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	got.Code = "mutated"

	again, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, "abc", again.Code)
}

func TestMemoryStoreEvictsStaleReminders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	settings := domain.DefaultReminderSettings()
	settings.Email = true
	require.NoError(t, store.PutReminders(ctx, "old", settings))

	now = now.Add(ReminderRetention - time.Hour)
	got, err := store.GetReminders(ctx, "old")
	require.NoError(t, err)
	require.True(t, got.Email)

	now = now.Add(2 * time.Hour)
	got, err = store.GetReminders(ctx, "old")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultReminderSettings(), got)

	require.NoError(t, store.PutReminders(ctx, "new", settings))
	store.mu.RLock()
	defer store.mu.RUnlock()
	require.NotContains(t, store.reminders, "old")
	require.Contains(t, store.reminders, "new")
}

func TestArtifactKeys(t *testing.T) {
	keys := artifactKeys(" sess-1 ")
	require.Equal(t, "subtrack:session:sess-1:gmail_auth_code", keys.code)
	require.Equal(t, "subtrack:session:sess-1:gmail_auth_state", keys.state)
	require.Equal(t, "subtrack:session:sess-1:gmail_auth_created_at", keys.createdAt)
}
