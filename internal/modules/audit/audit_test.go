package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildpilot/internal/storage"

	"go.uber.org/zap"
)

type failingStore struct{}

func (failingStore) AddModerationLog(context.Context, storage.ModerationLog) error {
	return errors.New("db down")
}

func TestLogPersistsAndNotifies(t *testing.T) {
	store := storage.NewMemory()
	logger := NewLogger(store, zap.NewNop())

	var notified []storage.ModerationLog
	logger.SetNotifier(func(ctx context.Context, entry storage.ModerationLog) {
		notified = append(notified, entry)
	})

	entry, err := logger.Log(context.Background(), "g1", "warn", "bot", "u1", "Auto-moderation: Spam detected")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected generated id")
	}
	if len(notified) != 1 || notified[0].ID != entry.ID {
		t.Fatalf("expected notifier called once")
	}

	logs, _ := store.ListModerationLogs(context.Background(), "g1", time.Time{})
	if len(logs) != 1 || logs[0].Reason != "Auto-moderation: Spam detected" {
		t.Fatalf("unexpected stored logs %+v", logs)
	}
}

func TestLogStoreFailureStillNotifies(t *testing.T) {
	logger := NewLogger(failingStore{}, zap.NewNop())
	called := false
	logger.SetNotifier(func(context.Context, storage.ModerationLog) { called = true })

	if _, err := logger.Log(context.Background(), "g1", "ban", "bot", "u1", "reason"); err == nil {
		t.Fatalf("expected store error")
	}
	if !called {
		t.Fatalf("notifier should run even when persisting fails")
	}
}
