package audit

import (
	"context"
	"time"

	"guildpilot/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	AddModerationLog(ctx context.Context, entry storage.ModerationLog) error
}

// Logger records moderation actions to the store, the process log and an
// optional notifier (the guild's log channel).
type Logger struct {
	store  Store
	logger *zap.Logger
	notify func(context.Context, storage.ModerationLog)
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.ModerationLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, guildID, action, moderatorID, targetID, reason string) (storage.ModerationLog, error) {
	entry := storage.ModerationLog{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		Action:      action,
		ModeratorID: moderatorID,
		TargetID:    targetID,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	var err error
	if l.store != nil {
		err = l.store.AddModerationLog(ctx, entry)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("moderation",
		zap.String("guild_id", guildID),
		zap.String("action", action),
		zap.String("moderator_id", moderatorID),
		zap.String("target_id", targetID),
		zap.String("reason", reason),
	)
	return entry, err
}
