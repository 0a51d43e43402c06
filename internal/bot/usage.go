package bot

import (
	"context"
	"errors"

	"guildpilot/internal/analytics"
	"guildpilot/internal/storage"
)

// usageRecorder bumps the author's command counter and writes a
// command_used analytics event.
type usageRecorder struct {
	users     storage.UserStore
	analytics *analytics.Service
}

func (u *usageRecorder) RecordCommand(ctx context.Context, guildID, userID, username, command string) error {
	var errs []error
	if guildID != "" && u.users != nil {
		ref := storage.UserRef{GuildID: guildID, UserID: userID, Username: username}
		if err := u.users.IncrementStats(ctx, ref, 0, 1); err != nil {
			errs = append(errs, err)
		}
	}
	if u.analytics != nil {
		if err := u.analytics.Record(ctx, guildID, userID, storage.EventCommandUsed, command); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
