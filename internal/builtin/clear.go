package builtin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"guildpilot/internal/commands"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxClear           = 100
	bulkDeleteMaxAge   = 14 * 24 * time.Hour
	clearNoticeTimeout = 5 * time.Second
)

func (s *Set) clear() commands.Descriptor {
	return commands.Descriptor{
		Name:        "clear",
		Aliases:     []string{"purge", "delete"},
		Description: "Clears a specified number of messages",
		Usage:       "clear <1-100>",
		Category:    "Moderation",
		Permissions: discordgo.PermissionManageMessages,
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			amount := 0
			if len(inv.Args) > 0 {
				amount, _ = strconv.Atoi(inv.Args[0])
			}
			if amount < 1 || amount > maxClear {
				return inv.Reply(ctx, "❌ Please provide a number between 1 and 100!")
			}

			deleted, err := s.bulkDelete(inv.ChannelID, amount+1)
			if err != nil {
				s.logger.Warn("clear failed", zap.String("channel_id", inv.ChannelID), zap.Error(err))
				return inv.Reply(ctx, "❌ There was an error trying to delete messages!")
			}
			if deleted > 0 {
				deleted--
			}

			notice, err := s.discord.ChannelMessageSend(inv.ChannelID, fmt.Sprintf("✅ Deleted %d messages!", deleted))
			if err != nil {
				return err
			}
			s.after(clearNoticeTimeout, func() {
				if err := s.discord.ChannelMessageDelete(notice.ChannelID, notice.ID); err != nil {
					s.logger.Debug("clear notice delete failed", zap.Error(err))
				}
			})
			return nil
		},
	}
}

// bulkDelete removes up to limit recent messages, skipping those Discord
// refuses to bulk delete.
func (s *Set) bulkDelete(channelID string, limit int) (int, error) {
	if limit > maxClear {
		limit = maxClear
	}
	messages, err := s.discord.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-bulkDeleteMaxAge)
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.discord.ChannelMessagesBulkDelete(channelID, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}
