package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

type moderationSession interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// sessionEnforcer carries out automod punishments through the Discord API.
type sessionEnforcer struct {
	session moderationSession
}

func (e *sessionEnforcer) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return e.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (e *sessionEnforcer) Timeout(ctx context.Context, guildID, userID string, until time.Time) error {
	return e.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithContext(ctx))
}

func (e *sessionEnforcer) Kick(ctx context.Context, guildID, userID, reason string) error {
	return e.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (e *sessionEnforcer) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return e.session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
}

func (e *sessionEnforcer) DirectMessage(ctx context.Context, userID, content string) error {
	channel, err := e.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = e.session.ChannelMessageSend(channel.ID, content, discordgo.WithContext(ctx))
	return err
}
