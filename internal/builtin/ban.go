package builtin

import (
	"context"
	"fmt"

	"guildpilot/internal/commands"
	"guildpilot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Set) ban() commands.Descriptor {
	minDays := 0.0
	return commands.Descriptor{
		Name:        "ban",
		Description: "Ban a user from the server",
		Category:    "Moderation",
		Permissions: discordgo.PermissionBanMembers,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "target",
				Description: "The user to ban",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Reason for the ban",
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "days",
				Description: "Number of days of messages to delete (0-7)",
				MinValue:    &minDays,
				MaxValue:    7,
			},
		},
		Handler: s.handleBan,
	}
}

func (s *Set) handleBan(ctx context.Context, inv *commands.Invocation) error {
	target := s.optionUser(inv, "target")
	if target == nil || inv.GuildID == "" {
		return inv.ReplyEphemeral(ctx, "❌ User not found in this server!")
	}
	reason := "No reason provided"
	if opt := inv.Option("reason"); opt != nil && opt.StringValue() != "" {
		reason = opt.StringValue()
	}
	days := 0
	if opt := inv.Option("days"); opt != nil {
		days = int(opt.IntValue())
	}
	if days < 0 || days > 7 {
		return inv.ReplyEphemeral(ctx, "❌ Days must be between 0 and 7!")
	}

	if target.ID == inv.UserID {
		return inv.ReplyEphemeral(ctx, "❌ You cannot ban yourself!")
	}
	if s.botUserID != nil && target.ID == s.botUserID() {
		return inv.ReplyEphemeral(ctx, "❌ I cannot ban myself!")
	}
	if _, err := s.discord.GuildMember(inv.GuildID, target.ID); err != nil {
		return inv.ReplyEphemeral(ctx, "❌ User not found in this server!")
	}

	s.notifyBanned(inv, target.ID, reason)

	banReason := fmt.Sprintf("%s | Moderator: %s", reason, inv.Username)
	if err := s.discord.GuildBanCreateWithReason(inv.GuildID, target.ID, banReason, days); err != nil {
		s.logger.Warn("ban failed", zap.String("guild_id", inv.GuildID), zap.String("target_id", target.ID), zap.Error(err))
		return inv.ReplyEphemeral(ctx, "❌ I cannot ban this user! They may have higher permissions than me.")
	}

	ref := storage.UserRef{GuildID: inv.GuildID, UserID: target.ID, Username: target.Username}
	if err := s.users.AddInfraction(ctx, ref, storage.Infraction{
		ID:          uuid.NewString(),
		Type:        storage.PunishBan,
		Reason:      reason,
		ModeratorID: inv.UserID,
		CreatedAt:   s.now().UTC(),
		Active:      true,
	}); err != nil {
		s.logger.Warn("ban infraction failed", zap.String("target_id", target.ID), zap.Error(err))
	}
	if s.audit != nil {
		if _, err := s.audit.Log(ctx, inv.GuildID, string(storage.PunishBan), inv.UserID, target.ID, reason); err != nil {
			s.logger.Warn("ban log failed", zap.String("target_id", target.ID), zap.Error(err))
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🔨 User Banned",
		Description: fmt.Sprintf("**%s** has been banned from the server", displayName(target)),
		Color:       colorDanger,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Moderator", Value: "<@" + inv.UserID + ">"},
			{Name: "Messages Deleted", Value: fmt.Sprintf("%d days", days)},
		},
		Timestamp: s.timestamp(),
	}
	if target.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: target.AvatarURL("")}
	}
	return inv.ReplyEmbed(ctx, embed)
}

// notifyBanned DMs the target before the ban; closed DMs are ignored.
func (s *Set) notifyBanned(inv *commands.Invocation, userID, reason string) {
	channel, err := s.discord.UserChannelCreate(userID)
	if err != nil {
		return
	}
	guildName := inv.GuildID
	if guild, err := s.discord.GuildWithCounts(inv.GuildID); err == nil && guild.Name != "" {
		guildName = guild.Name
	}
	_, _ = s.discord.ChannelMessageSendEmbed(channel.ID, &discordgo.MessageEmbed{
		Title:       "🔨 You have been banned",
		Description: fmt.Sprintf("You have been banned from **%s**", guildName),
		Color:       colorDanger,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Moderator", Value: "<@" + inv.UserID + ">"},
		},
		Timestamp: s.timestamp(),
	})
}

func (s *Set) optionUser(inv *commands.Invocation, name string) *discordgo.User {
	opt := inv.Option(name)
	if opt == nil {
		return nil
	}
	id, ok := opt.Value.(string)
	if !ok || id == "" {
		return nil
	}
	data := inv.Interaction.ApplicationCommandData()
	if data.Resolved != nil {
		if user := data.Resolved.Users[id]; user != nil {
			return user
		}
	}
	return &discordgo.User{ID: id}
}

func displayName(user *discordgo.User) string {
	if user.Username == "" {
		return user.ID
	}
	return user.String()
}
