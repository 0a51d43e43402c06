package bot

import (
	"context"
	"sort"
	"time"

	"guildpilot/internal/dispatch"
	"guildpilot/internal/modules/automod"
	"guildpilot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.automod.SetModeratorID(event.User.ID)
	b.logger.Info("discord ready",
		zap.String("user", event.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	cfg, _ := b.guildConfig(ctx, msg.GuildID, b.guildName(msg.GuildID))

	ref := storage.UserRef{GuildID: msg.GuildID, UserID: msg.Author.ID, Username: msg.Author.Username}
	if err := b.store.IncrementStats(ctx, ref, 1, 0); err != nil {
		b.logger.Warn("message stats failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}

	if _, caught := b.automod.Handle(ctx, cfg.Moderation, automodMessage(msg.Message)); caught {
		return
	}

	b.dispatcher.HandleInboundEvent(ctx, messageEvent(session, msg.Message, cfg.Prefix, b.memberPermissions(msg.Message)))
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.dispatcher.HandleInboundEvent(context.Background(), interactionEvent(session, interaction.Interaction))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	ctx := context.Background()
	_, created := b.guildConfig(ctx, event.ID, event.Name)
	if !created {
		return
	}
	b.logger.Info("joined guild", zap.String("guild_id", event.ID), zap.String("guild", event.Name))

	botID := b.botUserID()
	channelID := welcomeChannel(event.Channels, func(channelID string) bool {
		perms, err := session.State.UserChannelPermissions(botID, channelID)
		return err == nil && perms&discordgo.PermissionSendMessages != 0
	})
	if channelID == "" {
		return
	}
	avatar := ""
	if session.State.User != nil {
		avatar = session.State.User.AvatarURL("")
	}
	if _, err := session.ChannelMessageSendEmbed(channelID, welcomeEmbed(b.cfg.Web.DashboardURL, avatar, time.Now())); err != nil {
		b.logger.Warn("welcome message failed", zap.String("guild_id", event.ID), zap.Error(err))
	}
}

// guildConfig loads the guild's document, persisting the defaults when the
// guild has none yet. created reports whether a new document was written.
// Lookup failures fall back to in-memory defaults so messages still flow.
func (b *Bot) guildConfig(ctx context.Context, guildID, guildName string) (storage.GuildConfig, bool) {
	cfg, err := b.store.FindGuildConfig(ctx, guildID)
	if err != nil {
		b.logger.Warn("guild config fallback", zap.String("guild_id", guildID), zap.Error(err))
		return b.defaultGuildConfig(guildID, guildName), false
	}
	if cfg != nil {
		if cfg.Prefix == "" {
			cfg.Prefix = b.cfg.DefaultPrefix
		}
		return *cfg, false
	}

	fresh := b.defaultGuildConfig(guildID, guildName)
	if err := b.store.UpsertGuildConfig(ctx, fresh); err != nil {
		b.logger.Warn("guild config create failed", zap.String("guild_id", guildID), zap.Error(err))
		return fresh, false
	}
	return fresh, true
}

func (b *Bot) defaultGuildConfig(guildID, guildName string) storage.GuildConfig {
	cfg := storage.DefaultGuildConfig(guildID, guildName)
	if b.cfg.DefaultPrefix != "" {
		cfg.Prefix = b.cfg.DefaultPrefix
	}
	return cfg
}

func (b *Bot) guildName(guildID string) string {
	name, _ := b.GuildName(guildID)
	return name
}

// GuildName reports the cached name of a guild the bot is in.
func (b *Bot) GuildName(guildID string) (string, bool) {
	if b.session == nil || b.session.State == nil {
		return "", false
	}
	guild, err := b.session.State.Guild(guildID)
	if err != nil {
		return "", false
	}
	return guild.Name, true
}

// memberPermissions resolves the author's guild-level permissions from the
// state cache.
func (b *Bot) memberPermissions(msg *discordgo.Message) int64 {
	if b.session == nil || b.session.State == nil {
		return 0
	}
	guild, err := b.session.State.Guild(msg.GuildID)
	if err != nil {
		return 0
	}
	return guildPermissions(guild, msg.Author.ID, msg.Member)
}

func guildPermissions(guild *discordgo.Guild, userID string, member *discordgo.Member) int64 {
	if guild == nil {
		return 0
	}
	if guild.OwnerID != "" && guild.OwnerID == userID {
		return discordgo.PermissionAll
	}
	roles := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roles[role.ID] = role
	}

	perms := int64(0)
	if everyone := roles[guild.ID]; everyone != nil {
		perms |= everyone.Permissions
	}
	if member != nil {
		for _, roleID := range member.Roles {
			if role := roles[roleID]; role != nil {
				perms |= role.Permissions
			}
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

func messageEvent(session *discordgo.Session, msg *discordgo.Message, prefix string, perms int64) dispatch.Event {
	return dispatch.Event{
		Kind:        dispatch.KindMessage,
		GuildID:     msg.GuildID,
		ChannelID:   msg.ChannelID,
		UserID:      msg.Author.ID,
		Username:    msg.Author.Username,
		Bot:         msg.Author.Bot,
		Content:     msg.Content,
		Prefix:      prefix,
		Permissions: perms,
		Responder:   &messageResponder{sender: session, message: msg},
		Session:     session,
		Message:     msg,
	}
}

func interactionEvent(session *discordgo.Session, interaction *discordgo.Interaction) dispatch.Event {
	ev := dispatch.Event{
		Kind:        dispatch.KindInteraction,
		GuildID:     interaction.GuildID,
		ChannelID:   interaction.ChannelID,
		CommandName: interaction.ApplicationCommandData().Name,
		Responder:   &interactionResponder{sender: session, interaction: interaction},
		Session:     session,
		Interaction: interaction,
	}
	user := interaction.User
	if interaction.Member != nil {
		user = interaction.Member.User
		ev.Permissions = interaction.Member.Permissions
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Username = user.Username
		ev.Bot = user.Bot
	}
	return ev
}

func automodMessage(msg *discordgo.Message) automod.Message {
	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return automod.Message{
		ID:        msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		UserID:    msg.Author.ID,
		Username:  msg.Author.Username,
		Content:   msg.Content,
		At:        at,
	}
}

// welcomeChannel picks the top-most text channel the bot can post in.
func welcomeChannel(channels []*discordgo.Channel, canSend func(channelID string) bool) string {
	text := make([]*discordgo.Channel, 0, len(channels))
	for _, ch := range channels {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildText {
			text = append(text, ch)
		}
	}
	sort.SliceStable(text, func(i, j int) bool {
		return text[i].Position < text[j].Position
	})
	for _, ch := range text {
		if canSend(ch.ID) {
			return ch.ID
		}
	}
	return ""
}

func welcomeEmbed(dashboardURL, avatarURL string, now time.Time) *discordgo.MessageEmbed {
	if dashboardURL == "" {
		dashboardURL = "http://localhost:3000"
	}
	embed := commandEmbed("👋 Thanks for adding me!", "I'm ready to help manage your server!", 0x00ff00, []*discordgo.MessageEmbedField{
		{Name: "🚀 Getting Started", Value: "Use `/help` to see all available commands\nUse `!ping` to check that I'm listening"},
		{Name: "🌐 Web Dashboard", Value: "Visit our [dashboard](" + dashboardURL + ") for easy configuration"},
		{Name: "📋 Features", Value: "• Moderation & Auto-moderation\n• Fun Commands\n• Server Statistics\n• And much more!"},
	}, now)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Need help? Join our support server!", IconURL: avatarURL}
	return embed
}
