package bot

import (
	"context"
	"sync"
	"time"

	"guildpilot/internal/analytics"
	"guildpilot/internal/builtin"
	"guildpilot/internal/commands"
	"guildpilot/internal/config"
	"guildpilot/internal/cooldown"
	"guildpilot/internal/dispatch"
	"guildpilot/internal/modules/audit"
	"guildpilot/internal/modules/automod"
	"guildpilot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	store      storage.Store
	audit      *audit.Logger
	analytics  *analytics.Service
	session    *discordgo.Session
	registry   *commands.Registry
	cooldowns  *cooldown.Tracker
	dispatcher *dispatch.Dispatcher
	automod    *automod.Filter

	stopOnce sync.Once
	stop     chan struct{}
}

func New(cfg config.Config, logger *zap.Logger, store storage.Store, auditLogger *audit.Logger, analyticsService *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		audit:     auditLogger,
		analytics: analyticsService,
		session:   session,
		cooldowns: cooldown.New(),
		stop:      make(chan struct{}),
	}

	set := builtin.New(session, auditLogger, store, logger, b.botUserID)
	registry, err := buildRegistry(set)
	if err != nil {
		return nil, err
	}
	b.registry = registry

	b.dispatcher = dispatch.New(registry, b.cooldowns, logger)
	b.dispatcher.SetDefaultCooldown(time.Duration(cfg.Commands.DefaultCooldownSeconds) * time.Second)
	b.dispatcher.SetUsageRecorder(&usageRecorder{users: store, analytics: analyticsService})

	b.automod = automod.New(automodConfig(cfg.AutoMod), &sessionEnforcer{session: session}, store, auditLogger, logger)
	if analyticsService != nil {
		b.automod.SetRecorder(analyticsService)
	}

	if auditLogger != nil {
		auditLogger.SetNotifier(b.notifyAudit)
	}
	return b, nil
}

// buildRegistry registers the built-in commands and freezes the result.
func buildRegistry(set *builtin.Set) (*commands.Registry, error) {
	builder := commands.NewBuilder()
	if err := set.Register(builder); err != nil {
		return nil, err
	}
	registry := builder.Build()
	set.Attach(registry)
	return registry, nil
}

func automodConfig(cfg config.AutoModConfig) automod.Config {
	return automod.Config{
		SpamWindow:    time.Duration(cfg.SpamWindowMillis) * time.Millisecond,
		CapsMinLength: cfg.CapsMinLength,
		MuteDuration:  time.Duration(cfg.MuteMinutes) * time.Minute,
		BanDeleteDays: cfg.BanDeleteDays,
	}
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onGuildCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	b.automod.SetModeratorID(b.botUserID())

	if b.cfg.Commands.SyncSlashCommands {
		if err := b.registerCommands(); err != nil {
			return err
		}
	}

	b.startSweeper()
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() { close(b.stop) })
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) Registry() *commands.Registry {
	return b.registry
}

func (b *Bot) botUserID() string {
	if b.session == nil || b.session.State == nil || b.session.State.User == nil {
		return ""
	}
	return b.session.State.User.ID
}

// startSweeper drops idle spam windows so the tracker does not grow with
// every author ever seen.
func (b *Bot) startSweeper() {
	interval := time.Duration(b.cfg.AutoMod.SweepSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case now := <-ticker.C:
				if removed := b.automod.Sweep(now); removed > 0 {
					b.logger.Debug("spam windows swept", zap.Int("removed", removed))
				}
			}
		}
	}()
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.ModerationLog) {
	cfg, err := b.store.FindGuildConfig(ctx, entry.GuildID)
	if err != nil || cfg == nil {
		return
	}
	channelID := cfg.Moderation.LogChannelID
	if channelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, auditEmbed(entry)); err != nil {
		b.logger.Warn("log channel send failed", zap.String("guild_id", entry.GuildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func auditEmbed(entry storage.ModerationLog) *discordgo.MessageEmbed {
	moderator := "System"
	if entry.ModeratorID != "" {
		moderator = "<@" + entry.ModeratorID + ">"
	}
	return commandEmbed("🛡️ Moderation Action", entry.Reason, colorForAction(entry.Action), []*discordgo.MessageEmbedField{
		{Name: "Action", Value: entry.Action, Inline: true},
		{Name: "User", Value: "<@" + entry.TargetID + ">", Inline: true},
		{Name: "Moderator", Value: moderator, Inline: true},
	}, entry.CreatedAt)
}

func colorForAction(action string) int {
	switch storage.Punishment(action) {
	case storage.PunishBan:
		return 0xff0000
	case storage.PunishKick:
		return 0xff6600
	case storage.PunishMute:
		return 0xffaa00
	default:
		return 0xffff00
	}
}

func commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   at.UTC().Format(time.RFC3339),
		Fields:      fields,
	}
}
