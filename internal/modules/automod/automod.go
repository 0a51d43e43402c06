package automod

import (
	"context"
	"fmt"
	"time"

	"guildpilot/internal/modules/anticaps"
	"guildpilot/internal/modules/antispam"
	"guildpilot/internal/modules/audit"
	"guildpilot/internal/modules/wordfilter"
	"guildpilot/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Rule string

const (
	RuleSpam     Rule = "spam"
	RuleBadWords Rule = "bad_words"
	RuleCaps     Rule = "caps"
)

const (
	ReasonSpam     = "Spam detected"
	ReasonBadWords = "Inappropriate language"
	ReasonCaps     = "Excessive capitalization"
)

const reasonPrefix = "Auto-moderation: "

type Verdict struct {
	Rule   Rule
	Reason string
	Word   string
}

type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Content   string
	At        time.Time
}

// Enforcer performs the Discord side of a punishment.
type Enforcer interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	Timeout(ctx context.Context, guildID, userID string, until time.Time) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	DirectMessage(ctx context.Context, userID, content string) error
}

type Recorder interface {
	Record(ctx context.Context, guildID, userID, event, command string) error
}

type Config struct {
	SpamWindow    time.Duration
	CapsMinLength int
	MuteDuration  time.Duration
	BanDeleteDays int
}

func DefaultConfig() Config {
	return Config{
		SpamWindow:    antispam.DefaultWindow,
		CapsMinLength: anticaps.DefaultMinLength,
		MuteDuration:  10 * time.Minute,
		BanDeleteDays: 1,
	}
}

type Filter struct {
	cfg         Config
	spam        *antispam.Module
	enforcer    Enforcer
	users       storage.UserStore
	audit       *audit.Logger
	recorder    Recorder
	logger      *zap.Logger
	moderatorID string
}

func New(cfg Config, enforcer Enforcer, users storage.UserStore, auditLogger *audit.Logger, logger *zap.Logger) *Filter {
	defaults := DefaultConfig()
	if cfg.SpamWindow <= 0 {
		cfg.SpamWindow = defaults.SpamWindow
	}
	if cfg.CapsMinLength <= 0 {
		cfg.CapsMinLength = defaults.CapsMinLength
	}
	if cfg.MuteDuration <= 0 {
		cfg.MuteDuration = defaults.MuteDuration
	}
	if cfg.BanDeleteDays < 0 || cfg.BanDeleteDays > 7 {
		cfg.BanDeleteDays = defaults.BanDeleteDays
	}
	return &Filter{
		cfg:      cfg,
		spam:     antispam.New(cfg.SpamWindow),
		enforcer: enforcer,
		users:    users,
		audit:    auditLogger,
		logger:   logger,
	}
}

// SetModeratorID sets the actor recorded on automatic actions, normally the bot user.
func (f *Filter) SetModeratorID(id string) {
	f.moderatorID = id
}

func (f *Filter) SetRecorder(recorder Recorder) {
	f.recorder = recorder
}

// Evaluate runs spam, bad words and caps in that order and returns the first match.
func (f *Filter) Evaluate(settings storage.ModerationSettings, msg Message) (Verdict, bool) {
	rules := settings.AutoMod
	if !rules.Enabled {
		return Verdict{}, false
	}
	if f.spam.Check(msg.GuildID, msg.UserID, msg.At, rules.SpamLimit) {
		return Verdict{Rule: RuleSpam, Reason: ReasonSpam}, true
	}
	if word, ok := wordfilter.Match(msg.Content, settings.BadWords); ok {
		return Verdict{Rule: RuleBadWords, Reason: ReasonBadWords, Word: word}, true
	}
	if anticaps.Exceeds(msg.Content, rules.CapsLimit, f.cfg.CapsMinLength) {
		return Verdict{Rule: RuleCaps, Reason: ReasonCaps}, true
	}
	return Verdict{}, false
}

// Handle evaluates msg and enforces the guild punishment on a match. It
// reports whether the message was caught and must not reach the dispatcher.
func (f *Filter) Handle(ctx context.Context, settings storage.ModerationSettings, msg Message) (Verdict, bool) {
	verdict, matched := f.Evaluate(settings, msg)
	if !matched {
		return Verdict{}, false
	}
	f.Enforce(ctx, settings.AutoMod.Punishment, msg, verdict)
	return verdict, true
}

// Enforce deletes the message, punishes the author and writes the moderation
// log. Each step is attempted even if an earlier one failed.
func (f *Filter) Enforce(ctx context.Context, punishment storage.Punishment, msg Message, verdict Verdict) {
	punishment = storage.ParsePunishment(string(punishment))
	fields := []zap.Field{
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.UserID),
		zap.String("rule", string(verdict.Rule)),
		zap.String("punishment", string(punishment)),
	}

	if err := f.enforcer.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		f.logger.Warn("automod delete failed", append(fields, zap.Error(err))...)
	}

	if err := f.punish(ctx, punishment, msg, verdict.Reason); err != nil {
		f.logger.Warn("automod punishment failed", append(fields, zap.Error(err))...)
	}

	if f.audit != nil {
		if _, err := f.audit.Log(ctx, msg.GuildID, string(punishment), f.moderatorID, msg.UserID, reasonPrefix+verdict.Reason); err != nil {
			f.logger.Warn("automod log failed", append(fields, zap.Error(err))...)
		}
	}

	if f.recorder != nil {
		if err := f.recorder.Record(ctx, msg.GuildID, msg.UserID, storage.EventAutoMod, ""); err != nil {
			f.logger.Warn("automod analytics failed", append(fields, zap.Error(err))...)
		}
	}
}

func (f *Filter) punish(ctx context.Context, punishment storage.Punishment, msg Message, reason string) error {
	ref := storage.UserRef{GuildID: msg.GuildID, UserID: msg.UserID, Username: msg.Username}
	now := time.Now().UTC()

	switch punishment {
	case storage.PunishMute:
		if err := f.enforcer.Timeout(ctx, msg.GuildID, msg.UserID, now.Add(f.cfg.MuteDuration)); err != nil {
			return err
		}
		return f.users.AddInfraction(ctx, ref, storage.Infraction{
			ID:          uuid.NewString(),
			Type:        storage.PunishMute,
			Reason:      reason,
			ModeratorID: f.moderatorID,
			Duration:    formatDuration(f.cfg.MuteDuration),
			CreatedAt:   now,
			Active:      true,
		})
	case storage.PunishKick:
		if err := f.enforcer.Kick(ctx, msg.GuildID, msg.UserID, reason); err != nil {
			return err
		}
		return f.users.AddInfraction(ctx, ref, storage.Infraction{
			ID:          uuid.NewString(),
			Type:        storage.PunishKick,
			Reason:      reason,
			ModeratorID: f.moderatorID,
			CreatedAt:   now,
		})
	case storage.PunishBan:
		if err := f.enforcer.Ban(ctx, msg.GuildID, msg.UserID, reason, f.cfg.BanDeleteDays); err != nil {
			return err
		}
		return f.users.AddInfraction(ctx, ref, storage.Infraction{
			ID:          uuid.NewString(),
			Type:        storage.PunishBan,
			Reason:      reason,
			ModeratorID: f.moderatorID,
			CreatedAt:   now,
			Active:      true,
		})
	default:
		if err := f.users.AddWarning(ctx, ref, storage.Warning{
			ID:          uuid.NewString(),
			Reason:      reason,
			ModeratorID: f.moderatorID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if err := f.enforcer.DirectMessage(ctx, msg.UserID, fmt.Sprintf("⚠️ You have been warned: %s", reason)); err != nil {
			f.logger.Debug("warning dm failed", zap.String("user_id", msg.UserID), zap.Error(err))
		}
		return nil
	}
}

func (f *Filter) Sweep(now time.Time) int {
	return f.spam.Sweep(now)
}

func formatDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}
