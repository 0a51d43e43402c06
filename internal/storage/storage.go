package storage

import (
	"context"
	"strings"
	"time"
)

const DefaultPrefix = "!"

type Punishment string

const (
	PunishWarn Punishment = "warn"
	PunishMute Punishment = "mute"
	PunishKick Punishment = "kick"
	PunishBan  Punishment = "ban"
)

func ParsePunishment(value string) Punishment {
	switch Punishment(strings.ToLower(strings.TrimSpace(value))) {
	case PunishMute:
		return PunishMute
	case PunishKick:
		return PunishKick
	case PunishBan:
		return PunishBan
	default:
		return PunishWarn
	}
}

const (
	EventCommandUsed = "command_used"
	EventAutoMod     = "automod_triggered"
)

type AutoModSettings struct {
	Enabled    bool       `json:"enabled"`
	SpamLimit  int        `json:"spamLimit"`
	CapsLimit  float64    `json:"capsLimit"`
	Punishment Punishment `json:"punishment"`
}

type ModerationSettings struct {
	Enabled      bool            `json:"enabled"`
	LogChannelID string          `json:"logChannelId"`
	MuteRoleID   string          `json:"muteRoleId"`
	AutoMod      AutoModSettings `json:"autoMod"`
	BadWords     []string        `json:"badWords"`
}

type GuildConfig struct {
	GuildID    string             `json:"guildId"`
	GuildName  string             `json:"guildName"`
	Prefix     string             `json:"prefix"`
	JoinedAt   time.Time          `json:"joinedAt"`
	Moderation ModerationSettings `json:"moderation"`
	Language   string             `json:"language"`
	Timezone   string             `json:"timezone"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func DefaultGuildConfig(guildID, guildName string) GuildConfig {
	now := time.Now().UTC()
	return GuildConfig{
		GuildID:   guildID,
		GuildName: guildName,
		Prefix:    DefaultPrefix,
		JoinedAt:  now,
		Moderation: ModerationSettings{
			Enabled: true,
			AutoMod: AutoModSettings{
				Enabled:    false,
				SpamLimit:  5,
				CapsLimit:  70,
				Punishment: PunishWarn,
			},
			BadWords: []string{},
		},
		Language:  "en",
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type UserRef struct {
	GuildID  string
	UserID   string
	Username string
}

type Warning struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	ModeratorID string    `json:"moderator"`
	CreatedAt   time.Time `json:"date"`
}

type Infraction struct {
	ID          string     `json:"id"`
	Type        Punishment `json:"type"`
	Reason      string     `json:"reason"`
	ModeratorID string     `json:"moderator"`
	Duration    string     `json:"duration,omitempty"`
	CreatedAt   time.Time  `json:"date"`
	Active      bool       `json:"active"`
}

type UserStats struct {
	MessagesSent int       `json:"messagesSent"`
	CommandsUsed int       `json:"commandsUsed"`
	JoinDate     time.Time `json:"joinDate"`
}

type UserProfile struct {
	GuildID     string       `json:"guildId"`
	UserID      string       `json:"userId"`
	Username    string       `json:"username"`
	Warnings    []Warning    `json:"warnings"`
	Infractions []Infraction `json:"infractions"`
	Stats       UserStats    `json:"stats"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type ModerationLog struct {
	ID          string    `json:"id"`
	GuildID     string    `json:"guildId"`
	Action      string    `json:"action"`
	ModeratorID string    `json:"moderatorId"`
	TargetID    string    `json:"targetId"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AnalyticsEvent struct {
	GuildID   string    `json:"guildId"`
	UserID    string    `json:"userId"`
	Event     string    `json:"event"`
	Command   string    `json:"command,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// GuildStore lookups return nil, nil when the guild has no document.
type GuildStore interface {
	FindGuildConfig(ctx context.Context, guildID string) (*GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error
	DeleteGuildConfig(ctx context.Context, guildID string) error
}

type UserStore interface {
	FindUserProfile(ctx context.Context, guildID, userID string) (*UserProfile, error)
	AddWarning(ctx context.Context, ref UserRef, warning Warning) error
	AddInfraction(ctx context.Context, ref UserRef, infraction Infraction) error
	IncrementStats(ctx context.Context, ref UserRef, messages, commands int) error
}

type LogStore interface {
	AddModerationLog(ctx context.Context, entry ModerationLog) error
	ListModerationLogs(ctx context.Context, guildID string, since time.Time) ([]ModerationLog, error)
	AddAnalyticsEvent(ctx context.Context, event AnalyticsEvent) error
	ListAnalyticsEvents(ctx context.Context, guildID string, since time.Time) ([]AnalyticsEvent, error)
}

type Store interface {
	GuildStore
	UserStore
	LogStore
	Close()
}

func cloneGuildConfig(cfg GuildConfig) GuildConfig {
	out := cfg
	out.Moderation.BadWords = append([]string{}, cfg.Moderation.BadWords...)
	return out
}

func cloneUserProfile(profile UserProfile) UserProfile {
	out := profile
	out.Warnings = append([]Warning{}, profile.Warnings...)
	out.Infractions = append([]Infraction{}, profile.Infractions...)
	return out
}
