package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Postgres) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Postgres) FindGuildConfig(ctx context.Context, guildID string) (*GuildConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT guild_id, guild_name, prefix, joined_at,
		moderation_enabled, log_channel_id, mute_role_id,
		automod_enabled, spam_limit, caps_limit, punishment, bad_words,
		language, timezone, created_at, updated_at
		FROM guild_configs WHERE guild_id = $1`, guildID)

	var cfg GuildConfig
	var punishment string
	err := row.Scan(
		&cfg.GuildID,
		&cfg.GuildName,
		&cfg.Prefix,
		&cfg.JoinedAt,
		&cfg.Moderation.Enabled,
		&cfg.Moderation.LogChannelID,
		&cfg.Moderation.MuteRoleID,
		&cfg.Moderation.AutoMod.Enabled,
		&cfg.Moderation.AutoMod.SpamLimit,
		&cfg.Moderation.AutoMod.CapsLimit,
		&punishment,
		&cfg.Moderation.BadWords,
		&cfg.Language,
		&cfg.Timezone,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	cfg.Moderation.AutoMod.Punishment = ParsePunishment(punishment)
	return &cfg, nil
}

func (s *Postgres) UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error {
	badWords := cfg.Moderation.BadWords
	if badWords == nil {
		badWords = []string{}
	}
	joinedAt := cfg.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guild_configs (
			guild_id, guild_name, prefix, joined_at,
			moderation_enabled, log_channel_id, mute_role_id,
			automod_enabled, spam_limit, caps_limit, punishment, bad_words,
			language, timezone
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (guild_id) DO UPDATE SET
			guild_name = excluded.guild_name,
			prefix = excluded.prefix,
			moderation_enabled = excluded.moderation_enabled,
			log_channel_id = excluded.log_channel_id,
			mute_role_id = excluded.mute_role_id,
			automod_enabled = excluded.automod_enabled,
			spam_limit = excluded.spam_limit,
			caps_limit = excluded.caps_limit,
			punishment = excluded.punishment,
			bad_words = excluded.bad_words,
			language = excluded.language,
			timezone = excluded.timezone,
			updated_at = now()
	`,
		cfg.GuildID,
		cfg.GuildName,
		cfg.Prefix,
		joinedAt,
		cfg.Moderation.Enabled,
		cfg.Moderation.LogChannelID,
		cfg.Moderation.MuteRoleID,
		cfg.Moderation.AutoMod.Enabled,
		cfg.Moderation.AutoMod.SpamLimit,
		cfg.Moderation.AutoMod.CapsLimit,
		string(ParsePunishment(string(cfg.Moderation.AutoMod.Punishment))),
		badWords,
		cfg.Language,
		cfg.Timezone,
	)
	return err
}

func (s *Postgres) DeleteGuildConfig(ctx context.Context, guildID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM guild_configs WHERE guild_id = $1`, guildID)
	return err
}

func (s *Postgres) AddModerationLog(ctx context.Context, entry ModerationLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO moderation_logs (id, guild_id, action, moderator_id, target_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, entry.GuildID, entry.Action, entry.ModeratorID, entry.TargetID, entry.Reason, entry.CreatedAt)
	return err
}

func (s *Postgres) ListModerationLogs(ctx context.Context, guildID string, since time.Time) ([]ModerationLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, guild_id, action, moderator_id, target_id, reason, created_at
		FROM moderation_logs
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, guildID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ModerationLog
	for rows.Next() {
		var log ModerationLog
		if err := rows.Scan(&log.ID, &log.GuildID, &log.Action, &log.ModeratorID, &log.TargetID, &log.Reason, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Postgres) AddAnalyticsEvent(ctx context.Context, event AnalyticsEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analytics_events (guild_id, user_id, event, command, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.GuildID, event.UserID, event.Event, event.Command, event.CreatedAt)
	return err
}

func (s *Postgres) ListAnalyticsEvents(ctx context.Context, guildID string, since time.Time) ([]AnalyticsEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT guild_id, user_id, event, command, created_at
		FROM analytics_events
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, guildID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AnalyticsEvent
	for rows.Next() {
		var event AnalyticsEvent
		if err := rows.Scan(&event.GuildID, &event.UserID, &event.Event, &event.Command, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
