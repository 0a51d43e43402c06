package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Postgres) FindUserProfile(ctx context.Context, guildID, userID string) (*UserProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT guild_id, user_id, username, messages_sent, commands_used, join_date, created_at, updated_at
		FROM user_profiles
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID)

	var profile UserProfile
	err := row.Scan(
		&profile.GuildID,
		&profile.UserID,
		&profile.Username,
		&profile.Stats.MessagesSent,
		&profile.Stats.CommandsUsed,
		&profile.Stats.JoinDate,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	warnings, err := s.pool.Query(ctx, `
		SELECT id, reason, moderator_id, created_at
		FROM user_warnings
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer warnings.Close()
	profile.Warnings = []Warning{}
	for warnings.Next() {
		var w Warning
		if err := warnings.Scan(&w.ID, &w.Reason, &w.ModeratorID, &w.CreatedAt); err != nil {
			return nil, err
		}
		profile.Warnings = append(profile.Warnings, w)
	}
	if err := warnings.Err(); err != nil {
		return nil, err
	}

	infractions, err := s.pool.Query(ctx, `
		SELECT id, type, reason, moderator_id, duration, active, created_at
		FROM user_infractions
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer infractions.Close()
	profile.Infractions = []Infraction{}
	for infractions.Next() {
		var inf Infraction
		var kind string
		if err := infractions.Scan(&inf.ID, &kind, &inf.Reason, &inf.ModeratorID, &inf.Duration, &inf.Active, &inf.CreatedAt); err != nil {
			return nil, err
		}
		inf.Type = ParsePunishment(kind)
		profile.Infractions = append(profile.Infractions, inf)
	}
	return &profile, infractions.Err()
}

func (s *Postgres) AddWarning(ctx context.Context, ref UserRef, warning Warning) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureProfile(ctx, tx, ref); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_warnings (id, guild_id, user_id, reason, moderator_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, warning.ID, ref.GuildID, ref.UserID, warning.Reason, warning.ModeratorID, warning.CreatedAt)
		return err
	})
}

func (s *Postgres) AddInfraction(ctx context.Context, ref UserRef, infraction Infraction) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := ensureProfile(ctx, tx, ref); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_infractions (id, guild_id, user_id, type, reason, moderator_id, duration, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, infraction.ID, ref.GuildID, ref.UserID, string(infraction.Type), infraction.Reason, infraction.ModeratorID, infraction.Duration, infraction.Active, infraction.CreatedAt)
		return err
	})
}

func (s *Postgres) IncrementStats(ctx context.Context, ref UserRef, messages, commands int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_profiles (guild_id, user_id, username, messages_sent, commands_used)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			username = COALESCE(NULLIF(excluded.username, ''), user_profiles.username),
			messages_sent = user_profiles.messages_sent + excluded.messages_sent,
			commands_used = user_profiles.commands_used + excluded.commands_used,
			updated_at = now()
	`, ref.GuildID, ref.UserID, ref.Username, messages, commands)
	return err
}

func (s *Postgres) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func ensureProfile(ctx context.Context, tx pgx.Tx, ref UserRef) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO user_profiles (guild_id, user_id, username)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			username = COALESCE(NULLIF(excluded.username, ''), user_profiles.username),
			updated_at = now()
	`, ref.GuildID, ref.UserID, ref.Username)
	return err
}
