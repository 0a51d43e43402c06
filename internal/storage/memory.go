package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps every document in process memory. It backs tests and runs
// without a database_url.
type Memory struct {
	mu       sync.RWMutex
	guilds   map[string]GuildConfig
	profiles map[string]UserProfile
	modLogs  []ModerationLog
	events   []AnalyticsEvent
}

func NewMemory() *Memory {
	return &Memory{
		guilds:   make(map[string]GuildConfig),
		profiles: make(map[string]UserProfile),
	}
}

func (m *Memory) Close() {}

func (m *Memory) FindGuildConfig(ctx context.Context, guildID string) (*GuildConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.guilds[guildID]
	if !ok {
		return nil, nil
	}
	out := cloneGuildConfig(cfg)
	return &out, nil
}

func (m *Memory) UpsertGuildConfig(ctx context.Context, cfg GuildConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	stored := cloneGuildConfig(cfg)
	if existing, ok := m.guilds[cfg.GuildID]; ok {
		stored.JoinedAt = existing.JoinedAt
		stored.CreatedAt = existing.CreatedAt
	} else {
		if stored.JoinedAt.IsZero() {
			stored.JoinedAt = now
		}
		stored.CreatedAt = now
	}
	stored.Moderation.AutoMod.Punishment = ParsePunishment(string(stored.Moderation.AutoMod.Punishment))
	stored.UpdatedAt = now
	m.guilds[cfg.GuildID] = stored
	return nil
}

func (m *Memory) DeleteGuildConfig(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.guilds, guildID)
	return nil
}

func (m *Memory) FindUserProfile(ctx context.Context, guildID, userID string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[profileKey(guildID, userID)]
	if !ok {
		return nil, nil
	}
	out := cloneUserProfile(profile)
	return &out, nil
}

func (m *Memory) AddWarning(ctx context.Context, ref UserRef, warning Warning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile := m.profileLocked(ref)
	profile.Warnings = append(profile.Warnings, warning)
	m.profiles[profileKey(ref.GuildID, ref.UserID)] = profile
	return nil
}

func (m *Memory) AddInfraction(ctx context.Context, ref UserRef, infraction Infraction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile := m.profileLocked(ref)
	profile.Infractions = append(profile.Infractions, infraction)
	m.profiles[profileKey(ref.GuildID, ref.UserID)] = profile
	return nil
}

func (m *Memory) IncrementStats(ctx context.Context, ref UserRef, messages, commands int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile := m.profileLocked(ref)
	profile.Stats.MessagesSent += messages
	profile.Stats.CommandsUsed += commands
	m.profiles[profileKey(ref.GuildID, ref.UserID)] = profile
	return nil
}

func (m *Memory) AddModerationLog(ctx context.Context, entry ModerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modLogs = append(m.modLogs, entry)
	return nil
}

func (m *Memory) ListModerationLogs(ctx context.Context, guildID string, since time.Time) ([]ModerationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var logs []ModerationLog
	for _, entry := range m.modLogs {
		if entry.GuildID == guildID && !entry.CreatedAt.Before(since) {
			logs = append(logs, entry)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	return logs, nil
}

func (m *Memory) AddAnalyticsEvent(ctx context.Context, event AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *Memory) ListAnalyticsEvents(ctx context.Context, guildID string, since time.Time) ([]AnalyticsEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []AnalyticsEvent
	for _, event := range m.events {
		if event.GuildID == guildID && !event.CreatedAt.Before(since) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (m *Memory) profileLocked(ref UserRef) UserProfile {
	key := profileKey(ref.GuildID, ref.UserID)
	profile, ok := m.profiles[key]
	now := time.Now().UTC()
	if !ok {
		profile = UserProfile{
			GuildID:     ref.GuildID,
			UserID:      ref.UserID,
			Warnings:    []Warning{},
			Infractions: []Infraction{},
			Stats:       UserStats{JoinDate: now},
			CreatedAt:   now,
		}
	}
	if ref.Username != "" {
		profile.Username = ref.Username
	}
	profile.UpdatedAt = now
	return profile
}

func profileKey(guildID, userID string) string {
	return guildID + ":" + userID
}
