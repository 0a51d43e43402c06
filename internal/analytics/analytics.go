package analytics

import (
	"context"
	"time"

	"guildpilot/internal/storage"
)

type Store interface {
	AddAnalyticsEvent(ctx context.Context, event storage.AnalyticsEvent) error
	ListAnalyticsEvents(ctx context.Context, guildID string, since time.Time) ([]storage.AnalyticsEvent, error)
	ListModerationLogs(ctx context.Context, guildID string, since time.Time) ([]storage.ModerationLog, error)
}

type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Record(ctx context.Context, guildID, userID, event, command string) error {
	return s.store.AddAnalyticsEvent(ctx, storage.AnalyticsEvent{
		GuildID:   guildID,
		UserID:    userID,
		Event:     event,
		Command:   command,
		CreatedAt: time.Now().UTC(),
	})
}

type Report struct {
	Since             time.Time      `json:"since"`
	ModerationActions int            `json:"moderationActions"`
	ByAction          map[string]int `json:"byAction"`
	CommandsUsed      int            `json:"commandsUsed"`
	ByCommand         map[string]int `json:"byCommand"`
	AutoModTriggers   int            `json:"autoModTriggers"`
	ActiveUsers       int            `json:"activeUsers"`
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListModerationLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}
	events, err := s.store.ListAnalyticsEvents(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Since:     since,
		ByAction:  make(map[string]int),
		ByCommand: make(map[string]int),
	}
	for _, log := range logs {
		report.ModerationActions++
		report.ByAction[log.Action]++
	}
	users := make(map[string]struct{})
	for _, event := range events {
		if event.UserID != "" {
			users[event.UserID] = struct{}{}
		}
		switch event.Event {
		case storage.EventCommandUsed:
			report.CommandsUsed++
			report.ByCommand[event.Command]++
		case storage.EventAutoMod:
			report.AutoModTriggers++
		}
	}
	report.ActiveUsers = len(users)
	return report, nil
}
