package analytics

import (
	"context"
	"testing"
	"time"

	"guildpilot/internal/storage"
)

func TestReportAggregates(t *testing.T) {
	store := storage.NewMemory()
	service := New(store)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = service.Record(ctx, "g1", "u1", storage.EventCommandUsed, "ping")
	_ = service.Record(ctx, "g1", "u2", storage.EventCommandUsed, "ping")
	_ = service.Record(ctx, "g1", "u2", storage.EventCommandUsed, "roll")
	_ = service.Record(ctx, "g1", "u3", storage.EventAutoMod, "")
	_ = service.Record(ctx, "g2", "u1", storage.EventCommandUsed, "ping")
	_ = store.AddModerationLog(ctx, storage.ModerationLog{ID: "1", GuildID: "g1", Action: "warn", CreatedAt: now})
	_ = store.AddModerationLog(ctx, storage.ModerationLog{ID: "2", GuildID: "g1", Action: "ban", CreatedAt: now})
	_ = store.AddModerationLog(ctx, storage.ModerationLog{ID: "3", GuildID: "g1", Action: "warn", CreatedAt: now.Add(-30 * 24 * time.Hour)})

	report, err := service.Report(ctx, "g1", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.CommandsUsed != 3 || report.ByCommand["ping"] != 2 || report.ByCommand["roll"] != 1 {
		t.Fatalf("unexpected command counts %+v", report)
	}
	if report.AutoModTriggers != 1 || report.ActiveUsers != 3 {
		t.Fatalf("unexpected event counts %+v", report)
	}
	if report.ModerationActions != 2 || report.ByAction["warn"] != 1 || report.ByAction["ban"] != 1 {
		t.Fatalf("unexpected moderation counts %+v", report)
	}
}
