package automod

import (
	"context"
	"errors"
	"testing"
	"time"

	"guildpilot/internal/modules/audit"
	"guildpilot/internal/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEnforcer struct {
	calls     []string
	deleteErr error
	punishErr error
	until     time.Time
	banDays   int
}

func (f *fakeEnforcer) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	f.calls = append(f.calls, "delete")
	return f.deleteErr
}

func (f *fakeEnforcer) Timeout(ctx context.Context, guildID, userID string, until time.Time) error {
	f.calls = append(f.calls, "timeout")
	f.until = until
	return f.punishErr
}

func (f *fakeEnforcer) Kick(ctx context.Context, guildID, userID, reason string) error {
	f.calls = append(f.calls, "kick")
	return f.punishErr
}

func (f *fakeEnforcer) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	f.calls = append(f.calls, "ban")
	f.banDays = deleteDays
	return f.punishErr
}

func (f *fakeEnforcer) DirectMessage(ctx context.Context, userID, content string) error {
	f.calls = append(f.calls, "dm")
	return nil
}

func newFilter(t *testing.T, enforcer Enforcer, logger *zap.Logger) (*Filter, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	filter := New(DefaultConfig(), enforcer, store, audit.NewLogger(store, zap.NewNop()), logger)
	filter.SetModeratorID("bot")
	return filter, store
}

func enabledSettings(punishment storage.Punishment, words ...string) storage.ModerationSettings {
	cfg := storage.DefaultGuildConfig("g1", "Guild")
	cfg.Moderation.AutoMod.Enabled = true
	cfg.Moderation.AutoMod.Punishment = punishment
	cfg.Moderation.BadWords = words
	return cfg.Moderation
}

func message(content string, at time.Time) Message {
	return Message{ID: "m1", GuildID: "g1", ChannelID: "c1", UserID: "u1", Username: "alice", Content: content, At: at}
}

func TestDisabledAutoModNeverMatches(t *testing.T) {
	filter, _ := newFilter(t, &fakeEnforcer{}, zap.NewNop())
	settings := enabledSettings(storage.PunishWarn, "darn")
	settings.AutoMod.Enabled = false

	if _, matched := filter.Evaluate(settings, message("DARN IT ALL TO HECK", time.Now())); matched {
		t.Fatalf("disabled auto-mod must not match")
	}
}

func TestBadWordsWinOverCaps(t *testing.T) {
	filter, _ := newFilter(t, &fakeEnforcer{}, zap.NewNop())
	verdict, matched := filter.Evaluate(enabledSettings(storage.PunishWarn, "darn"), message("DARN THIS THING", time.Now()))
	if !matched || verdict.Rule != RuleBadWords || verdict.Reason != ReasonBadWords {
		t.Fatalf("expected bad words verdict, got %+v", verdict)
	}
}

func TestCapsVerdict(t *testing.T) {
	filter, _ := newFilter(t, &fakeEnforcer{}, zap.NewNop())
	settings := enabledSettings(storage.PunishWarn)

	if verdict, matched := filter.Evaluate(settings, message("ABCDEFGHij!!", time.Now())); !matched || verdict.Rule != RuleCaps {
		t.Fatalf("expected caps verdict, got %+v", verdict)
	}
	if _, matched := filter.Evaluate(settings, message("ABCDEFGHI", time.Now())); matched {
		t.Fatalf("short message must not match caps")
	}
}

func TestSpamWinsOverWords(t *testing.T) {
	filter, _ := newFilter(t, &fakeEnforcer{}, zap.NewNop())
	settings := enabledSettings(storage.PunishWarn, "darn")
	start := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		filter.Evaluate(settings, message("hello", start.Add(time.Duration(i)*100*time.Millisecond)))
	}
	verdict, matched := filter.Evaluate(settings, message("darn", start.Add(600*time.Millisecond)))
	if !matched || verdict.Rule != RuleSpam || verdict.Reason != ReasonSpam {
		t.Fatalf("expected spam verdict, got %+v", verdict)
	}
}

func TestWarnPunishment(t *testing.T) {
	enforcer := &fakeEnforcer{}
	filter, store := newFilter(t, enforcer, zap.NewNop())
	ctx := context.Background()

	verdict, caught := filter.Handle(ctx, enabledSettings(storage.PunishWarn, "darn"), message("oh darn", time.Now()))
	if !caught || verdict.Rule != RuleBadWords {
		t.Fatalf("expected message caught")
	}
	if len(enforcer.calls) != 2 || enforcer.calls[0] != "delete" || enforcer.calls[1] != "dm" {
		t.Fatalf("unexpected enforcer calls %v", enforcer.calls)
	}

	profile, _ := store.FindUserProfile(ctx, "g1", "u1")
	if profile == nil || len(profile.Warnings) != 1 || profile.Warnings[0].Reason != ReasonBadWords {
		t.Fatalf("expected warning stored, got %+v", profile)
	}
	logs, _ := store.ListModerationLogs(ctx, "g1", time.Time{})
	if len(logs) != 1 || logs[0].Action != "warn" || logs[0].Reason != "Auto-moderation: Inappropriate language" || logs[0].ModeratorID != "bot" {
		t.Fatalf("unexpected moderation log %+v", logs)
	}
}

func TestMuteAndBanPunishments(t *testing.T) {
	ctx := context.Background()

	enforcer := &fakeEnforcer{}
	filter, store := newFilter(t, enforcer, zap.NewNop())
	before := time.Now()
	filter.Handle(ctx, enabledSettings(storage.PunishMute, "darn"), message("darn", time.Now()))
	if enforcer.until.Sub(before) < 10*time.Minute-time.Second {
		t.Fatalf("expected ten minute timeout, got until %v", enforcer.until)
	}
	profile, _ := store.FindUserProfile(ctx, "g1", "u1")
	if len(profile.Infractions) != 1 || profile.Infractions[0].Duration != "10m" {
		t.Fatalf("expected mute infraction, got %+v", profile.Infractions)
	}

	enforcer = &fakeEnforcer{}
	filter, _ = newFilter(t, enforcer, zap.NewNop())
	filter.Handle(ctx, enabledSettings(storage.PunishBan, "darn"), message("darn", time.Now()))
	if enforcer.banDays != 1 {
		t.Fatalf("expected one day of messages deleted, got %d", enforcer.banDays)
	}
}

func TestEnforceStepsAreIndependent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	enforcer := &fakeEnforcer{deleteErr: errors.New("missing access"), punishErr: errors.New("missing permissions")}
	filter, store := newFilter(t, enforcer, zap.New(core))
	ctx := context.Background()

	filter.Handle(ctx, enabledSettings(storage.PunishKick, "darn"), message("darn", time.Now()))

	if len(enforcer.calls) != 2 || enforcer.calls[1] != "kick" {
		t.Fatalf("kick must be attempted after failed delete, got %v", enforcer.calls)
	}
	stored, _ := store.ListModerationLogs(ctx, "g1", time.Time{})
	if len(stored) != 1 {
		t.Fatalf("moderation log must be written after failed punishment")
	}
	if logs.FilterMessage("automod delete failed").Len() != 1 || logs.FilterMessage("automod punishment failed").Len() != 1 {
		t.Fatalf("expected each failure logged once, got %d entries", logs.Len())
	}
}
