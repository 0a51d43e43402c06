package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"guildpilot/internal/analytics"
	"guildpilot/internal/commands"
	"guildpilot/internal/config"
	"guildpilot/internal/dispatch"
	"guildpilot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func TestGuildPermissions(t *testing.T) {
	guild := &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Permissions: discordgo.PermissionSendMessages},
			{ID: "mods", Permissions: discordgo.PermissionManageMessages},
			{ID: "admins", Permissions: discordgo.PermissionAdministrator},
		},
	}

	if got := guildPermissions(guild, "owner", nil); got != discordgo.PermissionAll {
		t.Fatalf("owner should hold every permission, got %d", got)
	}
	got := guildPermissions(guild, "u1", &discordgo.Member{Roles: []string{"mods", "missing"}})
	if got != discordgo.PermissionSendMessages|discordgo.PermissionManageMessages {
		t.Fatalf("unexpected member permissions %d", got)
	}
	if got := guildPermissions(guild, "u2", nil); got != discordgo.PermissionSendMessages {
		t.Fatalf("expected @everyone permissions only, got %d", got)
	}
	if got := guildPermissions(guild, "u3", &discordgo.Member{Roles: []string{"admins"}}); got != discordgo.PermissionAll {
		t.Fatalf("administrator should expand to all, got %d", got)
	}
	if got := guildPermissions(nil, "u1", nil); got != 0 {
		t.Fatalf("unknown guild should grant nothing, got %d", got)
	}
}

func TestWelcomeChannelPicksTopWritableText(t *testing.T) {
	channels := []*discordgo.Channel{
		{ID: "voice", Type: discordgo.ChannelTypeGuildVoice, Position: 0},
		{ID: "rules", Type: discordgo.ChannelTypeGuildText, Position: 1},
		{ID: "general", Type: discordgo.ChannelTypeGuildText, Position: 2},
		{ID: "announcements", Type: discordgo.ChannelTypeGuildText, Position: 3},
	}
	canSend := func(id string) bool { return id != "rules" }
	if got := welcomeChannel(channels, canSend); got != "general" {
		t.Fatalf("expected general, got %q", got)
	}
	if got := welcomeChannel(channels, func(string) bool { return false }); got != "" {
		t.Fatalf("expected no channel, got %q", got)
	}
}

func TestWelcomeEmbed(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	embed := welcomeEmbed("https://dash.example", "https://cdn/avatar.png", now)
	if embed.Title != "👋 Thanks for adding me!" || embed.Color != 0x00ff00 {
		t.Fatalf("unexpected embed header %+v", embed)
	}
	if len(embed.Fields) != 3 || !strings.Contains(embed.Fields[1].Value, "https://dash.example") {
		t.Fatalf("unexpected fields %+v", embed.Fields)
	}
	if embed.Footer == nil || embed.Footer.IconURL != "https://cdn/avatar.png" {
		t.Fatalf("unexpected footer %+v", embed.Footer)
	}
	if embed.Timestamp != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp %q", embed.Timestamp)
	}
}

func TestGuildConfigBootstrapsOnce(t *testing.T) {
	store := storage.NewMemory()
	cfg := config.DefaultConfig()
	cfg.DefaultPrefix = "?"
	b := &Bot{cfg: cfg, store: store, logger: zap.NewNop()}
	ctx := context.Background()

	first, created := b.guildConfig(ctx, "g1", "Guild One")
	if !created {
		t.Fatalf("expected config to be created")
	}
	if first.Prefix != "?" || first.GuildName != "Guild One" {
		t.Fatalf("unexpected defaults %+v", first)
	}

	stored, _ := store.FindGuildConfig(ctx, "g1")
	stored.Prefix = "$"
	if err := store.UpsertGuildConfig(ctx, *stored); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, created := b.guildConfig(ctx, "g1", "Guild One")
	if created {
		t.Fatalf("existing config must not be recreated")
	}
	if second.Prefix != "$" {
		t.Fatalf("expected stored prefix, got %q", second.Prefix)
	}
}

type failingGuildStore struct {
	*storage.Memory
}

func (failingGuildStore) FindGuildConfig(context.Context, string) (*storage.GuildConfig, error) {
	return nil, errors.New("db down")
}

func TestGuildConfigFallsBackOnStoreError(t *testing.T) {
	b := &Bot{cfg: config.DefaultConfig(), store: failingGuildStore{storage.NewMemory()}, logger: zap.NewNop()}
	cfg, created := b.guildConfig(context.Background(), "g1", "")
	if created {
		t.Fatalf("fallback must not report creation")
	}
	if cfg.Prefix != "!" || cfg.Moderation.AutoMod.Enabled {
		t.Fatalf("unexpected fallback config %+v", cfg)
	}
}

func TestUsageRecorderCountsCommand(t *testing.T) {
	store := storage.NewMemory()
	service := analytics.New(store)
	rec := &usageRecorder{users: store, analytics: service}
	ctx := context.Background()

	if err := rec.RecordCommand(ctx, "g1", "u1", "alice", "ping"); err != nil {
		t.Fatalf("record: %v", err)
	}
	profile, _ := store.FindUserProfile(ctx, "g1", "u1")
	if profile == nil || profile.Stats.CommandsUsed != 1 || profile.Username != "alice" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	report, err := service.Report(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.ByCommand["ping"] != 1 {
		t.Fatalf("expected ping counted, got %+v", report.ByCommand)
	}
}

type fakeInteractionSender struct {
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	failFirst bool
}

func (f *fakeInteractionSender) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	if f.failFirst {
		f.failFirst = false
		return errors.New("unknown interaction")
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeInteractionSender) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.followups = append(f.followups, data)
	return &discordgo.Message{}, nil
}

func TestInteractionResponderFollowsUpAfterFirstReply(t *testing.T) {
	sender := &fakeInteractionSender{}
	r := &interactionResponder{sender: sender, interaction: &discordgo.Interaction{ID: "i1"}}
	ctx := context.Background()

	if err := r.Reply(ctx, commands.Response{Content: "first"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := r.Reply(ctx, commands.Response{Content: dispatch.FailedMessage, Ephemeral: true}); err != nil {
		t.Fatalf("followup: %v", err)
	}
	if len(sender.responses) != 1 || sender.responses[0].Data.Content != "first" || sender.responses[0].Data.Flags != 0 {
		t.Fatalf("unexpected responses %+v", sender.responses)
	}
	if len(sender.followups) != 1 || sender.followups[0].Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected one ephemeral followup, got %+v", sender.followups)
	}
}

func TestInteractionResponderRetriesInitialAfterFailure(t *testing.T) {
	sender := &fakeInteractionSender{failFirst: true}
	r := &interactionResponder{sender: sender, interaction: &discordgo.Interaction{ID: "i1"}}

	if err := r.Reply(context.Background(), commands.Response{Content: "first"}); err == nil {
		t.Fatalf("expected error from failed respond")
	}
	if err := r.Reply(context.Background(), commands.Response{Content: "second"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if len(sender.responses) != 1 || len(sender.followups) != 0 {
		t.Fatalf("a failed initial response must not switch to followups")
	}
}

type fakeMessageSender struct {
	channelID string
	sent      *discordgo.MessageSend
}

func (f *fakeMessageSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelID = channelID
	f.sent = data
	return &discordgo.Message{}, nil
}

func TestMessageResponderRepliesToMessage(t *testing.T) {
	sender := &fakeMessageSender{}
	msg := &discordgo.Message{ID: "m1", ChannelID: "c1", GuildID: "g1"}
	r := &messageResponder{sender: sender, message: msg}

	if err := r.Reply(context.Background(), commands.Response{Content: "pong"}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if sender.channelID != "c1" || sender.sent.Content != "pong" {
		t.Fatalf("unexpected send %q %+v", sender.channelID, sender.sent)
	}
	if sender.sent.Reference == nil || sender.sent.Reference.MessageID != "m1" {
		t.Fatalf("expected reply reference, got %+v", sender.sent.Reference)
	}
}

type fakeModerationSession struct {
	calls []string
	until *time.Time
	days  int
}

func (f *fakeModerationSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "delete:"+messageID)
	return nil
}

func (f *fakeModerationSession) GuildMemberTimeout(guildID, userID string, until *time.Time, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "timeout:"+userID)
	f.until = until
	return nil
}

func (f *fakeModerationSession) GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "kick:"+userID)
	return nil
}

func (f *fakeModerationSession) GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "ban:"+userID)
	f.days = days
	return nil
}

func (f *fakeModerationSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeModerationSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.calls = append(f.calls, "send:"+channelID)
	return &discordgo.Message{}, nil
}

func TestSessionEnforcer(t *testing.T) {
	session := &fakeModerationSession{}
	e := &sessionEnforcer{session: session}
	ctx := context.Background()
	until := time.Now().Add(10 * time.Minute)

	_ = e.DeleteMessage(ctx, "c1", "m1")
	_ = e.Timeout(ctx, "g1", "u1", until)
	_ = e.Kick(ctx, "g1", "u1", "bye")
	_ = e.Ban(ctx, "g1", "u1", "bye", 1)
	_ = e.DirectMessage(ctx, "u1", "hi")

	want := []string{"delete:m1", "timeout:u1", "kick:u1", "ban:u1", "send:dm-u1"}
	if strings.Join(session.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v", session.calls)
	}
	if session.until == nil || !session.until.Equal(until) || session.days != 1 {
		t.Fatalf("unexpected timeout/ban arguments")
	}
}

func TestMessageEventCarriesPrefixAndPermissions(t *testing.T) {
	msg := &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   "?ping",
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}
	ev := messageEvent(nil, msg, "?", discordgo.PermissionManageMessages)
	if ev.Kind != dispatch.KindMessage || ev.Prefix != "?" || ev.UserID != "u1" || ev.Username != "alice" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Permissions != discordgo.PermissionManageMessages || ev.Responder == nil {
		t.Fatalf("unexpected permissions or responder")
	}
}

func TestAuditEmbed(t *testing.T) {
	embed := auditEmbed(storage.ModerationLog{
		Action:   "ban",
		TargetID: "u1",
		Reason:   "Auto-moderation: Spam detected",
	})
	if embed.Color != 0xff0000 || embed.Description != "Auto-moderation: Spam detected" {
		t.Fatalf("unexpected embed %+v", embed)
	}
	if embed.Fields[2].Value != "System" {
		t.Fatalf("empty moderator should render as System, got %q", embed.Fields[2].Value)
	}
}
