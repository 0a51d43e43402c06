package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildpilot/internal/commands"
	"guildpilot/internal/cooldown"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Kind int

const (
	KindMessage Kind = iota
	KindInteraction
)

type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeUnknown   Outcome = "unknown"
	OutcomeDenied    Outcome = "denied"
	OutcomeThrottled Outcome = "throttled"
	OutcomeExecuted  Outcome = "executed"
	OutcomeFailed    Outcome = "failed"
)

const (
	DeniedMessage = "❌ You don't have permission to use this command!"
	FailedMessage = "❌ There was an error executing this command!"
)

// Event is one inbound gateway event reduced to what dispatch needs.
// Message events carry Content and Prefix, interaction events CommandName.
type Event struct {
	Kind        Kind
	GuildID     string
	ChannelID   string
	UserID      string
	Username    string
	Bot         bool
	Content     string
	Prefix      string
	CommandName string
	Permissions int64
	Responder   commands.Responder
	Session     *discordgo.Session
	Message     *discordgo.Message
	Interaction *discordgo.Interaction
}

type UsageRecorder interface {
	RecordCommand(ctx context.Context, guildID, userID, username, command string) error
}

type Dispatcher struct {
	registry        *commands.Registry
	cooldowns       *cooldown.Tracker
	logger          *zap.Logger
	usage           UsageRecorder
	defaultCooldown time.Duration
}

func New(registry *commands.Registry, cooldowns *cooldown.Tracker, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:        registry,
		cooldowns:       cooldowns,
		logger:          logger,
		defaultCooldown: commands.DefaultCooldownSeconds * time.Second,
	}
}

// SetDefaultCooldown applies to descriptors without their own cooldown.
func (d *Dispatcher) SetDefaultCooldown(cooldown time.Duration) {
	if cooldown > 0 {
		d.defaultCooldown = cooldown
	}
}

func (d *Dispatcher) cooldownFor(desc *commands.Descriptor) time.Duration {
	if desc.CooldownSeconds > 0 {
		return desc.Cooldown()
	}
	return d.defaultCooldown
}

func (d *Dispatcher) SetUsageRecorder(usage UsageRecorder) {
	d.usage = usage
}

// HandleInboundEvent runs filter, resolve, authorize, throttle, record and
// execute for one event. It never returns an error: every failure ends in
// a logged outcome.
func (d *Dispatcher) HandleInboundEvent(ctx context.Context, ev Event) Outcome {
	if ev.Bot || ev.UserID == "" {
		return OutcomeIgnored
	}

	var (
		ns    commands.Namespace
		token string
		args  []string
	)
	switch ev.Kind {
	case KindMessage:
		var ok bool
		token, args, ok = ParseInvocation(ev.Content, ev.Prefix)
		if !ok {
			return OutcomeIgnored
		}
		ns = commands.NamespacePrefix
	case KindInteraction:
		if ev.CommandName == "" {
			return OutcomeIgnored
		}
		token = ev.CommandName
		ns = commands.NamespaceSlash
	default:
		return OutcomeIgnored
	}

	desc, ok := d.registry.Resolve(token, ns)
	if !ok {
		return OutcomeUnknown
	}

	ephemeral := ns == commands.NamespaceSlash
	if !HasPermissions(ev.Permissions, desc.Permissions) {
		d.reply(ctx, ev, desc.Name, commands.Response{Content: DeniedMessage, Ephemeral: ephemeral})
		return OutcomeDenied
	}

	cooldownKey := string(ns) + ":" + desc.Name
	window := d.cooldownFor(desc)
	now := d.cooldowns.Now()
	result := d.cooldowns.Check(cooldownKey, ev.UserID, window, now)
	if !result.Allowed {
		d.reply(ctx, ev, desc.Name, commands.Response{Content: throttledMessage(ns, desc.Name, result), Ephemeral: ephemeral})
		return OutcomeThrottled
	}
	d.cooldowns.Record(cooldownKey, ev.UserID, window, now)

	inv := &commands.Invocation{
		Namespace:   ns,
		Name:        desc.Name,
		Token:       strings.ToLower(token),
		Args:        args,
		GuildID:     ev.GuildID,
		ChannelID:   ev.ChannelID,
		UserID:      ev.UserID,
		Username:    ev.Username,
		Permissions: ev.Permissions,
		Session:     ev.Session,
		Message:     ev.Message,
		Interaction: ev.Interaction,
		Responder:   ev.Responder,
	}

	err := d.execute(ctx, desc, inv)
	if d.usage != nil {
		if recErr := d.usage.RecordCommand(ctx, ev.GuildID, ev.UserID, ev.Username, desc.Name); recErr != nil {
			d.logger.Warn("command usage record failed", zap.String("command", desc.Name), zap.Error(recErr))
		}
	}
	if err != nil {
		d.logger.Error("command failed",
			zap.String("command", desc.Name),
			zap.String("namespace", string(ns)),
			zap.String("guild_id", ev.GuildID),
			zap.String("user_id", ev.UserID),
			zap.Error(err),
		)
		d.reply(ctx, ev, desc.Name, commands.Response{Content: FailedMessage, Ephemeral: ephemeral})
		return OutcomeFailed
	}
	return OutcomeExecuted
}

func (d *Dispatcher) execute(ctx context.Context, desc *commands.Descriptor, inv *commands.Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return desc.Handler(ctx, inv)
}

func (d *Dispatcher) reply(ctx context.Context, ev Event, command string, resp commands.Response) {
	if ev.Responder == nil {
		return
	}
	if err := ev.Responder.Reply(ctx, resp); err != nil {
		d.logger.Warn("dispatch reply failed", zap.String("command", command), zap.String("channel_id", ev.ChannelID), zap.Error(err))
	}
}

// ParseInvocation splits a prefixed message into a lowercased command token
// and its arguments.
func ParseInvocation(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// HasPermissions reports whether granted covers every bit in required.
// Administrator covers everything.
func HasPermissions(granted, required int64) bool {
	if required == 0 {
		return true
	}
	if granted&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return granted&required == required
}

func throttledMessage(ns commands.Namespace, name string, result cooldown.Result) string {
	if ns == commands.NamespaceSlash {
		return fmt.Sprintf("⏰ Please wait %.1f more seconds before using this command again.", result.RemainingSeconds())
	}
	return fmt.Sprintf("⏰ Please wait %.1f more seconds before using `%s` again.", result.RemainingSeconds(), name)
}
