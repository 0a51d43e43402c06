package builtin

import (
	"context"
	"fmt"
	"time"

	"guildpilot/internal/commands"

	"github.com/bwmarrin/discordgo"
)

func (s *Set) pingPrefix() commands.Descriptor {
	return commands.Descriptor{
		Name:            "ping",
		Aliases:         []string{"latency"},
		Description:     "Shows the bot's latency",
		Category:        "Utility",
		CooldownSeconds: 3,
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			roundtrip := time.Duration(0)
			if inv.Message != nil && !inv.Message.Timestamp.IsZero() {
				roundtrip = s.now().Sub(inv.Message.Timestamp)
			}
			return inv.Reply(ctx, fmt.Sprintf("🏓 Pong!\n**Roundtrip latency:** %dms\n**WebSocket heartbeat:** %dms",
				roundtrip.Milliseconds(), s.discord.HeartbeatLatency().Milliseconds()))
		},
	}
}

func (s *Set) pingSlash() commands.Descriptor {
	return commands.Descriptor{
		Name:        "ping",
		Description: "Check the bot's latency",
		Category:    "Utility",
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			roundtrip := time.Duration(0)
			if inv.Interaction != nil {
				if created, err := discordgo.SnowflakeTimestamp(inv.Interaction.ID); err == nil {
					roundtrip = s.now().Sub(created)
				}
			}
			return inv.ReplyEmbed(ctx, &discordgo.MessageEmbed{
				Title: "🏓 Pong!",
				Color: colorSuccess,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Roundtrip Latency", Value: fmt.Sprintf("%dms", roundtrip.Milliseconds()), Inline: true},
					{Name: "WebSocket Heartbeat", Value: fmt.Sprintf("%dms", s.discord.HeartbeatLatency().Milliseconds()), Inline: true},
				},
				Timestamp: s.timestamp(),
			})
		},
	}
}
