package builtin

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"guildpilot/internal/commands"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (s *Set) help() commands.Descriptor {
	return commands.Descriptor{
		Name:        "help",
		Description: "Show all available commands",
		Category:    "Utility",
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			embed := &discordgo.MessageEmbed{
				Title:       "🤖 Bot Commands",
				Description: "Here are all the available commands:",
				Color:       colorInfo,
				Footer:      requestedBy("Requested by", inv),
				Timestamp:   s.timestamp(),
			}
			if s.registry != nil {
				embed.Fields = append(embed.Fields, helpFields(s.registry.All(commands.NamespaceSlash), "/")...)
				embed.Fields = append(embed.Fields, helpFields(s.registry.All(commands.NamespacePrefix), "!")...)
			}
			return inv.ReplyEmbed(ctx, embed)
		},
	}
}

// helpFields groups descriptors by category, one inline field per category.
func helpFields(list []*commands.Descriptor, sigil string) []*discordgo.MessageEmbedField {
	byCategory := make(map[string][]string)
	for _, desc := range list {
		category := desc.Category
		if category == "" {
			category = "General"
		}
		line := fmt.Sprintf("`%s%s` - %s", sigil, desc.Name, desc.Description)
		byCategory[category] = append(byCategory[category], line)
	}
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	label := "Slash"
	if sigil != "/" {
		label = "Prefix"
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(categories))
	for _, category := range categories {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("%s · %s", category, label),
			Value:  strings.Join(byCategory[category], "\n"),
			Inline: true,
		})
	}
	return fields
}

func (s *Set) serverInfo() commands.Descriptor {
	return commands.Descriptor{
		Name:        "serverinfo",
		Description: "Get information about the current server",
		Category:    "Utility",
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			if inv.GuildID == "" {
				return inv.ReplyEphemeral(ctx, "❌ This command only works in a server!")
			}
			guild, err := s.discord.GuildWithCounts(inv.GuildID)
			if err != nil {
				return fmt.Errorf("fetch guild %s: %w", inv.GuildID, err)
			}
			channels, err := s.discord.GuildChannels(inv.GuildID)
			if err != nil {
				s.logger.Warn("serverinfo channels failed", zap.String("guild_id", inv.GuildID), zap.Error(err))
			}

			created := ""
			if ts, err := discordgo.SnowflakeTimestamp(guild.ID); err == nil {
				created = fmt.Sprintf("<t:%d:F>", ts.Unix())
			}
			members := guild.ApproximateMemberCount
			if members == 0 {
				members = guild.MemberCount
			}

			embed := &discordgo.MessageEmbed{
				Title: fmt.Sprintf("📊 %s Information", guild.Name),
				Color: colorInfo,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "🆔 Server ID", Value: guild.ID, Inline: true},
					{Name: "👑 Owner", Value: "<@" + guild.OwnerID + ">", Inline: true},
					{Name: "📅 Created", Value: orDash(created), Inline: true},
					{Name: "👥 Members", Value: strconv.Itoa(members), Inline: true},
					{Name: "💬 Channels", Value: strconv.Itoa(len(channels)), Inline: true},
					{Name: "🎭 Roles", Value: strconv.Itoa(len(guild.Roles)), Inline: true},
					{Name: "😀 Emojis", Value: strconv.Itoa(len(guild.Emojis)), Inline: true},
					{Name: "🚀 Boost Level", Value: fmt.Sprintf("Level %d (%d boosts)", guild.PremiumTier, guild.PremiumSubscriptionCount), Inline: true},
					{Name: "🔒 Verification Level", Value: strconv.Itoa(int(guild.VerificationLevel)), Inline: true},
				},
				Footer:    requestedBy("Requested by", inv),
				Timestamp: s.timestamp(),
			}
			if guild.Icon != "" {
				embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: guild.IconURL("512")}
			}
			if guild.Banner != "" {
				embed.Image = &discordgo.MessageEmbedImage{URL: guild.BannerURL("1024")}
			}
			return inv.ReplyEmbed(ctx, embed)
		},
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
