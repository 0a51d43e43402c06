package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

type Response struct {
	Content   string
	Embeds    []*discordgo.MessageEmbed
	Ephemeral bool
}

// Responder delivers a reply on the surface the invocation arrived on.
type Responder interface {
	Reply(ctx context.Context, resp Response) error
}

// Invocation is what a handler sees. Message is set for prefix invocations,
// Interaction for slash invocations.
type Invocation struct {
	Namespace   Namespace
	Name        string
	Token       string
	Args        []string
	GuildID     string
	ChannelID   string
	UserID      string
	Username    string
	Permissions int64
	Session     *discordgo.Session
	Message     *discordgo.Message
	Interaction *discordgo.Interaction
	Responder   Responder
}

func (inv *Invocation) Reply(ctx context.Context, content string) error {
	return inv.Responder.Reply(ctx, Response{Content: content})
}

func (inv *Invocation) ReplyEphemeral(ctx context.Context, content string) error {
	return inv.Responder.Reply(ctx, Response{Content: content, Ephemeral: true})
}

func (inv *Invocation) ReplyEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	return inv.Responder.Reply(ctx, Response{Embeds: []*discordgo.MessageEmbed{embed}})
}

// Option returns the named slash option, or nil.
func (inv *Invocation) Option(name string) *discordgo.ApplicationCommandInteractionDataOption {
	if inv.Interaction == nil || inv.Interaction.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	for _, opt := range inv.Interaction.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}
