package bot

import (
	"context"
	"sync"

	"guildpilot/internal/commands"

	"github.com/bwmarrin/discordgo"
)

type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// messageResponder replies to a prefix invocation in the same channel.
// Ephemeral is not available for plain messages and is ignored.
type messageResponder struct {
	sender  messageSender
	message *discordgo.Message
}

func (r *messageResponder) Reply(ctx context.Context, resp commands.Response) error {
	_, err := r.sender.ChannelMessageSendComplex(r.message.ChannelID, &discordgo.MessageSend{
		Content:   resp.Content,
		Embeds:    resp.Embeds,
		Reference: r.message.Reference(),
	}, discordgo.WithContext(ctx))
	return err
}

type interactionSender interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionResponder answers the interaction once and sends any further
// replies as followups.
type interactionResponder struct {
	sender      interactionSender
	interaction *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

func (r *interactionResponder) Reply(ctx context.Context, resp commands.Response) error {
	flags := discordgo.MessageFlags(0)
	if resp.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.responded {
		_, err := r.sender.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
			Content: resp.Content,
			Embeds:  resp.Embeds,
			Flags:   flags,
		}, discordgo.WithContext(ctx))
		return err
	}
	err := r.sender.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: resp.Content,
			Embeds:  resp.Embeds,
			Flags:   flags,
		},
	}, discordgo.WithContext(ctx))
	if err == nil {
		r.responded = true
	}
	return err
}
