package builtin

import (
	"context"

	"guildpilot/internal/commands"

	"github.com/bwmarrin/discordgo"
)

var eightBallAnswers = []string{
	"It is certain.",
	"It is decidedly so.",
	"Without a doubt.",
	"Yes definitely.",
	"You may rely on it.",
	"As I see it, yes.",
	"Most likely.",
	"Outlook good.",
	"Yes.",
	"Signs point to yes.",
	"Reply hazy, try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Cannot predict now.",
	"Concentrate and ask again.",
	"Don't count on it.",
	"My reply is no.",
	"My sources say no.",
	"Outlook not so good.",
	"Very doubtful.",
}

func (s *Set) eightBall() commands.Descriptor {
	return commands.Descriptor{
		Name:        "8ball",
		Description: "Ask the magic 8-ball a question",
		Category:    "Fun",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "question",
				Description: "Your question for the 8-ball",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			question := ""
			if opt := inv.Option("question"); opt != nil {
				question = opt.StringValue()
			}
			if question == "" {
				return inv.ReplyEphemeral(ctx, "❌ Please ask a question!")
			}
			return inv.ReplyEmbed(ctx, &discordgo.MessageEmbed{
				Title: "🎱 Magic 8-Ball",
				Color: color8Ball,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Question", Value: question},
					{Name: "Answer", Value: eightBallAnswers[s.intn(len(eightBallAnswers))]},
				},
				Footer:    requestedBy("Asked by", inv),
				Timestamp: s.timestamp(),
			})
		},
	}
}

func (s *Set) coinflip() commands.Descriptor {
	return commands.Descriptor{
		Name:        "coinflip",
		Description: "Flip a coin",
		Category:    "Fun",
		Handler: func(ctx context.Context, inv *commands.Invocation) error {
			result, emoji, color := "Heads", "🟡", colorHeads
			if s.intn(2) == 1 {
				result, emoji, color = "Tails", "⚪", colorTails
			}
			return inv.ReplyEmbed(ctx, &discordgo.MessageEmbed{
				Title:       "🪙 Coin Flip",
				Description: emoji + " **" + result + "**",
				Color:       color,
				Footer:      requestedBy("Flipped by", inv),
				Timestamp:   s.timestamp(),
			})
		},
	}
}
