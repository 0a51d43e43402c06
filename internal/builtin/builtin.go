package builtin

import (
	"math/rand"
	"sync"
	"time"

	"guildpilot/internal/commands"
	"guildpilot/internal/modules/audit"
	"guildpilot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord is the part of *discordgo.Session the built-in commands call.
type Discord interface {
	HeartbeatLatency() time.Duration
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildWithCounts(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

const (
	colorInfo    = 0x0099ff
	colorSuccess = 0x00ff00
	colorDanger  = 0xff0000
	color8Ball   = 0x9932cc
	colorHeads   = 0xffd700
	colorTails   = 0xc0c0c0
)

// Set holds the dependencies shared by the built-in commands.
type Set struct {
	discord   Discord
	audit     *audit.Logger
	users     storage.UserStore
	logger    *zap.Logger
	botUserID func() string
	after     func(d time.Duration, f func())
	now       func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	registry *commands.Registry
}

func New(discord Discord, auditLogger *audit.Logger, users storage.UserStore, logger *zap.Logger, botUserID func() string) *Set {
	return &Set{
		discord:   discord,
		audit:     auditLogger,
		users:     users,
		logger:    logger,
		botUserID: botUserID,
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		now:       time.Now,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register adds every built-in command to b.
func (s *Set) Register(b *commands.Builder) error {
	prefix := []commands.Descriptor{
		s.pingPrefix(),
		s.roll(),
		s.clear(),
	}
	for _, desc := range prefix {
		if err := b.Register(desc, commands.NamespacePrefix); err != nil {
			return err
		}
	}

	slash := []commands.Descriptor{
		s.pingSlash(),
		s.help(),
		s.eightBall(),
		s.coinflip(),
		s.serverInfo(),
		s.ban(),
	}
	for _, desc := range slash {
		if err := b.Register(desc, commands.NamespaceSlash); err != nil {
			return err
		}
	}
	return nil
}

// Attach gives the help command access to the built registry.
func (s *Set) Attach(registry *commands.Registry) {
	s.registry = registry
}

func (s *Set) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Intn(n)
}

func (s *Set) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func requestedBy(text string, inv *commands.Invocation) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: text + " " + inv.Username}
}
