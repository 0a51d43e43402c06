package webapi

import (
	"context"
	"fmt"

	"guildpilot/internal/config"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"
)

var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/api/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Identity is the Discord account behind a dashboard login.
type Identity struct {
	User   SessionUser
	Guilds []*discordgo.UserGuild
}

type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

type DiscordOAuth struct {
	cfg *oauth2.Config
}

func NewDiscordOAuth(cfg config.OAuthConfig) *DiscordOAuth {
	return &DiscordOAuth{cfg: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"identify", "guilds"},
		Endpoint:     discordEndpoint,
	}}
}

func (d *DiscordOAuth) AuthCodeURL(state string) string {
	return d.cfg.AuthCodeURL(state)
}

// Exchange trades the authorization code for a token and reads the user and
// their guilds with it.
func (d *DiscordOAuth) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := d.cfg.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	session, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return Identity{}, err
	}
	user, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return Identity{}, fmt.Errorf("fetch user: %w", err)
	}
	guilds, err := session.UserGuilds(100, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return Identity{}, fmt.Errorf("fetch guilds: %w", err)
	}

	return Identity{
		User: SessionUser{
			ID:            user.ID,
			Username:      user.Username,
			Discriminator: user.Discriminator,
			Avatar:        user.Avatar,
		},
		Guilds: guilds,
	}, nil
}

// managedGuilds keeps the guilds the user may configure: owned, or with
// Administrator or Manage Server, and where present(id) holds.
func managedGuilds(guilds []*discordgo.UserGuild, present func(guildID string) bool) []ManagedGuild {
	out := []ManagedGuild{}
	for _, g := range guilds {
		if g == nil {
			continue
		}
		allowed := g.Owner ||
			g.Permissions&discordgo.PermissionAdministrator != 0 ||
			g.Permissions&discordgo.PermissionManageServer != 0
		if !allowed {
			continue
		}
		if present != nil && !present(g.ID) {
			continue
		}
		out = append(out, ManagedGuild{ID: g.ID, Name: g.Name, Icon: g.Icon, Owner: g.Owner})
	}
	return out
}
