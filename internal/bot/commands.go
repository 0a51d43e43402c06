package bot

import "go.uber.org/zap"

// registerCommands overwrites the application's slash commands with the
// registry's. A dev guild ID scopes them to one guild, which propagates
// immediately instead of globally.
func (b *Bot) registerCommands() error {
	appID := b.botUserID()
	cmds := b.registry.ApplicationCommands()
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.Commands.DevGuildID, cmds)
	if err != nil {
		return err
	}
	b.logger.Info("slash commands registered",
		zap.Int("count", len(registered)),
		zap.String("guild_id", b.cfg.Commands.DevGuildID),
	)
	return nil
}
