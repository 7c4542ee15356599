package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Slash command names.
const (
	CommandTicket = "ticket"
	CommandClose  = "close"
)

// Commands returns the application commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	guildOnly := false
	return []*discordgo.ApplicationCommand{
		{
			Name:         CommandTicket,
			Description:  "Open a new support ticket",
			DMPermission: &guildOnly,
		},
		{
			Name:         CommandClose,
			Description:  "Close this ticket (channel will be deleted)",
			DMPermission: &guildOnly,
		},
	}
}

// SyncCommands replaces the registered commands with Commands. An empty
// guildID registers them globally.
func SyncCommands(ctx context.Context, s *discordgo.Session, appID, guildID string) ([]*discordgo.ApplicationCommand, error) {
	return s.ApplicationCommandBulkOverwrite(appID, guildID, Commands(), discordgo.WithContext(ctx))
}
