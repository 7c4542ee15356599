// Package platform describes the chat-platform capabilities the ticket
// workflow depends on. Implementations translate platform-specific errors
// into ErrForbidden and ErrNotFound.
package platform

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

var (
	// ErrForbidden means the bot's own platform permissions are insufficient.
	ErrForbidden = errors.New("platform: missing permissions")
	// ErrNotFound means the channel, member or role does not exist (any more).
	ErrNotFound = errors.New("platform: not found")
)

// HistoryPageSize is the largest page the platform returns for history reads.
const HistoryPageSize = 100

// ChannelSpec describes a text channel to create.
type ChannelSpec struct {
	Name       string
	Topic      string
	ParentID   string
	Overwrites []domain.Overwrite
	Reason     string
}

// Directory resolves guild-level objects.
type Directory interface {
	// BotUserID is the identity of the bot itself.
	BotUserID() string
	GuildChannels(ctx context.Context, guildID string) ([]domain.Channel, error)
	Member(ctx context.Context, guildID, userID string) (domain.Member, error)
	Role(ctx context.Context, guildID, roleID string) (domain.Role, error)
}

// ChannelCreator creates categories and ticket channels.
type ChannelCreator interface {
	CreateCategory(ctx context.Context, guildID, name, reason string) (domain.Channel, error)
	CreateTextChannel(ctx context.Context, guildID string, spec ChannelSpec) (domain.Channel, error)
}

// HistoryReader pages through channel history. Pages may come back in any
// order; beforeID restricts the page to messages older than that id.
type HistoryReader interface {
	Messages(ctx context.Context, channelID, beforeID string, limit int) ([]domain.Message, error)
}

// ChannelManager is the narrow capability the ticket panel needs on an
// existing channel.
type ChannelManager interface {
	HistoryReader
	Channel(ctx context.Context, channelID string) (domain.Channel, error)
	SetTopic(ctx context.Context, channelID, topic string) error
	DeleteChannel(ctx context.Context, channelID, reason string) error
	SetOverwrite(ctx context.Context, channelID string, overwrite domain.Overwrite) error
	DeleteOverwrite(ctx context.Context, channelID, targetID string) error
	SendMessage(ctx context.Context, channelID string, msg domain.Reply) (string, error)
}

// Platform bundles every capability.
type Platform interface {
	Directory
	ChannelCreator
	ChannelManager
}

// IsForbidden reports whether err is a platform permission failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound reports whether err is a platform not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
