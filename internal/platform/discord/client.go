// Package discord implements the platform capabilities on top of discordgo.
package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Client adapts a discordgo session to platform.Platform.
type Client struct {
	session *discordgo.Session
}

var _ platform.Platform = (*Client)(nil)

// NewClient wraps an opened or unopened session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

// BotUserID returns the bot's own user id once the gateway is ready.
func (c *Client) BotUserID() string {
	if c.session.State == nil || c.session.State.User == nil {
		return ""
	}
	return c.session.State.User.ID
}

func (c *Client) GuildChannels(ctx context.Context, guildID string) ([]domain.Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	out := make([]domain.Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, Channel(ch))
	}
	return out, nil
}

func (c *Client) Member(ctx context.Context, guildID, userID string) (domain.Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Member{}, translate(err)
	}
	return Member(m), nil
}

func (c *Client) Role(ctx context.Context, guildID, roleID string) (domain.Role, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Role{}, translate(err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return domain.Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return domain.Role{}, platform.ErrNotFound
}

func (c *Client) CreateCategory(ctx context.Context, guildID, name, reason string) (domain.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return domain.Channel{}, translate(err)
	}
	return Channel(ch), nil
}

func (c *Client) CreateTextChannel(ctx context.Context, guildID string, spec platform.ChannelSpec) (domain.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites(spec.Overwrites),
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(spec.Reason))
	if err != nil {
		return domain.Channel{}, translate(err)
	}
	return Channel(ch), nil
}

func (c *Client) Channel(ctx context.Context, channelID string) (domain.Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return domain.Channel{}, translate(err)
	}
	return Channel(ch), nil
}

func (c *Client) SetTopic(ctx context.Context, channelID, topic string) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Topic: topic}, discordgo.WithContext(ctx))
	return translate(err)
}

func (c *Client) DeleteChannel(ctx context.Context, channelID, reason string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return translate(err)
}

func (c *Client) SetOverwrite(ctx context.Context, channelID string, ow domain.Overwrite) error {
	err := c.session.ChannelPermissionSet(channelID, ow.TargetID, overwriteType(ow.Target),
		int64(ow.Allow), int64(ow.Deny), discordgo.WithContext(ctx))
	return translate(err)
}

func (c *Client) DeleteOverwrite(ctx context.Context, channelID, targetID string) error {
	return translate(c.session.ChannelPermissionDelete(channelID, targetID, discordgo.WithContext(ctx)))
}

func (c *Client) Messages(ctx context.Context, channelID, beforeID string, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > platform.HistoryPageSize {
		limit = platform.HistoryPageSize
	}
	msgs, err := c.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, message(m))
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg domain.Reply) (string, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     Embeds(msg.Embeds),
		Components: Components(msg.Rows),
		Files:      Files(msg.Files),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	return sent.ID, nil
}

// translate maps REST failures onto the platform error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return errors.Join(platform.ErrForbidden, err)
		case http.StatusNotFound:
			return errors.Join(platform.ErrNotFound, err)
		}
	}
	return err
}
