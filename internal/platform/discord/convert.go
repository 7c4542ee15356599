package discord

import (
	"bytes"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Components converts component rows into discordgo action rows.
func Components(rows [][]domain.Component) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		items := make([]discordgo.MessageComponent, 0, len(row))
		for _, c := range row {
			items = append(items, component(c))
		}
		out = append(out, discordgo.ActionsRow{Components: items})
	}
	return out
}

func component(c domain.Component) discordgo.MessageComponent {
	one := 1
	switch c.Kind {
	case domain.ComponentStringSelect:
		options := make([]discordgo.SelectMenuOption, 0, len(c.Options))
		for _, o := range c.Options {
			options = append(options, discordgo.SelectMenuOption{Label: o, Value: o})
		}
		return discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    c.CustomID,
			Placeholder: c.Placeholder,
			MinValues:   &one,
			MaxValues:   1,
			Options:     options,
			Disabled:    c.Disabled,
		}
	case domain.ComponentUserSelect:
		return discordgo.SelectMenu{
			MenuType:    discordgo.UserSelectMenu,
			CustomID:    c.CustomID,
			Placeholder: c.Placeholder,
			MinValues:   &one,
			MaxValues:   1,
			Disabled:    c.Disabled,
		}
	default:
		return discordgo.Button{
			Label:    c.Label,
			Style:    buttonStyle(c.Style),
			CustomID: c.CustomID,
			Disabled: c.Disabled,
		}
	}
}

func buttonStyle(s domain.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case domain.ButtonSecondary:
		return discordgo.SecondaryButton
	case domain.ButtonSuccess:
		return discordgo.SuccessButton
	case domain.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

// Embeds converts embeds.
func Embeds(embeds []domain.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		embed := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if !e.Timestamp.IsZero() {
			embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		if e.Footer != "" {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		out = append(out, embed)
	}
	return out
}

// Files converts attachments into uploadable files.
func Files(files []domain.File) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return out
}

// Member converts a guild member. Roles are copied as delivered.
func Member(m *discordgo.Member) domain.Member {
	if m == nil {
		return domain.Member{}
	}
	out := User(m.User)
	out.Roles = append([]string(nil), m.Roles...)
	return out
}

// User converts a platform user into a role-less member.
func User(u *discordgo.User) domain.Member {
	if u == nil {
		return domain.Member{}
	}
	return domain.Member{
		ID:            u.ID,
		Username:      u.Username,
		GlobalName:    u.GlobalName,
		Discriminator: u.Discriminator,
		Bot:           u.Bot,
	}
}

// Channel converts a channel and tags its kind.
func Channel(c *discordgo.Channel) domain.Channel {
	if c == nil {
		return domain.Channel{}
	}
	return domain.Channel{
		ID:       c.ID,
		GuildID:  c.GuildID,
		ParentID: c.ParentID,
		Name:     c.Name,
		Topic:    c.Topic,
		Kind:     ChannelKind(c.Type),
	}
}

// ChannelKind maps platform channel types to the tagged kinds the core accepts.
func ChannelKind(t discordgo.ChannelType) domain.ChannelKind {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return domain.ChannelKindText
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return domain.ChannelKindThread
	case discordgo.ChannelTypeGuildCategory:
		return domain.ChannelKindCategory
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return domain.ChannelKindDirect
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		return domain.ChannelKindVoice
	default:
		return domain.ChannelKindUnknown
	}
}

func message(m *discordgo.Message) domain.Message {
	attachments := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, a.URL)
	}
	return domain.Message{
		ID:          m.ID,
		Author:      User(m.Author),
		Content:     m.Content,
		Timestamp:   m.Timestamp,
		Attachments: attachments,
	}
}

func overwrites(in []domain.Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(in))
	for _, ow := range in {
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    ow.TargetID,
			Type:  overwriteType(ow.Target),
			Allow: int64(ow.Allow),
			Deny:  int64(ow.Deny),
		})
	}
	return out
}

func overwriteType(t domain.OverwriteTarget) discordgo.PermissionOverwriteType {
	if t == domain.OverwriteMember {
		return discordgo.PermissionOverwriteTypeMember
	}
	return discordgo.PermissionOverwriteTypeRole
}
