package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/domain"
	convert "github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/service"
)

// interactionResponder answers one discordgo interaction.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

var _ service.Responder = (*interactionResponder)(nil)

// NewResponder binds a responder to an incoming interaction.
func NewResponder(session *discordgo.Session, interaction *discordgo.Interaction) service.Responder {
	return &interactionResponder{session: session, interaction: interaction}
}

func (r *interactionResponder) Respond(ctx context.Context, reply domain.Reply) error {
	return r.respond(ctx, discordgo.InteractionResponseChannelMessageWithSource, responseData(reply))
}

func (r *interactionResponder) Update(ctx context.Context, reply domain.Reply) error {
	return r.respond(ctx, discordgo.InteractionResponseUpdateMessage, responseData(reply))
}

func (r *interactionResponder) Defer(ctx context.Context, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.respond(ctx, discordgo.InteractionResponseDeferredChannelMessageWithSource, data)
}

func (r *interactionResponder) DeferUpdate(ctx context.Context) error {
	return r.respond(ctx, discordgo.InteractionResponseDeferredMessageUpdate, nil)
}

func (r *interactionResponder) Followup(ctx context.Context, reply domain.Reply) error {
	params := &discordgo.WebhookParams{
		Content:    reply.Content,
		Embeds:     convert.Embeds(reply.Embeds),
		Components: components(reply),
		Files:      convert.Files(reply.Files),
		Flags:      flags(reply),
	}
	_, err := r.session.FollowupMessageCreate(r.interaction, true, params, discordgo.WithContext(ctx))
	return err
}

func (r *interactionResponder) EditOriginal(ctx context.Context, reply domain.Reply) error {
	edit := &discordgo.WebhookEdit{
		Content: &reply.Content,
		Files:   convert.Files(reply.Files),
	}
	embeds := convert.Embeds(reply.Embeds)
	edit.Embeds = &embeds
	if rows := components(reply); rows != nil {
		edit.Components = &rows
	}
	_, err := r.session.InteractionResponseEdit(r.interaction, edit, discordgo.WithContext(ctx))
	return err
}

func (r *interactionResponder) respond(ctx context.Context, kind discordgo.InteractionResponseType, data *discordgo.InteractionResponseData) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: kind,
		Data: data,
	}, discordgo.WithContext(ctx))
}

func responseData(reply domain.Reply) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    reply.Content,
		Embeds:     convert.Embeds(reply.Embeds),
		Components: components(reply),
		Files:      convert.Files(reply.Files),
		Flags:      flags(reply),
	}
}

// components returns nil when the reply leaves existing controls alone and
// an empty slice when it removes them.
func components(reply domain.Reply) []discordgo.MessageComponent {
	if reply.ClearComponents {
		return []discordgo.MessageComponent{}
	}
	if len(reply.Rows) == 0 {
		return nil
	}
	return convert.Components(reply.Rows)
}

func flags(reply domain.Reply) discordgo.MessageFlags {
	if reply.Ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}
