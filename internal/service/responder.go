package service

import (
	"context"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Responder answers one interaction. The platform requires exactly one of
// Respond, Update, Defer or DeferUpdate before Followup or EditOriginal.
type Responder interface {
	// Respond sends a new message in reply to the interaction.
	Respond(ctx context.Context, reply domain.Reply) error
	// Update replaces the message the clicked component belongs to.
	Update(ctx context.Context, reply domain.Reply) error
	// Defer acknowledges now and promises a follow-up message.
	Defer(ctx context.Context, ephemeral bool) error
	// DeferUpdate acknowledges a component click and promises an edit.
	DeferUpdate(ctx context.Context) error
	Followup(ctx context.Context, reply domain.Reply) error
	// EditOriginal edits the first response (or the component's message
	// after DeferUpdate).
	EditOriginal(ctx context.Context, reply domain.Reply) error
}
