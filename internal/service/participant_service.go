package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Direction selects whether the participant picker adds or removes.
type Direction int

const (
	DirectionAdd Direction = iota + 1
	DirectionRemove
)

func (d Direction) action() string {
	if d == DirectionRemove {
		return ActionRemoveUserSelect
	}
	return ActionAddUserSelect
}

func (d Direction) verb() string {
	if d == DirectionRemove {
		return "remove"
	}
	return "add"
}

func directionOf(action string) (Direction, bool) {
	switch action {
	case ActionAddUserSelect:
		return DirectionAdd, true
	case ActionRemoveUserSelect:
		return DirectionRemove, true
	default:
		return 0, false
	}
}

const msgSelectorExpired = "This selection has expired. Press the button on the ticket panel again."

// ParticipantService runs the single-pick user selector used to add or
// remove ticket participants.
type ParticipantService struct {
	platform   platform.Platform
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.DiscordConfig
	now        func() time.Time
}

// NewParticipantService constructs the service.
func NewParticipantService(deps Dependencies) *ParticipantService {
	deps = deps.withDefaults()
	return &ParticipantService{
		platform:   deps.Platform,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        deps.Config,
		now:        deps.Now,
	}
}

// Prompt shows the picker. The opener and the deadline travel in the
// component id, so the picker needs no server-side state.
func (s *ParticipantService) Prompt(ctx context.Context, r Responder, dir Direction, openerID string) error {
	expires := s.now().Add(s.cfg.SelectorTimeout())
	return r.Respond(ctx, domain.Reply{
		Content:   "Select a user to " + dir.verb() + ":",
		Ephemeral: true,
		Rows: [][]domain.Component{{{
			Kind:        domain.ComponentUserSelect,
			CustomID:    selectorCustomID(dir, openerID, expires),
			Placeholder: "Select a user to " + dir.verb(),
		}}},
	})
}

// Select applies the picked user.
func (s *ParticipantService) Select(ctx context.Context, in domain.Interaction, r Responder) error {
	id, ok := ParseCustomID(in.CustomID)
	if !ok {
		return errorutil.NewInvalidContext("This control is not recognised.")
	}
	dir, ok := directionOf(id.Action)
	if !ok {
		return errorutil.NewInvalidContext("This control is not recognised.")
	}
	opener := id.Arg(0)
	expiresUnix, err := strconv.ParseInt(id.Arg(1), 10, 64)
	if err != nil || !s.now().Before(time.Unix(expiresUnix, 0)) {
		return errorutil.NewSessionExpired(msgSelectorExpired)
	}

	if !auth.CanManage(in.Actor, opener, s.cfg.StaffRoleID) {
		return errorutil.NewAuthorizationDenied("You are not allowed to manage this ticket.")
	}
	ch, err := loadChannel(ctx, s.platform, in)
	if err != nil {
		return err
	}
	if !ch.AcceptsParticipants() {
		return errorutil.NewInvalidContext("Invalid channel.")
	}
	if len(in.Values) == 0 {
		return errorutil.NewValidationError("Select a user.", nil)
	}

	target, err := s.platform.Member(ctx, in.GuildID, in.Values[0])
	if err != nil {
		if platform.IsNotFound(err) {
			return errorutil.NewInvalidContext("User is not in this server.")
		}
		return err
	}

	if dir == DirectionAdd {
		err = s.add(ctx, ch, target)
	} else {
		err = s.remove(ctx, ch, target, opener)
	}
	if err != nil {
		return err
	}

	eventType, done := events.EventParticipantAdded, "Added "+target.Mention()+" to this ticket."
	if dir == DirectionRemove {
		eventType, done = events.EventParticipantRemoved, "Removed "+target.Mention()+" from this ticket."
	}
	s.logger.Info("ticket participant changed",
		zap.String("channel_id", ch.ID),
		zap.String("user_id", in.Actor.ID),
		zap.String("target_id", target.ID),
		zap.String("direction", dir.verb()))
	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:      eventType,
		GuildID:   in.GuildID,
		ChannelID: ch.ID,
		Actor:     actorOf(in, s.cfg.StaffRoleID),
		Payload:   events.ParticipantPayload{UserID: target.ID},
	})
	return r.Update(ctx, terminal(done))
}

func (s *ParticipantService) add(ctx context.Context, ch domain.Channel, target domain.Member) error {
	err := s.platform.SetOverwrite(ctx, ch.ID, domain.Overwrite{
		TargetID: target.ID,
		Target:   domain.OverwriteMember,
		Allow:    domain.ParticipantPermissions,
	})
	return permissionError(err)
}

// remove clears the member overwrite so the member falls back to the
// category and role defaults.
func (s *ParticipantService) remove(ctx context.Context, ch domain.Channel, target domain.Member, opener string) error {
	if target.ID == opener {
		return errorutil.NewInvalidContext("The ticket opener cannot be removed.")
	}
	if target.ID == s.platform.BotUserID() {
		return errorutil.NewInvalidContext("I cannot remove myself from this ticket.")
	}
	err := s.platform.DeleteOverwrite(ctx, ch.ID, target.ID)
	if platform.IsNotFound(err) {
		// Either the overwrite or the channel is gone; check which.
		if _, chErr := s.platform.Channel(ctx, ch.ID); platform.IsNotFound(chErr) {
			return errChannelGone
		}
		return nil
	}
	return permissionError(err)
}

func permissionError(err error) error {
	switch {
	case err == nil:
		return nil
	case platform.IsForbidden(err):
		return errorutil.NewPlatformPermissionDenied("I lack permission to modify channel permissions.", err)
	case platform.IsNotFound(err):
		return errChannelGone
	default:
		return err
	}
}
