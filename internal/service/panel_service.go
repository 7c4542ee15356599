package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/transcript"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// PanelService implements the actions of the persistent ticket panel and the
// /close command. Every action re-reads the channel and re-checks access.
type PanelService struct {
	platform     platform.Platform
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	cfg          config.DiscordConfig
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	exporter     *transcript.Exporter
	participants *ParticipantService
}

// NewPanelService constructs the service.
func NewPanelService(deps Dependencies, participants *ParticipantService) *PanelService {
	deps = deps.withDefaults()
	return &PanelService{
		platform:     deps.Platform,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		cfg:          deps.Config,
		now:          deps.Now,
		sleep:        deps.Sleep,
		exporter:     transcript.NewExporter(deps.Platform, platform.HistoryPageSize),
		participants: participants,
	}
}

// Close handles the panel's Close button.
func (s *PanelService) Close(ctx context.Context, in domain.Interaction, r Responder) error {
	ch, err := loadChannel(ctx, s.platform, in)
	if err != nil {
		return err
	}
	opener := openerOf(in, ch)
	if !auth.CanManage(in.Actor, opener, s.cfg.StaffRoleID) {
		return errorutil.NewAuthorizationDenied("You are not allowed to close this ticket.")
	}
	if ch.Kind != domain.ChannelKindText {
		return errorutil.NewInvalidContext("Invalid channel.")
	}
	return s.closeChannel(ctx, in, ch, opener, "panel", r)
}

// CloseCommand handles /close: staff only, inside a ticket channel.
func (s *PanelService) CloseCommand(ctx context.Context, in domain.Interaction, r Responder) error {
	ch, err := loadChannel(ctx, s.platform, in)
	if err != nil {
		return err
	}
	if ch.Kind != domain.ChannelKindText || !s.isTicketChannel(ctx, ch) {
		return errorutil.NewInvalidContext("Use this inside a ticket channel.")
	}
	if !s.cfg.HasStaffRole() {
		return errorutil.NewConfigurationMissing("No staff role is configured, so nobody can use this command. Use the Close button instead.")
	}
	if !auth.IsStaff(in.Actor, s.cfg.StaffRoleID) {
		return errorutil.NewAuthorizationDenied("Only staff can use this command.")
	}
	return s.closeChannel(ctx, in, ch, domain.OpenerFromTopic(ch.Topic), "command", r)
}

// closeChannel acknowledges, waits out the grace delay and deletes the
// channel. Other actions on the channel may run during the delay.
func (s *PanelService) closeChannel(ctx context.Context, in domain.Interaction, ch domain.Channel, opener, via string, r Responder) error {
	delay := s.cfg.CloseDelay()
	if err := r.Respond(ctx, ephemeral(fmt.Sprintf("Closing in %d seconds…", int(delay/time.Second)))); err != nil {
		return err
	}
	if err := s.sleep(ctx, delay); err != nil {
		if isContextDone(err) {
			s.logger.Info("ticket close abandoned", zap.String("channel_id", ch.ID), zap.Error(err))
		}
		return err
	}

	if err := s.platform.DeleteChannel(ctx, ch.ID, "Closed by "+in.Actor.Tag()); err != nil {
		switch {
		case platform.IsForbidden(err):
			return errorutil.NewPlatformPermissionDenied("I lack permission to delete this channel.", err)
		case platform.IsNotFound(err):
			return errChannelGone
		default:
			return err
		}
	}

	s.logger.Info("ticket closed",
		zap.String("guild_id", in.GuildID),
		zap.String("channel_id", ch.ID),
		zap.String("user_id", in.Actor.ID),
		zap.String("via", via))
	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:      events.EventTicketClosed,
		GuildID:   in.GuildID,
		ChannelID: ch.ID,
		Actor:     actorOf(in, s.cfg.StaffRoleID),
		Payload:   events.TicketClosedPayload{OpenerID: opener, Via: via},
	})
	return nil
}

// Transcript exports the channel history as a file. The interaction is
// acknowledged first because large channels take many history pages.
func (s *PanelService) Transcript(ctx context.Context, in domain.Interaction, r Responder) error {
	ch, err := loadChannel(ctx, s.platform, in)
	if err != nil {
		return err
	}
	if !auth.CanManage(in.Actor, openerOf(in, ch), s.cfg.StaffRoleID) {
		return errorutil.NewAuthorizationDenied("You are not allowed to get a transcript.")
	}
	if ch.Kind != domain.ChannelKindText {
		return errorutil.NewInvalidContext("Invalid channel.")
	}
	if err := r.Defer(ctx, true); err != nil {
		return err
	}

	artifact, err := s.exporter.Export(ctx, ch)
	if err != nil {
		switch {
		case platform.IsForbidden(err):
			return errorutil.NewPlatformPermissionDenied("I lack permission to read this channel's history.", err)
		case platform.IsNotFound(err):
			return errChannelGone
		default:
			return err
		}
	}

	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:      events.EventTranscriptExported,
		GuildID:   in.GuildID,
		ChannelID: ch.ID,
		Actor:     actorOf(in, s.cfg.StaffRoleID),
		Payload: events.TranscriptExportedPayload{
			FileName: artifact.FileName,
			Messages: artifact.Messages,
			Bytes:    len(artifact.Body),
		},
	})
	return r.Followup(ctx, domain.Reply{
		Content:   "Here is the transcript.",
		Ephemeral: true,
		Files:     []domain.File{artifact.File()},
	})
}

// AddUser opens the participant picker in add mode.
func (s *PanelService) AddUser(ctx context.Context, in domain.Interaction, r Responder) error {
	return s.openSelector(ctx, in, r, DirectionAdd)
}

// RemoveUser opens the participant picker in remove mode.
func (s *PanelService) RemoveUser(ctx context.Context, in domain.Interaction, r Responder) error {
	return s.openSelector(ctx, in, r, DirectionRemove)
}

func (s *PanelService) openSelector(ctx context.Context, in domain.Interaction, r Responder, dir Direction) error {
	ch, err := loadChannel(ctx, s.platform, in)
	if err != nil {
		return err
	}
	opener := openerOf(in, ch)
	if !auth.CanManage(in.Actor, opener, s.cfg.StaffRoleID) {
		return errorutil.NewAuthorizationDenied("You are not allowed to manage this ticket.")
	}
	return s.participants.Prompt(ctx, r, dir, opener)
}

// Claim records a staff member taking the ticket in the channel topic and
// announces it in the channel.
func (s *PanelService) Claim(ctx context.Context, in domain.Interaction, r Responder) error {
	if !auth.IsStaff(in.Actor, s.cfg.StaffRoleID) {
		return errorutil.NewAuthorizationDenied("Only staff can claim tickets.")
	}
	ch, err := loadChannel(ctx, s.platform, in)
	if err != nil {
		return err
	}
	if ch.Kind != domain.ChannelKindText {
		return errorutil.NewInvalidContext("Invalid channel.")
	}

	// Topic edits are rate limited per channel and may wait well past the
	// acknowledgement window.
	if err := r.Defer(ctx, false); err != nil {
		return err
	}

	note := domain.ClaimAnnotation(in.Actor, s.now())
	topic := domain.AppendTopicAnnotation(ch.Topic, note, domain.TopicLimit)
	truncated := topic != domain.AppendTopicAnnotation(ch.Topic, note, math.MaxInt)
	if err := s.platform.SetTopic(ctx, ch.ID, topic); err != nil {
		switch {
		case platform.IsForbidden(err):
			return errorutil.NewPlatformPermissionDenied("I lack permission to edit this channel's topic.", err)
		case platform.IsNotFound(err):
			return errChannelGone
		default:
			return err
		}
	}

	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:      events.EventTicketClaimed,
		GuildID:   in.GuildID,
		ChannelID: ch.ID,
		Actor:     actorOf(in, s.cfg.StaffRoleID),
		Payload: events.TicketClaimedPayload{
			Annotation: note,
			Truncated:  truncated,
		},
	})
	return r.Followup(ctx, domain.Reply{Content: "Ticket claimed by " + in.Actor.Mention() + "."})
}

// isTicketChannel reports whether ch was created by the ticket workflow:
// it carries the opener marker or sits under the ticket category.
func (s *PanelService) isTicketChannel(ctx context.Context, ch domain.Channel) bool {
	if domain.OpenerFromTopic(ch.Topic) != "" {
		return true
	}
	if ch.ParentID == "" {
		return false
	}
	parent, err := s.platform.Channel(ctx, ch.ParentID)
	if err != nil {
		s.logger.Debug("parent lookup failed", zap.String("channel_id", ch.ID), zap.Error(err))
		return false
	}
	name := s.cfg.CategoryName
	if name == "" {
		name = config.DefaultCategoryName
	}
	return parent.Kind == domain.ChannelKindCategory && parent.Name == name
}
