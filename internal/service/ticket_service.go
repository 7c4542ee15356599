package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

// Dependencies bundles the collaborators shared by the ticket services.
type Dependencies struct {
	Platform   platform.Platform
	Sessions   persistence.SessionStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.DiscordConfig

	// Now, Sleep and NewID default to the real clock, a context-aware
	// timer and random UUIDs.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	NewID func() string
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = sleepContext
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Sessions == nil {
		d.Sessions = persistence.NewMemorySessionStore(d.Now)
	}
	return d
}

// sleepContext waits for d or until ctx is done. No lock is held meanwhile.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ticketOverwrites computes the permission overwrites of a new ticket channel.
// The @everyone role shares the guild's id.
func ticketOverwrites(guildID, openerID, botID string, staffRole *domain.Role) []domain.Overwrite {
	overwrites := []domain.Overwrite{
		{TargetID: guildID, Target: domain.OverwriteRole, Deny: domain.PermissionViewChannel},
		{TargetID: openerID, Target: domain.OverwriteMember, Allow: domain.ParticipantPermissions},
	}
	if botID != "" {
		overwrites = append(overwrites, domain.Overwrite{
			TargetID: botID, Target: domain.OverwriteMember, Allow: domain.BotPermissions,
		})
	}
	if staffRole != nil {
		overwrites = append(overwrites, domain.Overwrite{
			TargetID: staffRole.ID, Target: domain.OverwriteRole, Allow: domain.StaffPermissions,
		})
	}
	return overwrites
}

// staffRole resolves the configured staff role. A role that is not configured
// or no longer exists yields nil, which means "no staff".
func staffRole(ctx context.Context, p platform.Directory, cfg config.DiscordConfig, guildID string, logger *zap.Logger) *domain.Role {
	if !cfg.HasStaffRole() {
		return nil
	}
	role, err := p.Role(ctx, guildID, cfg.StaffRoleID)
	if err != nil {
		logger.Warn("staff role unavailable; continuing without staff access",
			zap.String("guild_id", guildID),
			zap.String("staff_role_id", cfg.StaffRoleID),
			zap.Error(err))
		return nil
	}
	return &role
}

// loadChannel fetches the interaction's channel fresh from the platform.
func loadChannel(ctx context.Context, p platform.ChannelManager, in domain.Interaction) (domain.Channel, error) {
	if !in.InGuild() || in.ChannelID == "" {
		return domain.Channel{}, errorutil.NewInvalidContext("Use this inside a ticket channel.")
	}
	ch, err := p.Channel(ctx, in.ChannelID)
	if err != nil {
		if platform.IsNotFound(err) {
			return domain.Channel{}, errChannelGone
		}
		if platform.IsForbidden(err) {
			return domain.Channel{}, errorutil.NewPlatformPermissionDenied("I lack permission to view this channel.", err)
		}
		return domain.Channel{}, err
	}
	return ch, nil
}

var errChannelGone = errorutil.NewInvalidContext("This ticket channel no longer exists.")

// openerOf re-derives the ticket opener: the id bound into the clicked panel
// component wins, the topic marker covers panels without one.
func openerOf(in domain.Interaction, ch domain.Channel) string {
	if id, ok := ParseCustomID(in.CustomID); ok {
		if opener := id.Arg(0); opener != "" && opener != "0" {
			return opener
		}
	}
	return domain.OpenerFromTopic(ch.Topic)
}

func publish(ctx context.Context, d events.Dispatcher, logger *zap.Logger, now time.Time, event events.Event) {
	if d == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if err := d.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorOf(in domain.Interaction, staffRoleID string) events.Actor {
	return events.Actor{
		UserID:   in.Actor.ID,
		Username: in.Actor.Tag(),
		Staff:    auth.IsStaff(in.Actor, staffRoleID),
	}
}

func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
