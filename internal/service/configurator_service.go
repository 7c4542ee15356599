package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const (
	msgMenuExpired   = "This ticket menu has expired. Run /ticket again."
	msgMenuCancelled = "Ticket creation cancelled."
	msgPanelMissing  = "Its control panel could not be posted, so ask staff to close it when you are done."
)

// ConfiguratorService drives the open-ticket menu: it collects a reason and a
// priority and creates the ticket channel on confirmation.
type ConfiguratorService struct {
	platform   platform.Platform
	sessions   persistence.SessionStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.DiscordConfig
	now        func() time.Time
	newID      func() string

	categories singleflight.Group
	confirming sync.Map

	mu     sync.Mutex
	timers map[string]*menuExpiry
}

// menuExpiry is the pending expiry of one menu. due is set when the timer
// fired while a confirmation held the menu.
type menuExpiry struct {
	timer *time.Timer
	r     Responder
	due   bool
}

// NewConfiguratorService constructs the service.
func NewConfiguratorService(deps Dependencies) *ConfiguratorService {
	deps = deps.withDefaults()
	return &ConfiguratorService{
		platform:   deps.Platform,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        deps.Config,
		now:        deps.Now,
		newID:      deps.NewID,
		timers:     make(map[string]*menuExpiry),
	}
}

// Open starts a new menu for the invoking member.
func (s *ConfiguratorService) Open(ctx context.Context, in domain.Interaction, r Responder) error {
	if !in.InGuild() {
		return errorutil.NewInvalidContext("Use this command inside a server.")
	}
	session := domain.NewTicketSession(s.newID(), in.GuildID, in.Actor, s.now(), s.cfg.ConfiguratorTimeout())
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}
	if err := r.Respond(ctx, menuReply(session)); err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return err
	}
	s.scheduleExpiry(session.ID, r)
	s.logger.Debug("ticket menu opened",
		zap.String("session_id", session.ID),
		zap.String("guild_id", in.GuildID),
		zap.String("user_id", in.Actor.ID))
	return nil
}

// HandleComponent applies a menu interaction (select, confirm or cancel).
func (s *ConfiguratorService) HandleComponent(ctx context.Context, in domain.Interaction, r Responder) error {
	id, ok := ParseCustomID(in.CustomID)
	if !ok || id.Action != ActionOpen || len(id.Args) != 2 {
		return errorutil.NewInvalidContext("This control is not recognised.")
	}
	field, sessionID := id.Arg(0), id.Arg(1)

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, persistence.ErrSessionNotFound) {
		return errorutil.NewSessionExpired(msgMenuExpired)
	}
	if err != nil {
		return err
	}
	if session.Opener.ID != in.Actor.ID {
		return errorutil.NewAuthorizationDenied("This menu belongs to someone else.")
	}

	switch field {
	case menuReason, menuPriority:
		return s.selectField(ctx, session, field, in.Values, r)
	case menuCancel:
		return s.cancel(ctx, session, in, r)
	case menuConfirm:
		return s.confirm(ctx, session, in, r)
	default:
		return errorutil.NewInvalidContext("This control is not recognised.")
	}
}

func (s *ConfiguratorService) selectField(ctx context.Context, session *domain.TicketSession, field string, values []string, r Responder) error {
	if len(values) == 0 {
		return errorutil.NewValidationError("Please pick an option.", nil)
	}
	var err error
	if field == menuReason {
		err = session.SelectReason(s.now(), values[0])
	} else {
		err = session.SelectPriority(s.now(), values[0])
	}
	if err != nil {
		return s.sessionError(ctx, session, err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}
	return r.Update(ctx, menuReply(session))
}

func (s *ConfiguratorService) cancel(ctx context.Context, session *domain.TicketSession, in domain.Interaction, r Responder) error {
	if err := session.Cancel(s.now()); err != nil {
		return s.sessionError(ctx, session, err)
	}
	s.finish(ctx, session.ID)
	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:    events.EventTicketMenuCancelled,
		GuildID: session.GuildID,
		Actor:   actorOf(in, s.cfg.StaffRoleID),
		Payload: events.TicketMenuPayload{SessionID: session.ID},
	})
	return r.Update(ctx, terminal(msgMenuCancelled))
}

func (s *ConfiguratorService) confirm(ctx context.Context, session *domain.TicketSession, in domain.Interaction, r Responder) error {
	if !s.acquire(session.ID) {
		return errorutil.NewConflict("Your ticket is already being created.", nil)
	}
	defer s.release(ctx, session.ID)

	// Reload under the guard: a confirmation that finished meanwhile has
	// already removed the session.
	session, err := s.sessions.Get(ctx, session.ID)
	if errors.Is(err, persistence.ErrSessionNotFound) {
		return errorutil.NewSessionExpired(msgMenuExpired)
	}
	if err != nil {
		return err
	}
	if err := session.CheckConfirm(s.now()); err != nil {
		if errors.Is(err, domain.ErrSelectionIncomplete) {
			return errorutil.NewValidationError("Please select both fields first.", nil)
		}
		return s.sessionError(ctx, session, err)
	}

	if err := r.DeferUpdate(ctx); err != nil {
		return err
	}

	channel, categoryID, role, err := s.createTicket(ctx, session)
	if err != nil {
		// The session stays COLLECTING so the user can retry.
		return err
	}
	panelErr := s.postPanel(ctx, session, channel, role)

	if err := session.Confirm(); err != nil {
		s.logger.Warn("ticket created from a finished menu", zap.String("session_id", session.ID), zap.Error(err))
	}
	s.finish(ctx, session.ID)

	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:      events.EventTicketCreated,
		GuildID:   session.GuildID,
		ChannelID: channel.ID,
		Actor:     actorOf(in, s.cfg.StaffRoleID),
		Payload: events.TicketCreatedPayload{
			ChannelName: channel.Name,
			CategoryID:  categoryID,
			Reason:      session.Reason,
			Priority:    session.Priority,
		},
	})

	done := "Your ticket has been created: " + channel.Mention()
	if panelErr == nil {
		return r.EditOriginal(ctx, terminal(done))
	}
	if err := r.EditOriginal(ctx, terminal(done+". "+msgPanelMissing)); err != nil {
		s.logger.Warn("failed to edit ticket menu", zap.String("session_id", session.ID), zap.Error(err))
	}
	if platform.IsForbidden(panelErr) {
		return errorutil.NewPlatformPermissionDenied("I lack permission to post the ticket panel.", panelErr)
	}
	return fmt.Errorf("post ticket panel: %w", panelErr)
}

// createTicket performs the platform side of a confirmation and returns the
// channel, its category id and the staff role it was shared with.
func (s *ConfiguratorService) createTicket(ctx context.Context, session *domain.TicketSession) (domain.Channel, string, *domain.Role, error) {
	category, err := s.resolveCategory(ctx, session.GuildID)
	if err != nil {
		if platform.IsForbidden(err) {
			return domain.Channel{}, "", nil, errorutil.NewPlatformPermissionDenied("I lack permission to create the ticket category.", err)
		}
		return domain.Channel{}, "", nil, err
	}

	role := staffRole(ctx, s.platform, s.cfg, session.GuildID, s.logger)
	opener := session.Opener
	channel, err := s.platform.CreateTextChannel(ctx, session.GuildID, platform.ChannelSpec{
		Name:       domain.TicketChannelName(opener),
		Topic:      domain.OpenerTopic(opener),
		ParentID:   category.ID,
		Overwrites: ticketOverwrites(session.GuildID, opener.ID, s.platform.BotUserID(), role),
		Reason:     "Ticket opened by " + opener.Tag() + " (" + opener.ID + ")",
	})
	if err != nil {
		if platform.IsForbidden(err) {
			return domain.Channel{}, "", nil, errorutil.NewPlatformPermissionDenied("I lack permission to create the ticket channel.", err)
		}
		return domain.Channel{}, "", nil, err
	}

	s.logger.Info("ticket created",
		zap.String("guild_id", session.GuildID),
		zap.String("channel_id", channel.ID),
		zap.String("user_id", opener.ID),
		zap.String("reason", session.Reason),
		zap.String("priority", session.Priority))
	return channel, category.ID, role, nil
}

// postPanel sends the welcome message with the action panel. The channel is
// kept when this fails.
func (s *ConfiguratorService) postPanel(ctx context.Context, session *domain.TicketSession, channel domain.Channel, role *domain.Role) error {
	welcome := welcomeReply(session.Opener, session.Reason, session.Priority, role, s.now())
	if _, err := s.platform.SendMessage(ctx, channel.ID, welcome); err != nil {
		s.logger.Error("failed to post ticket panel",
			zap.String("channel_id", channel.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// resolveCategory returns the ticket category, creating it when no category
// of the configured name exists. Concurrent callers share one lookup.
func (s *ConfiguratorService) resolveCategory(ctx context.Context, guildID string) (domain.Channel, error) {
	name := s.cfg.CategoryName
	if name == "" {
		name = config.DefaultCategoryName
	}
	v, err, _ := s.categories.Do(guildID+"/"+name, func() (interface{}, error) {
		channels, err := s.platform.GuildChannels(ctx, guildID)
		if err != nil {
			return domain.Channel{}, err
		}
		for _, ch := range channels {
			if ch.Kind == domain.ChannelKindCategory && ch.Name == name {
				return ch, nil
			}
		}
		s.logger.Info("creating ticket category", zap.String("guild_id", guildID), zap.String("name", name))
		return s.platform.CreateCategory(ctx, guildID, name, "Create ticket category")
	})
	if err != nil {
		return domain.Channel{}, err
	}
	return v.(domain.Channel), nil
}

// sessionError converts a rejected transition into a domain error. Finished
// or expired menus are dropped and answered with the expiry notice.
func (s *ConfiguratorService) sessionError(ctx context.Context, session *domain.TicketSession, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrSessionClosed):
		s.finish(ctx, session.ID)
		return errorutil.NewSessionExpired(msgMenuExpired)
	case errors.Is(err, domain.ErrUnknownOption):
		return errorutil.NewValidationError("That option is not available.", nil)
	default:
		return err
	}
}

func (s *ConfiguratorService) scheduleExpiry(sessionID string, r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[sessionID] = &menuExpiry{
		r: r,
		timer: time.AfterFunc(s.cfg.ConfiguratorTimeout(), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Expire(ctx, sessionID, r); err != nil {
				s.logger.Warn("failed to expire ticket menu", zap.String("session_id", sessionID), zap.Error(err))
			}
		}),
	}
}

// acquire takes the confirmation guard of a menu.
func (s *ConfiguratorService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.confirming.LoadOrStore(sessionID, struct{}{})
	return !busy
}

// release drops the confirmation guard and runs an expiry that arrived while
// it was held. A successful confirmation has already removed the timer.
func (s *ConfiguratorService) release(ctx context.Context, sessionID string) {
	s.mu.Lock()
	s.confirming.Delete(sessionID)
	e, ok := s.timers[sessionID]
	due := ok && e.due
	s.mu.Unlock()
	if !due {
		return
	}
	if err := s.Expire(context.WithoutCancel(ctx), sessionID, e.r); err != nil {
		s.logger.Warn("failed to expire ticket menu", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Expire ends a menu that is still collecting and replaces it with the
// expiry notice. Menus that already finished are left alone; a menu being
// confirmed expires once the confirmation gives up.
func (s *ConfiguratorService) Expire(ctx context.Context, sessionID string, r Responder) error {
	s.mu.Lock()
	e, ok := s.timers[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if _, busy := s.confirming.Load(sessionID); busy {
		e.due = true
		s.mu.Unlock()
		return nil
	}
	e.timer.Stop()
	delete(s.timers, sessionID)
	s.mu.Unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, persistence.ErrSessionNotFound) {
		return err
	}
	if session != nil && !session.Expire() {
		return nil
	}
	_ = s.sessions.Delete(ctx, sessionID)

	guildID := ""
	if session != nil {
		guildID = session.GuildID
	}
	publish(ctx, s.dispatcher, s.logger, s.now(), events.Event{
		Type:    events.EventTicketMenuExpired,
		GuildID: guildID,
		Payload: events.TicketMenuPayload{SessionID: sessionID},
	})
	return r.EditOriginal(ctx, terminal(msgMenuExpired))
}

// Shutdown stops pending expiry timers.
func (s *ConfiguratorService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *ConfiguratorService) finish(ctx context.Context, sessionID string) {
	s.stopTimer(sessionID)
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete ticket session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *ConfiguratorService) stopTimer(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.timers[sessionID]; ok {
		e.timer.Stop()
		delete(s.timers, sessionID)
	}
}
