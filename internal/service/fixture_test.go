package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/testutil"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const (
	guildID     = "1"
	botID       = "999"
	staffRoleID = "500"
	lobbyID     = "10"
)

var (
	opener   = domain.Member{ID: "100", Username: "alice"}
	stranger = domain.Member{ID: "200", Username: "mallory"}
	guest    = domain.Member{ID: "400", Username: "carol"}
	staffS1  = domain.Member{ID: "300", Username: "sam", Roles: []string{staffRoleID}}
	staffS2  = domain.Member{ID: "301", Username: "sue", Roles: []string{"7", staffRoleID}}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	platform     *testutil.FakePlatform
	sessions     *persistence.MemorySessionStore
	clock        *testClock
	logs         *observer.ObservedLogs
	configurator *ConfiguratorService
	participants *ParticipantService
	panel        *PanelService

	mu     sync.Mutex
	sleeps []time.Duration
}

func newFixture(t *testing.T, withStaff bool) *fixture {
	t.Helper()

	f := &fixture{
		platform: testutil.NewFakePlatform(guildID, botID),
		clock:    &testClock{now: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)},
	}
	f.sessions = persistence.NewMemorySessionStore(f.clock.Now)
	for _, m := range []domain.Member{opener, stranger, guest, staffS1, staffS2} {
		f.platform.AddMember(m)
	}
	f.platform.AddChannel(domain.Channel{ID: lobbyID, Name: "lobby", Kind: domain.ChannelKindText})

	cfg := config.DiscordConfig{
		CategoryName:               config.DefaultCategoryName,
		ConfiguratorTimeoutSeconds: 120,
		SelectorTimeoutSeconds:     60,
		CloseDelaySeconds:          5,
	}
	if withStaff {
		cfg.StaffRoleID = staffRoleID
		f.platform.AddRole(domain.Role{ID: staffRoleID, Name: "Support"})
	}

	core, logs := observer.New(zapcore.DebugLevel)
	f.logs = logs
	logger := zap.New(core)

	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, logger).RegisterHandlers()

	var ids atomic.Int64
	deps := Dependencies{
		Platform:   f.platform,
		Sessions:   f.sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg,
		Now:        f.clock.Now,
		Sleep: func(ctx context.Context, d time.Duration) error {
			f.mu.Lock()
			f.sleeps = append(f.sleeps, d)
			f.mu.Unlock()
			return ctx.Err()
		},
		NewID: func() string { return fmt.Sprintf("session-%d", ids.Add(1)) },
	}
	f.configurator = NewConfiguratorService(deps)
	f.participants = NewParticipantService(deps)
	f.panel = NewPanelService(deps, f.participants)
	t.Cleanup(f.configurator.Shutdown)
	return f
}

// eventCount returns how many audit lines of the given type were written.
func (f *fixture) eventCount(typ events.EventType) int {
	return f.logs.FilterMessage(string(typ)).Len()
}

func command(actor domain.Member, name, channelID string) domain.Interaction {
	return domain.Interaction{
		ID:        "cmd-" + name,
		Kind:      domain.InteractionCommand,
		GuildID:   guildID,
		ChannelID: channelID,
		Actor:     actor,
		Command:   name,
	}
}

func click(actor domain.Member, customID, channelID string, values ...string) domain.Interaction {
	return domain.Interaction{
		ID:        "click-" + customID,
		Kind:      domain.InteractionComponent,
		GuildID:   guildID,
		ChannelID: channelID,
		Actor:     actor,
		CustomID:  customID,
		Values:    values,
	}
}

// openTicket walks actor through the menu and returns the created channel.
func (f *fixture) openTicket(t *testing.T, actor domain.Member, reason, priority string) domain.Channel {
	t.Helper()
	ctx := context.Background()
	r := &testutil.RecordingResponder{}
	if err := f.configurator.Open(ctx, command(actor, "ticket", lobbyID), r); err != nil {
		t.Fatalf("Open: %v", err)
	}
	sessionID := sessionOf(t, r.Responses[0])

	steps := []domain.Interaction{
		click(actor, menuCustomID(menuReason, sessionID), lobbyID, reason),
		click(actor, menuCustomID(menuPriority, sessionID), lobbyID, priority),
		click(actor, menuCustomID(menuConfirm, sessionID), lobbyID),
	}
	for _, in := range steps {
		if err := f.configurator.HandleComponent(ctx, in, r); err != nil {
			t.Fatalf("HandleComponent(%s): %v", in.CustomID, err)
		}
	}
	return f.ticketChannel(t, actor)
}

// ticketChannel finds the single ticket channel named after actor.
func (f *fixture) ticketChannel(t *testing.T, actor domain.Member) domain.Channel {
	t.Helper()
	categories := f.platform.CategoriesNamed(config.DefaultCategoryName)
	if len(categories) != 1 {
		t.Fatalf("got %d ticket categories, want 1", len(categories))
	}
	name := domain.TicketChannelName(actor)
	for _, ch := range f.platform.ChannelsUnder(categories[0].ID) {
		if ch.Name == name {
			return ch
		}
	}
	t.Fatalf("no ticket channel %q", name)
	return domain.Channel{}
}

func sessionOf(t *testing.T, menu domain.Reply) string {
	t.Helper()
	id, ok := ParseCustomID(menu.Rows[0][0].CustomID)
	if !ok || id.Action != ActionOpen {
		t.Fatalf("menu does not carry a session id: %+v", menu.Rows)
	}
	return id.Arg(1)
}

func requireCode(t *testing.T, err error, code, message string) {
	t.Helper()
	if !errorutil.HasCode(err, code) {
		t.Fatalf("error = %v, want code %s", err, code)
	}
	if message != "" {
		if got := errorutil.ToDomainError(err).Message; got != message {
			t.Fatalf("message = %q, want %q", got, message)
		}
	}
}
