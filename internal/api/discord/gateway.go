package discord

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	convert "github.com/spec-kit/ticket-bot/internal/platform/discord"
)

// ErrGatewayDisconnected is reported by the readiness check.
var ErrGatewayDisconnected = errors.New("gateway not connected")

// Gateway receives gateway events and feeds interactions to the router.
type Gateway struct {
	router    *Router
	cfg       config.DiscordConfig
	logger    *zap.Logger
	connected atomic.Bool
}

// NewGateway creates a gateway bound to router.
func NewGateway(router *Router, cfg config.DiscordConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{router: router, cfg: cfg, logger: logger}
}

// Attach registers the event handlers on session. discordgo runs each
// handler call on its own goroutine.
func (g *Gateway) Attach(s *discordgo.Session) {
	s.AddHandler(g.onReady)
	s.AddHandler(g.onResumed)
	s.AddHandler(g.onDisconnect)
	s.AddHandler(g.onInteraction)
}

// Check reports whether the gateway session is up.
func (g *Gateway) Check(context.Context) error {
	if !g.connected.Load() {
		return ErrGatewayDisconnected
	}
	return nil
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.connected.Store(true)
	if r.User != nil {
		g.logger.Info("logged in",
			zap.String("username", r.User.Username),
			zap.String("user_id", r.User.ID),
			zap.Int("guilds", len(r.Guilds)))
	}
	if g.cfg.SkipCommandSync {
		return
	}

	appID := ""
	if r.Application != nil {
		appID = r.Application.ID
	} else if r.User != nil {
		appID = r.User.ID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	synced, err := SyncCommands(ctx, s, appID, g.cfg.GuildID)
	if err != nil {
		g.logger.Error("failed to sync commands", zap.String("guild_id", g.cfg.GuildID), zap.Error(err))
		return
	}
	scope := "global"
	if g.cfg.GuildID != "" {
		scope = "guild"
	}
	g.logger.Info("synced commands", zap.Int("count", len(synced)), zap.String("scope", scope))
}

func (g *Gateway) onResumed(*discordgo.Session, *discordgo.Resumed) {
	g.connected.Store(true)
}

func (g *Gateway) onDisconnect(*discordgo.Session, *discordgo.Disconnect) {
	g.connected.Store(false)
	g.logger.Warn("gateway disconnected")
}

func (g *Gateway) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Interaction == nil {
		return
	}
	in, ok := Interaction(i.Interaction)
	if !ok {
		return
	}
	g.router.Dispatch(context.Background(), in, NewResponder(s, i.Interaction))
}

// Interaction converts a gateway interaction. Only slash commands and
// component clicks are handled.
func Interaction(i *discordgo.Interaction) (domain.Interaction, bool) {
	in := domain.Interaction{
		ID:        i.ID,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
	}
	if i.Member != nil {
		in.Actor = convert.Member(i.Member)
	} else {
		in.Actor = convert.User(i.User)
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		in.Kind = domain.InteractionCommand
		in.Command = i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		in.Kind = domain.InteractionComponent
		in.CustomID = data.CustomID
		in.Values = append([]string(nil), data.Values...)
	default:
		return domain.Interaction{}, false
	}
	return in, true
}
