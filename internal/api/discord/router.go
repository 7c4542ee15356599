// Package discord routes gateway interactions to the ticket services.
package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

const (
	// DefaultHandlerTimeout bounds one interaction, close delay included.
	DefaultHandlerTimeout = 2 * time.Minute
	// DeferredHandlerTimeout bounds routes that acknowledge first and answer
	// with a follow-up. Interaction tokens stay valid for 15 minutes.
	DeferredHandlerTimeout = 14 * time.Minute
)

// HandlerFunc handles one routed interaction.
type HandlerFunc func(ctx context.Context, in domain.Interaction, r service.Responder) error

// RouteOption customises a single route.
type RouteOption func(*route)

// WithTimeout overrides the router's handler timeout for one route.
func WithTimeout(d time.Duration) RouteOption {
	return func(r *route) {
		r.timeout = d
	}
}

type route struct {
	handler HandlerFunc
	timeout time.Duration
}

// Router dispatches commands by name and components by custom id action.
type Router struct {
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
	commands   map[string]route
	components map[string]route
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &Router{
		logger:     logger,
		metrics:    metrics,
		timeout:    timeout,
		commands:   make(map[string]route),
		components: make(map[string]route),
	}
}

// Command registers a slash command handler.
func (rt *Router) Command(name string, h HandlerFunc, opts ...RouteOption) {
	rt.commands[name] = newRoute(h, opts)
}

// Component registers a handler for a custom id action.
func (rt *Router) Component(action string, h HandlerFunc, opts ...RouteOption) {
	rt.components[action] = newRoute(h, opts)
}

func newRoute(h HandlerFunc, opts []RouteOption) route {
	r := route{handler: h}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Dispatch runs the matching handler. Errors and panics never escape: they
// become an ephemeral reply to the actor.
func (rt *Router) Dispatch(ctx context.Context, in domain.Interaction, r service.Responder) {
	name, target := rt.lookup(in)
	timeout := target.timeout
	if timeout <= 0 {
		timeout = rt.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	tracked := &trackingResponder{Responder: r}
	logger := rt.logger.With(
		zap.String("interaction_id", in.ID),
		zap.String("route", name),
		zap.String("guild_id", in.GuildID),
		zap.String("channel_id", in.ChannelID),
		zap.String("user_id", in.Actor.ID),
	)

	err := rt.invoke(ctx, target.handler, in, tracked, logger)
	outcome := "ok"
	if err != nil {
		domainErr := apperrors.ToDomainError(err)
		outcome = domainErr.Code
		rt.metrics.RecordError(name, domainErr.Code)
		if domainErr.HTTPStatus >= 500 {
			logger.Error("interaction failed", zap.String("code", domainErr.Code), zap.Error(err))
		} else {
			logger.Info("interaction rejected", zap.String("code", domainErr.Code), zap.Error(err))
		}
		// The handler context may be the reason for the failure.
		replyCtx, cancelReply := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		// An expired menu or picker is replaced in place.
		replace := domainErr.Code == apperrors.CodeSessionExpired && in.Kind == domain.InteractionComponent
		replyErr := tracked.fail(replyCtx, domainErr.Message, replace)
		cancelReply()
		if replyErr != nil {
			logger.Warn("failed to report error to user", zap.Error(replyErr))
		}
	}

	elapsed := time.Since(start)
	rt.metrics.RecordInteraction(name, outcome, elapsed)
	logger.Debug("interaction handled", zap.String("outcome", outcome), zap.Duration("duration", elapsed))
}

// lookup returns the metrics name of the route and its registration. Unknown
// routes come back with a nil handler.
func (rt *Router) lookup(in domain.Interaction) (string, route) {
	switch in.Kind {
	case domain.InteractionCommand:
		return "command:" + in.Command, rt.commands[in.Command]
	case domain.InteractionComponent:
		id, ok := service.ParseCustomID(in.CustomID)
		if !ok {
			return "component:unknown", route{}
		}
		return "component:" + id.Action, rt.components[id.Action]
	default:
		return "unknown", route{}
	}
}

func (rt *Router) invoke(ctx context.Context, h HandlerFunc, in domain.Interaction, r service.Responder, logger *zap.Logger) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic recovered", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = apperrors.NewInternalError(fmt.Errorf("panic: %v", p))
		}
	}()
	if h == nil {
		return apperrors.NewInvalidContext("This action is not available.")
	}
	return h(ctx, in, r)
}

// trackingResponder remembers whether the interaction was acknowledged so an
// error can be delivered through the right channel.
type trackingResponder struct {
	service.Responder

	mu    sync.Mutex
	acked bool
}

func (t *trackingResponder) ack(err error) error {
	if err == nil {
		t.mu.Lock()
		t.acked = true
		t.mu.Unlock()
	}
	return err
}

func (t *trackingResponder) Respond(ctx context.Context, reply domain.Reply) error {
	return t.ack(t.Responder.Respond(ctx, reply))
}

func (t *trackingResponder) Update(ctx context.Context, reply domain.Reply) error {
	return t.ack(t.Responder.Update(ctx, reply))
}

func (t *trackingResponder) Defer(ctx context.Context, ephemeral bool) error {
	return t.ack(t.Responder.Defer(ctx, ephemeral))
}

func (t *trackingResponder) DeferUpdate(ctx context.Context) error {
	return t.ack(t.Responder.DeferUpdate(ctx))
}

// fail delivers an error message. With replace set, an unacknowledged
// component interaction has its message swapped for the error and its
// controls removed.
func (t *trackingResponder) fail(ctx context.Context, message string, replace bool) error {
	t.mu.Lock()
	acked := t.acked
	t.mu.Unlock()

	reply := domain.Reply{Content: message, Ephemeral: true}
	switch {
	case acked:
		return t.Responder.Followup(ctx, reply)
	case replace:
		reply.ClearComponents = true
		return t.Responder.Update(ctx, reply)
	default:
		return t.Responder.Respond(ctx, reply)
	}
}
