package discord

import (
	"github.com/spec-kit/ticket-bot/internal/service"
)

// RouteConfig bundles the services behind the routes.
type RouteConfig struct {
	Configurator *service.ConfiguratorService
	Panel        *service.PanelService
	Participants *service.ParticipantService
}

// RegisterRoutes wires commands and component actions. Panel buttons are
// routed by their custom id alone, so panels posted before a restart keep
// working.
func RegisterRoutes(rt *Router, cfg RouteConfig) {
	rt.Command(CommandTicket, cfg.Configurator.Open)
	rt.Command(CommandClose, cfg.Panel.CloseCommand)

	rt.Component(service.ActionOpen, cfg.Configurator.HandleComponent)

	rt.Component(service.ActionClose, cfg.Panel.Close)
	rt.Component(service.ActionTranscript, cfg.Panel.Transcript, WithTimeout(DeferredHandlerTimeout))
	rt.Component(service.ActionAddUser, cfg.Panel.AddUser)
	rt.Component(service.ActionRemoveUser, cfg.Panel.RemoveUser)
	rt.Component(service.ActionClaim, cfg.Panel.Claim)

	rt.Component(service.ActionAddUserSelect, cfg.Participants.Select)
	rt.Component(service.ActionRemoveUserSelect, cfg.Participants.Select)
}
