package auth

import "github.com/spec-kit/ticket-bot/internal/domain"

// CanManage reports whether actor may manage the ticket opened by openerID.
// The opener always may; holders of the staff role may manage any ticket.
// An empty staffRoleID means no staff is configured.
//
// Callers pass the actor as delivered with the current interaction; the
// result must not be cached because roles change between actions.
func CanManage(actor domain.Member, openerID, staffRoleID string) bool {
	if openerID != "" && actor.ID == openerID {
		return true
	}
	return IsStaff(actor, staffRoleID)
}

// IsStaff reports whether actor holds the configured staff role.
func IsStaff(actor domain.Member, staffRoleID string) bool {
	if staffRoleID == "" {
		return false
	}
	return actor.HasRole(staffRoleID)
}
