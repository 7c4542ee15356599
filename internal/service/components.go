package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

const customIDPrefix = "ticket"

// Component actions. The router dispatches on these.
const (
	ActionOpen             = "open"
	ActionClose            = "close"
	ActionTranscript       = "transcript"
	ActionAddUser          = "add_user"
	ActionRemoveUser       = "remove_user"
	ActionClaim            = "claim"
	ActionAddUserSelect    = "add_user_select"
	ActionRemoveUserSelect = "remove_user_select"
)

// Open-ticket menu fields.
const (
	menuReason   = "reason"
	menuPriority = "priority"
	menuConfirm  = "confirm"
	menuCancel   = "cancel"
)

const blurple = 0x5865F2

// CustomID is a parsed component id of the form "ticket:<action>[:arg...]".
type CustomID struct {
	Action string
	Args   []string
}

// Arg returns the i-th argument or "".
func (c CustomID) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// ParseCustomID splits a component id created by this package.
func ParseCustomID(id string) (CustomID, bool) {
	parts := strings.Split(id, ":")
	if len(parts) < 2 || parts[0] != customIDPrefix || parts[1] == "" {
		return CustomID{}, false
	}
	return CustomID{Action: parts[1], Args: parts[2:]}, true
}

func buildCustomID(action string, args ...string) string {
	return strings.Join(append([]string{customIDPrefix, action}, args...), ":")
}

// PanelCustomID binds a panel button to the ticket opener so the binding
// survives restarts together with the message.
func PanelCustomID(action, openerID string) string {
	return buildCustomID(action, openerID)
}

func menuCustomID(field, sessionID string) string {
	return buildCustomID(ActionOpen, field, sessionID)
}

func selectorCustomID(dir Direction, openerID string, expiresAt time.Time) string {
	return buildCustomID(dir.action(), openerID, strconv.FormatInt(expiresAt.Unix(), 10))
}

// PanelRows renders the ticket action panel.
func PanelRows(openerID string) [][]domain.Component {
	return [][]domain.Component{{
		{Kind: domain.ComponentButton, Label: "Close", Style: domain.ButtonDanger, CustomID: PanelCustomID(ActionClose, openerID)},
		{Kind: domain.ComponentButton, Label: "Transcript", Style: domain.ButtonSecondary, CustomID: PanelCustomID(ActionTranscript, openerID)},
		{Kind: domain.ComponentButton, Label: "Add User", Style: domain.ButtonPrimary, CustomID: PanelCustomID(ActionAddUser, openerID)},
		{Kind: domain.ComponentButton, Label: "Remove User", Style: domain.ButtonSecondary, CustomID: PanelCustomID(ActionRemoveUser, openerID)},
		{Kind: domain.ComponentButton, Label: "Claim", Style: domain.ButtonSuccess, CustomID: PanelCustomID(ActionClaim, openerID)},
	}}
}

const menuIntro = "Please choose a reason and a priority, then press **Create Ticket**."

func menuReply(s *domain.TicketSession) domain.Reply {
	return domain.Reply{
		Content:   menuIntro + "\n\n" + menuSummary(s),
		Ephemeral: true,
		Rows: [][]domain.Component{
			{{
				Kind:        domain.ComponentStringSelect,
				CustomID:    menuCustomID(menuReason, s.ID),
				Placeholder: "Select a reason…",
				Options:     domain.Reasons,
			}},
			{{
				Kind:        domain.ComponentStringSelect,
				CustomID:    menuCustomID(menuPriority, s.ID),
				Placeholder: "Select priority…",
				Options:     domain.Priorities,
			}},
			{
				{Kind: domain.ComponentButton, Label: "Create Ticket", Style: domain.ButtonSuccess, CustomID: menuCustomID(menuConfirm, s.ID), Disabled: !s.CanConfirm()},
				{Kind: domain.ComponentButton, Label: "Cancel", Style: domain.ButtonSecondary, CustomID: menuCustomID(menuCancel, s.ID)},
			},
		},
	}
}

func menuSummary(s *domain.TicketSession) string {
	return fmt.Sprintf("**Reason:** %s\n**Priority:** %s", orUnset(s.Reason), orUnset(s.Priority))
}

func orUnset(v string) string {
	if v == "" {
		return "_not selected_"
	}
	return v
}

// terminal replaces an interactive message with text and removes its controls.
func terminal(content string) domain.Reply {
	return domain.Reply{Content: content, Ephemeral: true, ClearComponents: true}
}

func ephemeral(content string) domain.Reply {
	return domain.Reply{Content: content, Ephemeral: true}
}

func welcomeReply(opener domain.Member, reason, priority string, staffRole *domain.Role, now time.Time) domain.Reply {
	content := ""
	if staffRole != nil {
		content = staffRole.Mention()
	}
	return domain.Reply{
		Content: content,
		Embeds: []domain.Embed{{
			Title: "🎫 Ticket Created",
			Description: fmt.Sprintf(
				"Hello %s! A staff member will assist you shortly.\n\n"+
					"**Reason:** %s\n"+
					"**Priority:** %s\n\n"+
					"Use the buttons below to manage this ticket.",
				opener.Mention(), reason, priority),
			Color:     blurple,
			Footer:    fmt.Sprintf("Opened by %s • ID %s", opener.Tag(), opener.ID),
			Timestamp: now,
		}},
		Rows: PanelRows(opener.ID),
	}
}
