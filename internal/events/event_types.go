package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketClaimed       EventType = "ticket_claimed"
	EventParticipantAdded    EventType = "participant_added"
	EventParticipantRemoved  EventType = "participant_removed"
	EventTranscriptExported  EventType = "transcript_exported"
	EventTicketMenuExpired   EventType = "ticket_menu_expired"
	EventTicketMenuCancelled EventType = "ticket_menu_cancelled"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Staff    bool   `json:"staff"`
}

// Event represents a ticket lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	GuildID   string      `json:"guild_id"`
	ChannelID string      `json:"channel_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ChannelName string `json:"channel_name"`
	CategoryID  string `json:"category_id"`
	Reason      string `json:"reason"`
	Priority    string `json:"priority"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OpenerID string `json:"opener_id,omitempty"`
	Via      string `json:"via"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	Annotation string `json:"annotation"`
	Truncated  bool   `json:"truncated"`
}

// ParticipantPayload payload for added and removed participants.
type ParticipantPayload struct {
	UserID string `json:"user_id"`
}

// TranscriptExportedPayload payload.
type TranscriptExportedPayload struct {
	FileName string `json:"file_name"`
	Messages int    `json:"messages"`
	Bytes    int    `json:"bytes"`
}

// TicketMenuPayload payload for menus that ended without a ticket.
type TicketMenuPayload struct {
	SessionID string `json:"session_id"`
}
