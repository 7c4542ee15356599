package domain

import (
	"errors"
	"time"
)

// SessionState is the lifecycle state of an open-ticket menu.
type SessionState string

const (
	SessionCollecting SessionState = "COLLECTING"
	SessionConfirmed  SessionState = "CONFIRMED"
	SessionCancelled  SessionState = "CANCELLED"
	SessionExpired    SessionState = "EXPIRED"
)

var (
	ErrSessionExpired      = errors.New("ticket menu expired")
	ErrSessionClosed       = errors.New("ticket menu already finished")
	ErrSelectionIncomplete = errors.New("reason and priority must both be selected")
	ErrUnknownOption       = errors.New("option is not offered by this menu")
)

// TicketSession is the state of one user's open-ticket menu. It is owned by
// the session store; callers load it, apply a transition and save it back.
type TicketSession struct {
	ID        string       `json:"id"`
	GuildID   string       `json:"guild_id"`
	Opener    Member       `json:"opener"`
	Reason    string       `json:"reason,omitempty"`
	Priority  string       `json:"priority,omitempty"`
	State     SessionState `json:"state"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// NewTicketSession starts a menu in the COLLECTING state.
func NewTicketSession(id, guildID string, opener Member, now time.Time, ttl time.Duration) *TicketSession {
	return &TicketSession{
		ID:        id,
		GuildID:   guildID,
		Opener:    opener,
		State:     SessionCollecting,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the menu outlived its window.
func (s *TicketSession) Expired(now time.Time) bool {
	return s.State == SessionExpired || !now.Before(s.ExpiresAt)
}

// SelectReason records the reason, replacing any earlier pick.
func (s *TicketSession) SelectReason(now time.Time, reason string) error {
	if err := s.active(now); err != nil {
		return err
	}
	if !IsPresetReason(reason) {
		return ErrUnknownOption
	}
	s.Reason = reason
	return nil
}

// SelectPriority records the priority, replacing any earlier pick.
func (s *TicketSession) SelectPriority(now time.Time, priority string) error {
	if err := s.active(now); err != nil {
		return err
	}
	if !IsPresetPriority(priority) {
		return ErrUnknownOption
	}
	s.Priority = priority
	return nil
}

// CanConfirm reports whether both fields are set.
func (s *TicketSession) CanConfirm() bool {
	return s.Reason != "" && s.Priority != ""
}

// CheckConfirm validates that confirm is reachable without changing state.
func (s *TicketSession) CheckConfirm(now time.Time) error {
	if err := s.active(now); err != nil {
		return err
	}
	if !s.CanConfirm() {
		return ErrSelectionIncomplete
	}
	return nil
}

// Confirm marks the menu as done once the ticket channel exists.
func (s *TicketSession) Confirm() error {
	if s.State != SessionCollecting {
		return ErrSessionClosed
	}
	if !s.CanConfirm() {
		return ErrSelectionIncomplete
	}
	s.State = SessionConfirmed
	return nil
}

// Cancel abandons the menu.
func (s *TicketSession) Cancel(now time.Time) error {
	if err := s.active(now); err != nil {
		return err
	}
	s.State = SessionCancelled
	return nil
}

// Expire moves a still-collecting menu to EXPIRED. It reports whether the
// state changed.
func (s *TicketSession) Expire() bool {
	if s.State != SessionCollecting {
		return false
	}
	s.State = SessionExpired
	return true
}

func (s *TicketSession) active(now time.Time) error {
	switch s.State {
	case SessionCollecting:
	case SessionExpired:
		return ErrSessionExpired
	default:
		return ErrSessionClosed
	}
	if !now.Before(s.ExpiresAt) {
		s.State = SessionExpired
		return ErrSessionExpired
	}
	return nil
}
