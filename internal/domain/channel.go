package domain

// ChannelKind tags the channel variants the platform can hand back.
type ChannelKind int

const (
	ChannelKindUnknown ChannelKind = iota
	ChannelKindText
	ChannelKindThread
	ChannelKindCategory
	ChannelKindDirect
	ChannelKindVoice
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelKindText:
		return "text"
	case ChannelKindThread:
		return "thread"
	case ChannelKindCategory:
		return "category"
	case ChannelKindDirect:
		return "direct"
	case ChannelKindVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// Channel is a platform channel.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	Topic    string
	Kind     ChannelKind
}

// Mention renders a channel link.
func (c Channel) Mention() string {
	return "<#" + c.ID + ">"
}

// AcceptsParticipants reports whether member overwrites can be edited on the channel.
func (c Channel) AcceptsParticipants() bool {
	return c.Kind == ChannelKindText || c.Kind == ChannelKindThread
}
