package domain

// InteractionKind separates slash commands from component clicks.
type InteractionKind int

const (
	InteractionCommand InteractionKind = iota + 1
	InteractionComponent
)

// Interaction is one user action delivered by the platform.
// Actor carries the member's roles as of this interaction.
type Interaction struct {
	ID        string
	Kind      InteractionKind
	GuildID   string
	ChannelID string
	Actor     Member
	Command   string
	CustomID  string
	Values    []string
}

// InGuild reports whether the interaction came from a guild rather than a DM.
func (i Interaction) InGuild() bool {
	return i.GuildID != ""
}
