package domain

import "time"

// ButtonStyle enumerates the button colours offered by the platform.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// ComponentKind enumerates interactive controls.
type ComponentKind int

const (
	ComponentButton ComponentKind = iota + 1
	ComponentStringSelect
	ComponentUserSelect
)

// Component is a single interactive control.
type Component struct {
	Kind        ComponentKind
	CustomID    string
	Label       string
	Style       ButtonStyle
	Placeholder string
	Options     []string
	Disabled    bool
}

// Embed is a rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Footer      string
	Timestamp   time.Time
}

// File is an uploaded attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reply is the content of a message sent or edited by the bot.
// A nil Rows leaves components untouched unless ClearComponents is set.
type Reply struct {
	Content         string
	Ephemeral       bool
	Embeds          []Embed
	Rows            [][]Component
	Files           []File
	ClearComponents bool
}
