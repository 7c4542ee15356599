package domain

// Member is a guild member as seen by an interaction or a directory lookup.
type Member struct {
	ID            string   `json:"id"`
	Username      string   `json:"username"`
	GlobalName    string   `json:"global_name,omitempty"`
	Discriminator string   `json:"discriminator,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Bot           bool     `json:"bot,omitempty"`
}

// HasRole reports whether the member currently holds roleID.
func (m Member) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// Mention renders a user mention.
func (m Member) Mention() string {
	return "<@" + m.ID + ">"
}

// Tag renders the account name, including the legacy discriminator when the
// account still has one.
func (m Member) Tag() string {
	if m.Discriminator == "" || m.Discriminator == "0" {
		return m.Username
	}
	return m.Username + "#" + m.Discriminator
}

// Role is a guild role.
type Role struct {
	ID   string
	Name string
}

// Mention renders a role mention.
func (r Role) Mention() string {
	return "<@&" + r.ID + ">"
}
