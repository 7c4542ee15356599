package domain

// Permission is a channel permission bit set. Bit positions follow the
// Discord permission layout so platform adapters can pass values through.
type Permission int64

const (
	PermissionManageChannels     Permission = 1 << 4
	PermissionViewChannel        Permission = 1 << 10
	PermissionSendMessages       Permission = 1 << 11
	PermissionManageMessages     Permission = 1 << 13
	PermissionAttachFiles        Permission = 1 << 15
	PermissionReadMessageHistory Permission = 1 << 16
)

// Has reports whether every bit of want is set.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

// Participant permissions are granted to the opener and to added users.
const ParticipantPermissions = PermissionViewChannel |
	PermissionSendMessages |
	PermissionReadMessageHistory |
	PermissionAttachFiles

// StaffPermissions are granted to the configured staff role.
const StaffPermissions = ParticipantPermissions | PermissionManageMessages

// BotPermissions are granted to the bot itself so it can manage the ticket.
const BotPermissions = ParticipantPermissions | PermissionManageChannels

// OverwriteTarget distinguishes role and member overwrites.
type OverwriteTarget int

const (
	OverwriteRole OverwriteTarget = iota
	OverwriteMember
)

// Overwrite is a per-role or per-member access rule on a channel.
type Overwrite struct {
	TargetID string
	Target   OverwriteTarget
	Allow    Permission
	Deny     Permission
}
