package domain

// Role is the authority level of an authenticated actor.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// Actor is the authenticated caller as supplied by the session layer.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// IsModerator reports whether the actor holds moderation authority.
func (a Actor) IsModerator() bool { return a.Role == RoleModerator }

// Owns reports whether the actor is the owner of l.
func (a Actor) Owns(l *Listing) bool { return l != nil && a.ID != "" && l.OwnerID == a.ID }

// ParseRole maps an external role name onto a Role. "admin" is accepted as
// an alias for moderator; an empty value means a regular user.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "", "user":
		return RoleUser, true
	case "moderator", "admin":
		return RoleModerator, true
	}
	return "", false
}
