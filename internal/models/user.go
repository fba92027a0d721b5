// internal/models/user.go
package models

// UserProfile is a read-only snapshot of the local user's profile, fetched
// fresh from the profile store at the start of a matching session.
type UserProfile struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Interests      []string `json:"interests"`
	LookingFor     string   `json:"lookingFor,omitempty"`
	IsOnline       bool     `json:"isOnline"`
	IsDiscoverable bool     `json:"isDiscoverable"`
}

// HasInterests reports whether the profile is complete enough to enter
// matching (at least one interest).
func (p *UserProfile) HasInterests() bool {
	return p != nil && len(p.Interests) > 0
}
