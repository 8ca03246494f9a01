package webhook

import "encoding/json"

const (
	EventUserCreated = "user.created"
	EventUserDeleted = "user.deleted"
)

// Event is the envelope the identity provider posts for every webhook.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type emailAddress struct {
	EmailAddress string `json:"email_address"`
}

// UserData is the subset of the provider's user object we sync.
type UserData struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	EmailAddresses []emailAddress `json:"email_addresses"`
}

// Identifier picks the best display identifier: first email, then username, then id.
func (d UserData) Identifier() string {
	if len(d.EmailAddresses) > 0 && d.EmailAddresses[0].EmailAddress != "" {
		return d.EmailAddresses[0].EmailAddress
	}
	if d.Username != "" {
		return d.Username
	}
	return d.ID
}
