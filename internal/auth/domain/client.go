package domain

import "time"

type Client struct {
	ID           string
	Name         string
	SecretHash   string
	RedirectURIs []string
	Scopes       []string
	Protected    bool // If true, client cannot be deleted (e.g. bootstrap client)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllowsRedirect reports whether uri is registered for this client. Exact
// string match, no wildcard or prefix logic.
func (c *Client) AllowsRedirect(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
