package oauth

import (
	"golang.org/x/oauth2"
)

// Provider describes a third-party OAuth provider a photon may request
// tokens for. The actual authorization-code exchange is performed by an
// external collaborator; this core only needs enough to build the
// authorization URL and track the elicitation.
type Provider struct {
	Name        string
	AuthURL     string
	TokenURL    string
	ClientID    string
	RedirectURI string
}

// config materializes an x/oauth2 configuration for the requested scopes.
func (p Provider) config(scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    p.ClientID,
		RedirectURL: p.RedirectURI,
		Scopes:      scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
	}
}

// authCodeURL builds the provider authorization URL with a PKCE S256
// challenge. The state parameter carries the elicitation id so the callback
// can be matched to the pending request.
func (p Provider) authCodeURL(elicitationID, verifier string, scopes []string) string {
	return p.config(scopes).AuthCodeURL(elicitationID, oauth2.S256ChallengeOption(verifier))
}
