package auth

import "fmt"

// Well-known metadata paths advertised in challenges (RFC 9728 / RFC 8414).
const (
	ProtectedResourcePath   = "/.well-known/oauth-protected-resource"
	AuthorizationServerPath = "/.well-known/oauth-authorization-server"
)

// Challenge builds a WWW-Authenticate header value for the tenant realm.
// invalidToken adds the RFC 6750 error attribute for rejected credentials.
func Challenge(realm string, invalidToken bool) string {
	s := fmt.Sprintf("Bearer realm=%q, resource_metadata=%q", realm, ProtectedResourcePath)
	if invalidToken {
		s += `, error="invalid_token"`
	}
	return s
}

// ProtectedResourceMetadata is the RFC 9728 document served at
// ProtectedResourcePath.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
}

// AuthorizationServerMetadata is the RFC 8414 document served at
// AuthorizationServerPath.
type AuthorizationServerMetadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}
