// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

// AuthCredentialTypes represents the type of authentication credential.
type AuthCredentialTypes string

const (
	// APIKeyCredentialTypes is an API key credential.
	//
	// https://swagger.io/docs/specification/v3_0/authentication/api-keys/
	APIKeyCredentialTypes AuthCredentialTypes = "apiKey"

	// HTTPCredentialTypes is a credential for HTTP auth schemes.
	//
	// https://www.iana.org/assignments/http-authschemes/http-authschemes.xhtml
	HTTPCredentialTypes AuthCredentialTypes = "http"

	// OAuth2CredentialTypes is an OAuth2 credential.
	//
	// https://swagger.io/docs/specification/v3_0/authentication/oauth2/
	OAuth2CredentialTypes AuthCredentialTypes = "oauth2"

	// OpenIDConnectCredentialTypes is an OpenID Connect credential.
	//
	// https://swagger.io/docs/specification/v3_0/authentication/openid-connect-discovery/
	OpenIDConnectCredentialTypes AuthCredentialTypes = "openIdConnect"
)

// HTTPCredentials holds the secret part of an HTTP auth credential.
type HTTPCredentials struct {
	Username string `json:"username,omitzero"`
	Password string `json:"password,omitzero"`
	Token    string `json:"token,omitzero"`
}

// HTTPAuth represents a credentials and metadata for HTTP authentication.
//
// Scheme is the name of the HTTP Authorization scheme as defined in RFC7235,
// e.g. "basic" or "bearer".
type HTTPAuth struct {
	Scheme      string          `json:"scheme"`
	Credentials HTTPCredentials `json:"credentials"`
}

// OAuth2Auth represents credential value and its metadata for a OAuth2 credential.
type OAuth2Auth struct {
	ClientID     string `json:"client_id,omitzero"`
	ClientSecret string `json:"client_secret,omitzero"`
	// AuthURI and State can be generated by the framework so the client can verify the state.
	AuthURI string `json:"auth_uri,omitzero"`
	State   string `json:"state,omitzero"`
	// RedirectURI can be decided by the tool if the client shouldn't decide it.
	RedirectURI     string `json:"redirect_uri,omitzero"`
	AuthResponseURI string `json:"auth_response_uri,omitzero"`
	AuthCode        string `json:"auth_code,omitzero"`
	AccessToken     string `json:"access_token,omitzero"`
	RefreshToken    string `json:"refresh_token,omitzero"`
}

// AuthCredential represents an authentication credential.
type AuthCredential struct {
	AuthType AuthCredentialTypes `json:"auth_type,omitzero"`

	APIKey string      `json:"api_key,omitzero"`
	HTTP   *HTTPAuth   `json:"http,omitzero"`
	OAuth2 *OAuth2Auth `json:"oauth2,omitzero"`
}
