// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"maps"
	"slices"
)

// OAuthGrantType represents the OAuth2 flow (or grant type).
type OAuthGrantType string

const (
	ClientCredentialsGrant OAuthGrantType = "client_credentials"
	AuthorizationCodeGrant OAuthGrantType = "authorization_code"
	ImplicitGrant          OAuthGrantType = "implicit"
	PasswordGrant          OAuthGrantType = "password"
)

// OAuthFlow represents an OAuth2 flow configuration.
type OAuthFlow struct {
	AuthorizationURL string            `json:"authorizationUrl,omitzero"`
	TokenURL         string            `json:"tokenUrl,omitzero"`
	RefreshURL       string            `json:"refreshUrl,omitzero"`
	Scopes           map[string]string `json:"scopes,omitzero"`
}

// ScopeNames returns the sorted scope names of the flow.
func (f *OAuthFlow) ScopeNames() []string {
	if f == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(f.Scopes))
}

// OAuthFlows represents an OAuth2 flow configurations.
type OAuthFlows struct {
	Implicit          *OAuthFlow `json:"implicit,omitzero"`
	Password          *OAuthFlow `json:"password,omitzero"`
	ClientCredentials *OAuthFlow `json:"clientCredentials,omitzero"`
	AuthorizationCode *OAuthFlow `json:"authorizationCode,omitzero"`
}

// GrantType determines the grant type from the configured flows.
func (f *OAuthFlows) GrantType() OAuthGrantType {
	switch {
	case f == nil:
		return ""
	case f.ClientCredentials != nil:
		return ClientCredentialsGrant
	case f.AuthorizationCode != nil:
		return AuthorizationCodeGrant
	case f.Implicit != nil:
		return ImplicitGrant
	case f.Password != nil:
		return PasswordGrant
	default:
		return ""
	}
}

// AuthScheme describes how a tool expects to be authenticated.
//
// Type selects which of the remaining fields are meaningful:
//
//   - apiKey: In and Name.
//   - http: Scheme.
//   - oauth2: Flows.
//   - openIdConnect: OpenIDConnectURL, or the discovered endpoints and Scopes.
type AuthScheme struct {
	Type AuthCredentialTypes `json:"type"`

	In     string `json:"in,omitzero"`
	Name   string `json:"name,omitzero"`
	Scheme string `json:"scheme,omitzero"`

	Flows *OAuthFlows `json:"flows,omitzero"`

	OpenIDConnectURL      string   `json:"openIdConnectUrl,omitzero"`
	AuthorizationEndpoint string   `json:"authorization_endpoint,omitzero"`
	TokenEndpoint         string   `json:"token_endpoint,omitzero"`
	Scopes                []string `json:"scopes,omitzero"`
}

// NeedsExchange reports whether credentials for the scheme go through an OAuth2 style exchange.
func (s *AuthScheme) NeedsExchange() bool {
	return s != nil && (s.Type == OAuth2CredentialTypes || s.Type == OpenIDConnectCredentialTypes)
}

// authorizationEndpoint returns the authorization URL and scopes to use when
// generating an auth URI.
func (s *AuthScheme) authorizationEndpoint() (string, []string) {
	if s.Type == OpenIDConnectCredentialTypes {
		return s.AuthorizationEndpoint, s.Scopes
	}
	if s.Flows == nil {
		return "", nil
	}

	switch {
	case s.Flows.Implicit != nil && s.Flows.Implicit.AuthorizationURL != "":
		return s.Flows.Implicit.AuthorizationURL, s.Flows.Implicit.ScopeNames()
	case s.Flows.AuthorizationCode != nil && s.Flows.AuthorizationCode.AuthorizationURL != "":
		return s.Flows.AuthorizationCode.AuthorizationURL, s.Flows.AuthorizationCode.ScopeNames()
	case s.Flows.ClientCredentials != nil && s.Flows.ClientCredentials.TokenURL != "":
		return s.Flows.ClientCredentials.TokenURL, s.Flows.ClientCredentials.ScopeNames()
	case s.Flows.Password != nil && s.Flows.Password.TokenURL != "":
		return s.Flows.Password.TokenURL, s.Flows.Password.ScopeNames()
	}
	return "", nil
}

// tokenEndpoint returns the token URL and scopes to use when exchanging an auth code.
func (s *AuthScheme) tokenEndpoint() (string, []string) {
	if s.Type == OpenIDConnectCredentialTypes {
		return s.TokenEndpoint, s.Scopes
	}
	if s.Flows == nil || s.Flows.AuthorizationCode == nil {
		return "", nil
	}
	return s.Flows.AuthorizationCode.TokenURL, s.Flows.AuthorizationCode.ScopeNames()
}
