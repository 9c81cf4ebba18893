// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"

	"github.com/go-json-experiment/json"
)

// AuthConfig is sent by a tool asking the client to collect auth credentials;
// the framework and the client cooperate to fill in the response.
type AuthConfig struct {
	// AuthScheme is the auth scheme used to collect credentials.
	AuthScheme *AuthScheme `json:"auth_scheme"`

	// RawAuthCredential is the credential given by the tool. Schemes that exchange
	// credentials, e.g. OAuth2 and OIDC, start from it. It may be nil for others.
	RawAuthCredential *AuthCredential `json:"raw_auth_credential,omitzero"`

	// ExchangedAuthCredential is filled jointly by the framework and the client.
	//
	// For OAuth2 and OIDC the framework first fills the authorization URI and
	// state; the client then guides the user through the flow and writes the
	// auth response here. For other schemes the client fills it directly.
	ExchangedAuthCredential *AuthCredential `json:"exchanged_auth_credential,omitzero"`

	// Key overrides the generated credential key when non-empty.
	Key string `json:"credential_key,omitzero"`
}

// CredentialKey returns the key used to save and load this credential.
func (ac *AuthConfig) CredentialKey() string {
	return NewAuthHandler(ac).GetCredentialKey()
}

// AuthToolArguments is the argument of the reserved long running function call
// used to request end user credentials.
type AuthToolArguments struct {
	// FunctionCallID is the ID of the function call requesting authentication.
	FunctionCallID string `json:"function_call_id"`

	// AuthConfig is the authentication configuration requested.
	AuthConfig *AuthConfig `json:"auth_config"`
}

// ToMap converts the arguments to a function call argument map.
func (a *AuthToolArguments) ToMap() (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal auth tool arguments: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal auth tool arguments: %w", err)
	}
	return m, nil
}

// ConvertToAuthConfig decodes an [AuthConfig] from a function response payload.
func ConvertToAuthConfig(data map[string]any) (*AuthConfig, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal auth config: %w", err)
	}

	var config AuthConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("unmarshal auth config: %w", err)
	}
	if config.AuthScheme == nil {
		return nil, fmt.Errorf("auth_scheme not found or invalid")
	}
	return &config, nil
}
