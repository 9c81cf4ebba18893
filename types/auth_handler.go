// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-json-experiment/json"
	deepcopy "github.com/tiendc/go-deepcopy"
	"golang.org/x/oauth2"
)

// AuthHandler drives the credential request, storage and exchange of one [AuthConfig].
type AuthHandler struct {
	authConfig *AuthConfig
}

// NewAuthHandler creates a new AuthHandler with the given authConfig.
func NewAuthHandler(authConfig *AuthConfig) *AuthHandler {
	return &AuthHandler{
		authConfig: authConfig,
	}
}

// ExchangeAuthToken exchanges the authorization code of the client's response for tokens.
//
// The exchanged credential is returned unchanged when the scheme does not use
// an exchange or tokens are already present.
func (h *AuthHandler) ExchangeAuthToken(ctx context.Context) (*AuthCredential, error) {
	cred := h.authConfig.ExchangedAuthCredential
	scheme := h.authConfig.AuthScheme
	if !scheme.NeedsExchange() || cred == nil || cred.OAuth2 == nil {
		return cred, nil
	}
	if cred.OAuth2.AccessToken != "" || cred.OAuth2.RefreshToken != "" {
		return cred, nil
	}

	tokenURL, scopes := scheme.tokenEndpoint()
	if tokenURL == "" || cred.OAuth2.ClientID == "" || cred.OAuth2.ClientSecret == "" {
		return cred, nil
	}

	code := cred.OAuth2.AuthCode
	if code == "" && cred.OAuth2.AuthResponseURI != "" {
		u, err := url.Parse(cred.OAuth2.AuthResponseURI)
		if err != nil {
			return nil, fmt.Errorf("parse auth response uri: %w", err)
		}
		code = u.Query().Get("code")
	}
	if code == "" {
		return cred, nil
	}

	conf := &oauth2.Config{
		ClientID:     cred.OAuth2.ClientID,
		ClientSecret: cred.OAuth2.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		Scopes:       scopes,
		RedirectURL:  cred.OAuth2.RedirectURI,
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}

	return &AuthCredential{
		AuthType: OAuth2CredentialTypes,
		OAuth2: &OAuth2Auth{
			ClientID:     cred.OAuth2.ClientID,
			ClientSecret: cred.OAuth2.ClientSecret,
			RedirectURI:  cred.OAuth2.RedirectURI,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
		},
	}, nil
}

// ParseAndStoreAuthResponse stores the client's auth response in state,
// exchanging it for tokens first when the scheme requires it.
func (h *AuthHandler) ParseAndStoreAuthResponse(ctx context.Context, state *State) error {
	key := h.GetCredentialKey()
	state.Set(key, h.authConfig.ExchangedAuthCredential)

	if !h.authConfig.AuthScheme.NeedsExchange() {
		return nil
	}

	cred, err := h.ExchangeAuthToken(ctx)
	if err != nil {
		return err
	}
	state.Set(key, cred)
	return nil
}

// GetAuthResponse returns the stored credential for the auth config, or nil.
func (h *AuthHandler) GetAuthResponse(state *State) *AuthCredential {
	v, ok := state.Get(h.GetCredentialKey())
	if !ok {
		return nil
	}

	switch cred := v.(type) {
	case *AuthCredential:
		return cred
	case map[string]any:
		raw, err := json.Marshal(cred)
		if err != nil {
			return nil
		}
		var out AuthCredential
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil
		}
		return &out
	default:
		return nil
	}
}

// GenerateAuthRequest returns the auth config sent to the client.
//
// For OAuth2 and OIDC schemes without an auth URI, one is generated from the
// raw credential's client id and secret.
func (h *AuthHandler) GenerateAuthRequest() (*AuthConfig, error) {
	if !h.authConfig.AuthScheme.NeedsExchange() {
		return h.copyConfig()
	}

	if ex := h.authConfig.ExchangedAuthCredential; ex != nil && ex.OAuth2 != nil && ex.OAuth2.AuthURI != "" {
		return h.copyConfig()
	}

	raw := h.authConfig.RawAuthCredential
	if raw == nil {
		return nil, fmt.Errorf("auth scheme %s requires auth_credential", h.authConfig.AuthScheme.Type)
	}
	if raw.OAuth2 == nil {
		return nil, fmt.Errorf("auth scheme %s requires oauth2 in auth_credential", h.authConfig.AuthScheme.Type)
	}

	if raw.OAuth2.AuthURI != "" {
		var exchanged AuthCredential
		if err := deepcopy.Copy(&exchanged, *raw); err != nil {
			return nil, err
		}
		return &AuthConfig{
			AuthScheme:              h.authConfig.AuthScheme,
			RawAuthCredential:       raw,
			ExchangedAuthCredential: &exchanged,
			Key:                     h.authConfig.Key,
		}, nil
	}

	if raw.OAuth2.ClientID == "" || raw.OAuth2.ClientSecret == "" {
		return nil, fmt.Errorf("auth scheme %s requires both client_id and client_secret in auth_credential.oauth2", h.authConfig.AuthScheme.Type)
	}

	exchanged, err := h.GenerateAuthURI()
	if err != nil {
		return nil, err
	}
	return &AuthConfig{
		AuthScheme:              h.authConfig.AuthScheme,
		RawAuthCredential:       raw,
		ExchangedAuthCredential: exchanged,
		Key:                     h.authConfig.Key,
	}, nil
}

func (h *AuthHandler) copyConfig() (*AuthConfig, error) {
	var c AuthConfig
	if err := deepcopy.Copy(&c, *h.authConfig); err != nil {
		return nil, fmt.Errorf("copy auth config: %w", err)
	}
	return &c, nil
}

// GetCredentialKey generates a state key for the auth scheme and raw credential.
//
// The key is temp scoped so credentials never outlive the invocation.
func (h *AuthHandler) GetCredentialKey() string {
	if h.authConfig.Key != "" {
		return TempPrefix + h.authConfig.Key
	}

	var schemeName, credName string

	if scheme := h.authConfig.AuthScheme; scheme != nil {
		data, _ := json.Marshal(scheme, json.Deterministic(true))
		sum := sha256.Sum256(data)
		schemeName = fmt.Sprintf("%s_%s", scheme.Type, hex.EncodeToString(sum[:4]))
	}
	if cred := h.authConfig.RawAuthCredential; cred != nil {
		data, _ := json.Marshal(cred, json.Deterministic(true))
		sum := sha256.Sum256(data)
		credName = fmt.Sprintf("%s_%s", cred.AuthType, hex.EncodeToString(sum[:4]))
	}

	return TempPrefix + "adk_" + schemeName + "_" + credName
}

// GenerateAuthURI generates a credential containing the auth uri for the user to sign in.
func (h *AuthHandler) GenerateAuthURI() (*AuthCredential, error) {
	scheme := h.authConfig.AuthScheme
	raw := h.authConfig.RawAuthCredential
	if raw == nil || raw.OAuth2 == nil {
		return nil, errors.New("oauth2 credential is required to generate an auth uri")
	}

	endpoint, scopes := scheme.authorizationEndpoint()
	if endpoint == "" {
		return nil, errors.New("no valid authorization URL found in security scheme")
	}

	conf := &oauth2.Config{
		ClientID:     raw.OAuth2.ClientID,
		ClientSecret: raw.OAuth2.ClientSecret,
		Scopes:       scopes,
		RedirectURL:  raw.OAuth2.RedirectURI,
		Endpoint:     oauth2.Endpoint{AuthURL: endpoint},
	}
	state, err := generateState()
	if err != nil {
		return nil, err
	}

	var exchanged AuthCredential
	if err := deepcopy.Copy(&exchanged, *raw); err != nil {
		return nil, err
	}
	exchanged.OAuth2.AuthURI = conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	exchanged.OAuth2.State = state

	return &exchanged, nil
}

func generateState() (string, error) {
	data := make([]byte, 30)
	if _, err := rand.Read(data); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}
