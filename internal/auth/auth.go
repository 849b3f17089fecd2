// Package auth authenticates bearer tokens for the debug API.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Scopes understood by the debug API.
const (
	ScopeAll      = "*"
	ScopeSchedule = "schedule:ro"
	ScopeProfile  = "profile:ro"
	ScopeHistory  = "history:ro"
	ScopeEvents   = "events:ro"
	// ScopeRead implies every :ro scope.
	ScopeRead = "read"
)

var readScopes = []string{ScopeSchedule, ScopeProfile, ScopeHistory, ScopeEvents}

// KnownScopes lists every scope a token may carry.
func KnownScopes() []string {
	return append([]string{ScopeAll, ScopeRead}, readScopes...)
}

// TokenConfig is a bearer token with a set of scopes.
type TokenConfig struct {
	Token  string
	Scopes []string
}

// ScopeSet is a normalized set of granted scopes.
type ScopeSet map[string]struct{}

func newScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	if _, ok := set[ScopeRead]; ok {
		for _, s := range readScopes {
			set[s] = struct{}{}
		}
	}
	return set
}

// Allows reports whether the set grants "*" or any of required. An empty
// requirement is always allowed.
func (s ScopeSet) Allows(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if _, ok := s[ScopeAll]; ok {
		return true
	}
	for _, r := range required {
		if _, ok := s[r]; ok {
			return true
		}
	}
	return false
}

// Principal is an authenticated caller. Name identifies the credential
// without revealing it.
type Principal struct {
	Name   string
	Scopes ScopeSet
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ExtractBearerToken reads "Authorization: Bearer <token>".
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid Authorization header format")
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", errors.New("missing API key")
	}
	return token, nil
}

type credential struct {
	secret    []byte
	principal Principal
}

// Keyring holds the configured credentials with their scopes resolved once.
type Keyring struct {
	creds []credential
}

// NewKeyring builds a keyring. A non-empty apiKey grants "*"; empty
// secrets are skipped.
func NewKeyring(apiKey string, tokens []TokenConfig) *Keyring {
	k := &Keyring{}
	if apiKey != "" {
		k.creds = append(k.creds, credential{
			secret:    []byte(apiKey),
			principal: Principal{Name: "api_key", Scopes: newScopeSet(ScopeAll)},
		})
	}
	for i, t := range tokens {
		if t.Token == "" {
			continue
		}
		k.creds = append(k.creds, credential{
			secret:    []byte(t.Token),
			principal: Principal{Name: fmt.Sprintf("tokens[%d]", i), Scopes: newScopeSet(t.Scopes...)},
		})
	}
	return k
}

// Authenticate matches presented against every credential in constant time
// per comparison.
func (k *Keyring) Authenticate(presented string) (Principal, bool) {
	if presented == "" {
		return Principal{}, false
	}
	p := []byte(presented)
	for _, c := range k.creds {
		if subtle.ConstantTimeCompare(p, c.secret) == 1 {
			return c.principal, true
		}
	}
	return Principal{}, false
}
