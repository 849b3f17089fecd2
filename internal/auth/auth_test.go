package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "Bearer   abc  ", want: "abc"},
		{header: "", wantErr: true},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer    ", wantErr: true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, err := ExtractBearerToken(req)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestKeyring(t *testing.T) {
	k := NewKeyring("admin", []TokenConfig{
		{Token: "viewer", Scopes: []string{"schedule:ro", " "}},
		{Token: "", Scopes: []string{"*"}},
		{Token: "reader", Scopes: []string{"read"}},
	})

	p, ok := k.Authenticate("admin")
	require.True(t, ok)
	assert.Equal(t, "api_key", p.Name)
	assert.True(t, p.Scopes.Allows(ScopeEvents))

	p, ok = k.Authenticate("viewer")
	require.True(t, ok)
	assert.Equal(t, "tokens[0]", p.Name)
	assert.True(t, p.Scopes.Allows(ScopeSchedule))
	assert.False(t, p.Scopes.Allows(ScopeProfile))
	assert.Len(t, p.Scopes, 1)

	p, ok = k.Authenticate("reader")
	require.True(t, ok)
	assert.Equal(t, "tokens[2]", p.Name)
	assert.True(t, p.Scopes.Allows(ScopeHistory))
	assert.False(t, p.Scopes.Allows("write"))

	_, ok = k.Authenticate("nope")
	assert.False(t, ok)
	_, ok = k.Authenticate("")
	assert.False(t, ok, "empty token never authenticates")

	_, ok = NewKeyring("", nil).Authenticate("admin")
	assert.False(t, ok)
}

func TestKnownScopes(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{ScopeAll, ScopeRead, ScopeSchedule, ScopeProfile, ScopeHistory, ScopeEvents},
		KnownScopes())
}

func TestPrincipalContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := PrincipalFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithPrincipal(req.Context(), Principal{Name: "t"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "t", p.Name)
	assert.True(t, p.Scopes.Allows())
}
