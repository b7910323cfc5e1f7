package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront.chapter42.de/mailer/internal/data"
)

func TestBuildAuthProvider(t *testing.T) {
	p, err := BuildAuthProvider(data.AuthConfig{Type: "basic", Username: "shop", Password: "geheim"})
	require.NoError(t, err)
	header, err := p.GetAuthHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Basic c2hvcDpnZWhlaW0=", header)

	p, err = BuildAuthProvider(data.AuthConfig{Type: "Bearer", Token: "abc"})
	require.NoError(t, err)
	header, err = p.GetAuthHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", header)

	p, err = BuildAuthProvider(data.AuthConfig{})
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = BuildAuthProvider(data.AuthConfig{Type: "kerberos"})
	assert.Error(t, err)
}

func TestOAuth2CachesToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "r-1", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
	defer srv.Close()

	p, err := BuildAuthProvider(data.AuthConfig{
		Type:         "oauth2",
		ClientID:     "mailer",
		ClientSecret: "s3cret",
		TokenURL:     srv.URL,
		RefreshToken: "r-1",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		header, err := p.GetAuthHeader(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-1", header)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestOAuth2TokenError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	}))
	defer srv.Close()

	o := &OAuth2Auth{TokenURL: srv.URL, HTTPClient: srv.Client()}
	_, err := o.GetAuthHeader(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}
