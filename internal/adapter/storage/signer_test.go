package storage

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(now time.Time) *Signer {
	s := NewSigner("https://cdn.example.com/bundles/", "secret", 0, 0)
	s.now = func() time.Time { return now }
	return s
}

func parse(t *testing.T, raw string) (*url.URL, int64, string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	return u, expires, u.Query().Get("signature")
}

func TestDownloadURL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := fixedSigner(now)

	raw := s.DownloadURL("demo/Staging/abc")
	u, expires, sig := parse(t, raw)

	assert.Equal(t, "cdn.example.com", u.Host)
	assert.Equal(t, "/bundles/demo/Staging/abc", u.Path)
	assert.Equal(t, now.Add(DefaultDownloadTTL).Unix(), expires)
	assert.True(t, s.Verify("GET", "demo/Staging/abc", "", expires, sig))
	assert.False(t, s.Verify("PUT", "demo/Staging/abc", "", expires, sig))
	assert.False(t, s.Verify("GET", "demo/Staging/other", "", expires, sig))

	// 过期
	s.now = func() time.Time { return now.Add(2 * DefaultDownloadTTL) }
	assert.False(t, s.Verify("GET", "demo/Staging/abc", "", expires, sig))
}

func TestUploadURL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := fixedSigner(now)

	up := s.UploadURL("demo/Staging/abc")
	assert.Equal(t, BundleContentType, up.ContentType)
	assert.Equal(t, now.Add(DefaultUploadTTL), up.ExpiresAt)

	u, expires, sig := parse(t, up.URL)
	assert.Equal(t, BundleContentType, u.Query().Get("content_type"))
	assert.True(t, s.Verify("PUT", "demo/Staging/abc", BundleContentType, expires, sig))
	assert.False(t, s.Verify("PUT", "demo/Staging/abc", "text/plain", expires, sig))
}

func TestNewBlobKey(t *testing.T) {
	a := NewBlobKey("demo app", "Staging")
	b := NewBlobKey("demo app", "Staging")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "demo%20app/Staging/"))
}
