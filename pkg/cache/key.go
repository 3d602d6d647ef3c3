package cache

import (
	"net/url"
	"strings"
)

// CacheKey identifies a cached response.
type CacheKey struct {
	// Host is the upstream host, e.g. "users.roblox.com".
	Host string

	// Path is the request path, e.g. "/v1/users/search".
	Path string

	// QueryParams include the pagination parameters (limit, cursor).
	QueryParams url.Values
}

// KeyFromURL builds the key for a request URL.
func KeyFromURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:        u.Host,
		Path:        u.Path,
		QueryParams: u.Query(),
	}
}

// String returns a deterministic Redis key. Query parameters are URL-encoded
// and sorted by name, so distinct queries never share a key.
//
//	rbx:users.roblox.com/v1/users/search:cursor=abc&keyword=foo&limit=100
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString("rbx:")
	b.WriteString(k.Host)
	b.WriteString("/")
	b.WriteString(strings.Trim(k.Path, "/"))

	if len(k.QueryParams) > 0 {
		b.WriteString(":")
		b.WriteString(k.QueryParams.Encode())
	}

	return b.String()
}
