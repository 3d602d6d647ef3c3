package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_Expiry(t *testing.T) {
	tests := []struct {
		name        string
		expires     time.Time
		wantExpired bool
		wantMinTTL  time.Duration
		wantMaxTTL  time.Duration
	}{
		{
			name:        "fresh for ten minutes",
			expires:     time.Now().Add(10 * time.Minute),
			wantExpired: false,
			wantMinTTL:  9*time.Minute + 59*time.Second,
			wantMaxTTL:  10 * time.Minute,
		},
		{
			name:        "expired a second ago",
			expires:     time.Now().Add(-time.Second),
			wantExpired: true,
		},
		{
			name:        "zero expiry",
			expires:     time.Time{},
			wantExpired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}

			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if ttl := entry.TTL(); ttl < tt.wantMinTTL || ttl > tt.wantMaxTTL {
				t.Errorf("TTL() = %v, want between %v and %v", ttl, tt.wantMinTTL, tt.wantMaxTTL)
			}
		})
	}
}
