package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewLink_DefaultSnapshot(t *testing.T) {
	link := NewLink("dub.sh", "github", "https://github.com/dubinc/dub", "ws_1")

	assert.Equal(t, "dub.sh", link.Domain)
	assert.Equal(t, "github", link.Key)
	assert.Equal(t, "https://github.com/dubinc/dub", link.URL)
	assert.Equal(t, "ws_1", link.WorkspaceID)

	assert.False(t, link.Archived)
	assert.False(t, link.PublicStats)
	assert.False(t, link.Proxy)
	assert.False(t, link.Rewrite)
	assert.Zero(t, link.Clicks)
	assert.Nil(t, link.LastClicked)
	assert.Nil(t, link.Password)
	assert.Nil(t, link.ExpiresAt)
	assert.Nil(t, link.ExpiredURL)
	assert.Nil(t, link.Title)
	assert.Nil(t, link.Description)
	assert.Nil(t, link.Image)
	assert.Nil(t, link.IOS)
	assert.Nil(t, link.Android)
	assert.Nil(t, link.Geo)
	assert.Nil(t, link.Comments)
	assert.Nil(t, link.UserID)
	assert.Nil(t, link.UTMSource)
	assert.Nil(t, link.UTMMedium)
	assert.Nil(t, link.UTMCampaign)
	assert.Nil(t, link.UTMTerm)
	assert.Nil(t, link.UTMContent)
	assert.NotNil(t, link.Tags)
	assert.Empty(t, link.Tags)
	assert.Equal(t, link.CreatedAt, link.UpdatedAt)
}

func TestLink_JSONKeepsNullableFields(t *testing.T) {
	link := NewLink("dub.sh", "k", "https://example.com", "ws_1")

	raw, err := json.Marshal(link)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	for _, key := range []string{"password", "expiresAt", "lastClicked", "geo", "ios", "android", "utm_source", "comments"} {
		v, ok := fields[key]
		assert.True(t, ok, "missing key %s", key)
		assert.Nil(t, v, key)
	}
	assert.Equal(t, []any{}, fields["tags"])
}

func TestShortLinkAndQRCode(t *testing.T) {
	link := NewLink("dub.sh", "launch", "https://example.com", "ws_1")

	assert.Equal(t, "https://dub.sh/launch", link.ShortLink())
	assert.Equal(t, "https://api.dub.co/qr?url=https%3A%2F%2Fdub.sh%2Flaunch", link.QRCode("https://api.dub.co/qr"))
	assert.Equal(t, "https://dub.sh/a%20b", ShortLink("dub.sh", "a b"))
}

func TestLink_TagIDs(t *testing.T) {
	link := NewLink("dub.sh", "k", "https://example.com", "ws_1")
	assert.Empty(t, link.TagIDs())

	link.Tags = []Tag{{ID: "t1"}, {ID: "t2"}}
	assert.Equal(t, []string{"t1", "t2"}, link.TagIDs())
}

func TestLink_Destination(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	base := func() *Link {
		l := NewLink("dub.sh", "k", "https://example.com", "ws_1")
		l.IOS = strPtr("https://apps.apple.com/app")
		l.Android = strPtr("https://play.google.com/app")
		l.Geo = map[CountryCode]string{"FR": "https://example.fr"}
		return l
	}

	tests := []struct {
		name       string
		setup      func(*Link)
		visitor    Visitor
		wantURL    string
		wantTarget string
		wantErr    error
	}{
		{
			name:       "Default destination",
			visitor:    Visitor{},
			wantURL:    "https://example.com",
			wantTarget: TargetDefault,
		},
		{
			name:       "iOS visitor",
			visitor:    Visitor{OS: "ios", Country: "FR"},
			wantURL:    "https://apps.apple.com/app",
			wantTarget: TargetIOS,
		},
		{
			name:       "Android visitor",
			visitor:    Visitor{OS: "android"},
			wantURL:    "https://play.google.com/app",
			wantTarget: TargetAndroid,
		},
		{
			name:       "Geo match",
			visitor:    Visitor{Country: "FR"},
			wantURL:    "https://example.fr",
			wantTarget: TargetGeo,
		},
		{
			name:       "Geo miss falls back to default",
			visitor:    Visitor{Country: "DE"},
			wantURL:    "https://example.com",
			wantTarget: TargetDefault,
		},
		{
			name:       "Not yet expired",
			setup:      func(l *Link) { l.ExpiresAt = &future },
			wantURL:    "https://example.com",
			wantTarget: TargetDefault,
		},
		{
			name: "Expired with expiredUrl",
			setup: func(l *Link) {
				l.ExpiresAt = &past
				l.ExpiredURL = strPtr("https://example.com/expired")
			},
			visitor:    Visitor{OS: "ios"},
			wantURL:    "https://example.com/expired",
			wantTarget: TargetExpired,
		},
		{
			name:       "Expired without expiredUrl",
			setup:      func(l *Link) { l.ExpiresAt = &past },
			wantTarget: TargetExpired,
			wantErr:    ErrLinkExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := base()
			if tt.setup != nil {
				tt.setup(l)
			}

			dest, target, err := l.Destination(now, tt.visitor)

			assert.Equal(t, tt.wantTarget, target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, dest)
		})
	}
}

func TestLink_CheckPassword(t *testing.T) {
	link := NewLink("dub.sh", "k", "https://example.com", "ws_1")
	assert.True(t, link.CheckPassword(""))

	link.Password = strPtr("hunter2")
	assert.False(t, link.CheckPassword(""))
	assert.False(t, link.CheckPassword("wrong"))
	assert.False(t, link.CheckPassword("hunter"))
	assert.False(t, link.CheckPassword("hunter22"))
	assert.False(t, link.CheckPassword("Hunter2"))
	assert.True(t, link.CheckPassword("hunter2"))
}

func TestLinkFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, LinkFilter{}.Offset())
	assert.Equal(t, 0, LinkFilter{Page: 1}.Offset())
	assert.Equal(t, PageSize, LinkFilter{Page: 2}.Offset())
	assert.Equal(t, 4*PageSize, LinkFilter{Page: 5}.Offset())
}
