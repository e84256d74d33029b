package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec("https://gatherly.app/connect")
	require.NoError(t, err)
	return c
}

func TestCodecParse(t *testing.T) {
	c := newTestCodec(t)

	tests := []struct {
		name         string
		raw          string
		currentEvent string
		want         Identity
		wantErr      bool
	}{
		{
			name: "composite code",
			raw:  "evt123-user456",
			want: Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name:         "composite ignores event context",
			raw:          "evt123-user456",
			currentEvent: "other",
			want:         Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name: "composite with surrounding whitespace",
			raw:  "  evt123-user456\n",
			want: Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name:    "composite with empty user token",
			raw:     "evt123-",
			wantErr: true,
		},
		{
			name:    "composite with empty event token",
			raw:     "-user456",
			wantErr: true,
		},
		{
			name: "connect url",
			raw:  "https://gatherly.app/connect?to=user456&event=evt123",
			want: Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name:         "connect url preview event falls back to context",
			raw:          "https://gatherly.app/connect?to=user456&event=preview",
			currentEvent: "evt123",
			want:         Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name:         "connect url missing event falls back to context",
			raw:          "https://gatherly.app/connect?to=user456",
			currentEvent: "evt123",
			want:         Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name:    "connect url preview event without context",
			raw:     "https://gatherly.app/connect?to=user456&event=preview",
			wantErr: true,
		},
		{
			name:    "connect url missing recipient",
			raw:     "https://gatherly.app/connect?event=evt123",
			wantErr: true,
		},
		{
			name:         "unrelated url never treated as bare id",
			raw:          "https://example.com/some/page",
			currentEvent: "evt123",
			wantErr:      true,
		},
		{
			name: "json payload",
			raw:  `{"eventId":"evt123","userId":"user456"}`,
			want: Identity{EventID: "evt123", UserID: "user456"},
		},
		{
			name:         "json payload missing key never treated as bare id",
			raw:          `{"userId":"user456"}`,
			currentEvent: "evt123",
			wantErr:      true,
		},
		{
			name:         "malformed json",
			raw:          `{"eventId":`,
			currentEvent: "evt123",
			wantErr:      true,
		},
		{
			name:         "bare identifier with event context",
			raw:          "user456789",
			currentEvent: "evt123",
			want:         Identity{EventID: "evt123", UserID: "user456789"},
		},
		{
			name:    "bare identifier without event context",
			raw:     "user456789",
			wantErr: true,
		},
		{
			name:         "bare identifier below minimum length",
			raw:          "u1",
			currentEvent: "evt123",
			wantErr:      true,
		},
		{
			name:    "empty payload",
			raw:     "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Parse(tt.raw, tt.currentEvent)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQR)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	t.Run("composite code", func(t *testing.T) {
		code := c.EncodeCode("evt123", "user456")
		id, err := c.Parse(code, "")
		require.NoError(t, err)
		assert.Equal(t, Identity{EventID: "evt123", UserID: "user456"}, id)
	})

	t.Run("connect url", func(t *testing.T) {
		link := c.EncodeConnectURL("evt123", "user456")
		id, err := c.Parse(link, "")
		require.NoError(t, err)
		assert.Equal(t, Identity{EventID: "evt123", UserID: "user456"}, id)
	})
}

func TestNewCodecRejectsBadBase(t *testing.T) {
	_, err := NewCodec("not a url")
	assert.Error(t, err)
}
