package checkin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gatherly/backend/internal/models"
)

func TestResolveRole(t *testing.T) {
	speakers := map[string]struct{}{"spk1": {}}

	tests := []struct {
		name string
		reg  models.Registration
		want RoleInfo
	}{
		{
			name: "badge override beats speaker membership",
			reg:  models.Registration{UserID: "spk1", BadgeRole: "VIP"},
			want: RoleInfo{Key: "vip", Display: "VIP", Color: "amber", Priority: 2},
		},
		{
			name: "badge override with unknown role gets fallback color",
			reg:  models.Registration{UserID: "u1", BadgeRole: "Press"},
			want: RoleInfo{Key: "press", Display: "Press", Color: "gray", Priority: 5},
		},
		{
			name: "speaker membership beats vip ticket",
			reg:  models.Registration{UserID: "spk1", TicketType: "VIP Pass"},
			want: RoleInfo{Key: "speaker", Display: "Speaker", Color: "purple", Priority: 1},
		},
		{
			name: "vip ticket type case-insensitive substring",
			reg:  models.Registration{UserID: "u1", TicketType: "Early Bird vIp"},
			want: RoleInfo{Key: "vip", Display: "VIP", Color: "amber", Priority: 2},
		},
		{
			name: "vip ticket beats profile role",
			reg:  models.Registration{UserID: "u1", TicketType: "VIP", Role: "Founder"},
			want: RoleInfo{Key: "vip", Display: "VIP", Color: "amber", Priority: 2},
		},
		{
			name: "profile role used when nothing else matches",
			reg:  models.Registration{UserID: "u1", Role: "Investor"},
			want: RoleInfo{Key: "investor", Display: "Investor", Color: "green", Priority: 5},
		},
		{
			name: "default attendee",
			reg:  models.Registration{UserID: "u1"},
			want: RoleInfo{Key: "attendee", Display: "Attendee", Color: "gray", Priority: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRole(&tt.reg, speakers)
			assert.Equal(t, tt.want, got)
		})
	}
}
