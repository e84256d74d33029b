package checkin

import (
	"strings"

	"github.com/gatherly/backend/internal/models"
)

// RoleInfo is the display role derived for a registration. It is never
// persisted: badge overrides, speaker membership and ticket types can all
// change independently of check-in state, so it is recomputed on every read.
type RoleInfo struct {
	Key      string `json:"key"`
	Display  string `json:"display"`
	Color    string `json:"color"`
	Priority int    `json:"priority"`
}

// roleColors maps role keys to badge color tokens. Unknown keys fall back
// to gray.
var roleColors = map[string]string{
	"admin":    "red",
	"speaker":  "purple",
	"vip":      "amber",
	"sponsor":  "blue",
	"investor": "green",
	"founder":  "teal",
	"attendee": "gray",
}

const fallbackColor = "gray"

// rolePriorities orders the door list; lower sorts first. Roles not listed
// here sort after attendees.
var rolePriorities = map[string]int{
	"speaker":  1,
	"vip":      2,
	"sponsor":  3,
	"attendee": 4,
}

const defaultPriority = 5

// ResolveRole derives the display role for a registration given the owning
// event's speaker set. Precedence, first match wins: manual badge override,
// speaker membership, VIP ticket type, profile role, attendee.
func ResolveRole(reg *models.Registration, speakers map[string]struct{}) RoleInfo {
	switch {
	case reg.BadgeRole != "":
		return newRoleInfo(strings.ToLower(reg.BadgeRole), reg.BadgeRole)
	case speakerSet(speakers, reg.UserID):
		return newRoleInfo("speaker", "Speaker")
	case strings.Contains(strings.ToLower(reg.TicketType), "vip"):
		return newRoleInfo("vip", "VIP")
	case reg.Role != "":
		return newRoleInfo(strings.ToLower(reg.Role), reg.Role)
	default:
		return newRoleInfo("attendee", "Attendee")
	}
}

func speakerSet(speakers map[string]struct{}, userID string) bool {
	_, ok := speakers[userID]
	return ok
}

func newRoleInfo(key, display string) RoleInfo {
	color, ok := roleColors[key]
	if !ok {
		color = fallbackColor
	}
	priority, ok := rolePriorities[key]
	if !ok {
		priority = defaultPriority
	}
	return RoleInfo{Key: key, Display: display, Color: color, Priority: priority}
}
