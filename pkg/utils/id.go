package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a new entity ID: a UUID with the dashes stripped.
// Check-in codes join event and user IDs with a single "-", so IDs
// themselves must never contain one.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
