package checkin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidQR marks a scan payload that matched no recognized format, or
// matched one structurally but failed its semantic checks.
var ErrInvalidQR = errors.New("invalid qr payload")

// minBareIDLength rejects trivially short strings scanned as noise.
const minBareIDLength = 6

// previewEvent is the sentinel event value of connection links generated
// before an event is chosen; it falls back to the scanner's selected event.
const previewEvent = "preview"

// Identity is the normalized (event, user) pair a payload resolves to.
type Identity struct {
	EventID string
	UserID  string
}

// Codec parses scanned payloads and produces check-in codes and connection
// links. Recognized formats, first structural match wins:
//
//  1. composite code "eventID-userID"
//  2. connection URL with "to" and "event" query parameters
//  3. structured JSON payload {"eventId": ..., "userId": ...}
//  4. bare user identifier, scoped to the selected scanning context
//
// Once a format matches structurally the payload never falls through to a
// later format; semantic failures report ErrInvalidQR instead.
type Codec struct {
	connectBase *url.URL
}

// NewCodec creates a codec whose connection links are rooted at
// connectBaseURL, e.g. "https://gatherly.app/connect".
func NewCodec(connectBaseURL string) (*Codec, error) {
	base, err := url.Parse(connectBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connect base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("connect base url %q has no host", connectBaseURL)
	}
	return &Codec{connectBase: base}, nil
}

// Parse converts a scanned payload into an identity. currentEvent is the
// scanner's selected event context; it scopes bare identifiers and
// context-free connection links, and may be empty.
func (c *Codec) Parse(raw, currentEvent string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalidQR
	}

	// Composite code: exactly one delimiter, two non-empty tokens.
	if strings.Count(raw, "-") == 1 {
		eventID, userID, _ := strings.Cut(raw, "-")
		if eventID == "" || userID == "" {
			return Identity{}, ErrInvalidQR
		}
		return Identity{EventID: eventID, UserID: userID}, nil
	}

	// Connection URL. Any http(s) payload is a structural match; a URL that
	// is not a connect link is rejected rather than read as a bare ID.
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return c.parseConnectURL(raw, currentEvent)
	}

	// Structured JSON payload, checked before the bare fallback so an object
	// is never read as a user ID. Missing keys do not partially match.
	if strings.HasPrefix(raw, "{") {
		var payload struct {
			EventID string `json:"eventId"`
			UserID  string `json:"userId"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return Identity{}, ErrInvalidQR
		}
		if payload.EventID == "" || payload.UserID == "" {
			return Identity{}, ErrInvalidQR
		}
		return Identity{EventID: payload.EventID, UserID: payload.UserID}, nil
	}

	// Bare identifier, scoped to the selected event.
	if len(raw) < minBareIDLength || currentEvent == "" {
		return Identity{}, ErrInvalidQR
	}
	return Identity{EventID: currentEvent, UserID: raw}, nil
}

func (c *Codec) parseConnectURL(raw, currentEvent string) (Identity, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Identity{}, ErrInvalidQR
	}
	if u.Host != c.connectBase.Host && !strings.HasSuffix(u.Path, c.connectBase.Path) {
		return Identity{}, ErrInvalidQR
	}
	q := u.Query()
	userID := q.Get("to")
	if userID == "" {
		return Identity{}, ErrInvalidQR
	}
	eventID := q.Get("event")
	if eventID == "" || eventID == previewEvent {
		if currentEvent == "" {
			return Identity{}, ErrInvalidQR
		}
		eventID = currentEvent
	}
	return Identity{EventID: eventID, UserID: userID}, nil
}

// EncodeCode produces the composite check-in code for an identity.
// Parse(EncodeCode(e, u)) round-trips as long as IDs contain no dash.
func (c *Codec) EncodeCode(eventID, userID string) string {
	return eventID + "-" + userID
}

// EncodeConnectURL produces the shareable connection link for an identity.
func (c *Codec) EncodeConnectURL(eventID, userID string) string {
	u := *c.connectBase
	q := url.Values{}
	q.Set("to", userID)
	q.Set("event", eventID)
	u.RawQuery = q.Encode()
	return u.String()
}
