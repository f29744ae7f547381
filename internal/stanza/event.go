package stanza

import "time"

// Presence types as seen on the wire. An absent type attribute means available.
const (
	Available   = "available"
	Unavailable = "unavailable"
)

// Message is a decoded inbound chat message. Immutable once parsed; the
// client dispatches it to the message callback and drops it.
type Message struct {
	From       string // full room JID of the sender
	Body       string
	Type       string // "groupchat" for room broadcast
	Login      string
	Avatar     string
	Background string
	Timestamp  time.Time
}

// Presence is a decoded inbound presence update for a room occupant.
type Presence struct {
	From        string
	Type        string // Available, Unavailable or another server-defined type
	Login       string
	UserID      string
	Avatar      string
	Background  string
	GameID      string // empty when the occupant is not in a game
	Affiliation string
	Role        string
}

// AvatarURL resolves the relative avatar path against base, or returns
// empty when the message carries no avatar.
func (m Message) AvatarURL(base string) string {
	return avatarURL(base, m.Avatar)
}

// AvatarURL resolves the relative avatar path against base.
func (p Presence) AvatarURL(base string) string {
	return avatarURL(base, p.Avatar)
}

func avatarURL(base, avatar string) string {
	if avatar == "" {
		return ""
	}
	return base + avatar
}
