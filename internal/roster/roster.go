package roster

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/kgchat/internal/stanza"
)

// Participant is the last known state of a room occupant, keyed by the full
// room JID. An unavailable occupant keeps its metadata so a "just left"
// entry stays queryable.
type Participant struct {
	JID         string
	UserID      string
	Login       string
	Avatar      string
	Background  string
	GameID      string
	Affiliation string
	Role        string
	Status      string // stanza.Available or stanza.Unavailable
	LastSeen    time.Time
}

// AvatarURL resolves the avatar to the big variant against base, the form
// the roster UI wants: /storage/avatars/1.png?u=2 becomes
// base/storage/avatars/1_big.png?u=2.
func (p Participant) AvatarURL(base string) string {
	if p.Avatar == "" {
		return ""
	}
	path, query, _ := strings.Cut(p.Avatar, "?")
	path = strings.TrimSuffix(path, ".png") + "_big.png"
	if query != "" {
		return base + path + "?" + query
	}
	return base + path
}

// Tracker maintains the participant map from decoded presence events.
// Apply is only ever called from the poll loop goroutine; the snapshot
// queries may be called from anywhere, so everything locks.
type Tracker struct {
	mu           sync.Mutex
	participants map[string]*Participant
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{participants: make(map[string]*Participant)}
}

// Apply folds one presence event into the map.
//
// Available creates or updates the entry: login, game id, affiliation and
// role are always overwritten (a cleared game id means the occupant left
// the game), user id, avatar and background only when the event carries
// one. Unavailable only flips the status of a known entry; an unavailable
// event for an address never seen is a no-op.
func (t *Tracker) Apply(p stanza.Presence) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch p.Type {
	case stanza.Available:
		entry, ok := t.participants[p.From]
		if !ok {
			entry = &Participant{JID: p.From}
			t.participants[p.From] = entry
		}
		entry.Login = p.Login
		if p.UserID != "" {
			entry.UserID = p.UserID
		}
		if p.Avatar != "" {
			entry.Avatar = p.Avatar
		}
		if p.Background != "" {
			entry.Background = p.Background
		}
		entry.GameID = p.GameID
		entry.Affiliation = p.Affiliation
		entry.Role = p.Role
		entry.Status = stanza.Available
		entry.LastSeen = time.Now()

	case stanza.Unavailable:
		if entry, ok := t.participants[p.From]; ok {
			entry.Status = stanza.Unavailable
		}
	}
}

// Get returns a copy of the participant for the given room JID.
func (t *Tracker) Get(jid string) (Participant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.participants[jid]
	if !ok {
		return Participant{}, false
	}
	return *entry, true
}

// All returns a login-sorted snapshot of every known participant.
func (t *Tracker) All() []Participant {
	return t.snapshot(func(Participant) bool { return true })
}

// Online returns a login-sorted snapshot of available participants.
func (t *Tracker) Online() []Participant {
	return t.snapshot(func(p Participant) bool { return p.Status == stanza.Available })
}

func (t *Tracker) snapshot(keep func(Participant) bool) []Participant {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Participant, 0, len(t.participants))
	for _, entry := range t.participants {
		if keep(*entry) {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Login) < strings.ToLower(out[j].Login)
	})
	return out
}
