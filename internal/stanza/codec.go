package stanza

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Terminate is the body type attribute the server sets when it ends the session.
const Terminate = "terminate"

// Envelope is the decoded view of one inbound BOSH body: the session-level
// attributes plus every message and presence it carried.
type Envelope struct {
	SID       string
	Type      string
	BoundJID  string
	Messages  []Message
	Presences []Presence
}

// Terminated reports whether the server signalled the end of the session.
func (e *Envelope) Terminated() bool {
	return e.Type == Terminate
}

// DecodeEnvelope parses a raw response body. A malformed frame returns an
// error; the caller decides whether that aborts anything (the poll loop
// logs and keeps going). Oddities inside individual stanzas never error,
// they just degrade to fewer events.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var body inboundBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	env := &Envelope{
		SID:  body.SID,
		Type: body.Type,
	}
	for _, iq := range body.IQs {
		if iq.Bind != nil && iq.Bind.JID != "" {
			env.BoundJID = iq.Bind.JID
		}
	}
	for _, m := range body.Messages {
		if msg, ok := decodeMessage(m); ok {
			env.Messages = append(env.Messages, msg)
		}
	}
	for _, p := range body.Presences {
		env.Presences = append(env.Presences, decodePresence(p))
	}
	return env, nil
}

// Decode parses a raw response body into typed events.
func Decode(raw []byte) ([]Message, []Presence, error) {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, nil, err
	}
	return env.Messages, env.Presences, nil
}

func decodeMessage(m inMessage) (Message, bool) {
	// Stanzas without a body are chat-state noise, not messages.
	if m.Body == "" {
		return Message{}, false
	}

	msg := Message{
		From: m.From,
		Body: m.Body,
		Type: m.Type,
	}
	if msg.Type == "" {
		msg.Type = "chat"
	}
	if m.UserData != nil && m.UserData.User != nil {
		msg.Login = m.UserData.User.Login
		msg.Avatar = m.UserData.User.Avatar
		msg.Background = m.UserData.User.Background
	}
	if msg.Login == "" && msg.From != "" {
		msg.Login = LoginFromAddress(msg.From)
	}
	msg.Timestamp = resolveTimestamp(m.Delay)
	return msg, true
}

func decodePresence(p inPresence) Presence {
	pres := Presence{
		From:        p.From,
		Type:        p.Type,
		Affiliation: "none",
		Role:        "participant",
	}
	if pres.Type == "" {
		pres.Type = Available
	}
	if p.UserData != nil {
		if p.UserData.User != nil {
			pres.Login = p.UserData.User.Login
			pres.Avatar = p.UserData.User.Avatar
			pres.Background = p.UserData.User.Background
		}
		pres.GameID = p.UserData.GameID
	}
	if p.MUCUser != nil && p.MUCUser.Item != nil {
		if p.MUCUser.Item.Affiliation != "" {
			pres.Affiliation = p.MUCUser.Item.Affiliation
		}
		if p.MUCUser.Item.Role != "" {
			pres.Role = p.MUCUser.Item.Role
		}
	}

	// The wire never carries an explicit numeric id; it lives in the address.
	id, login := SplitAddress(p.From)
	pres.UserID = id
	if pres.Login == "" {
		pres.Login = login
	}
	return pres
}

// resolveTimestamp prefers the delay extension stamp; an absent or
// unparsable stamp falls back to the local receive time.
func resolveTimestamp(d *inDelay) time.Time {
	if d != nil && d.Stamp != "" {
		if ts, err := time.Parse(time.RFC3339, d.Stamp); err == nil {
			return ts
		}
	}
	return time.Now()
}

// Inbound wire shapes. Tags carry namespaces only where two elements share
// a local name (the x extension blocks).

type inboundBody struct {
	XMLName   xml.Name     `xml:"body"`
	SID       string       `xml:"sid,attr"`
	Type      string       `xml:"type,attr"`
	IQs       []inIQ       `xml:"iq"`
	Messages  []inMessage  `xml:"message"`
	Presences []inPresence `xml:"presence"`
}

type inIQ struct {
	Type string  `xml:"type,attr"`
	Bind *inBind `xml:"bind"`
}

type inBind struct {
	JID string `xml:"jid"`
}

type inMessage struct {
	From     string      `xml:"from,attr"`
	Type     string      `xml:"type,attr"`
	Body     string      `xml:"body"`
	UserData *inUserData `xml:"klavogonki:userdata x"`
	Delay    *inDelay    `xml:"urn:xmpp:delay delay"`
}

type inPresence struct {
	From     string      `xml:"from,attr"`
	Type     string      `xml:"type,attr"`
	UserData *inUserData `xml:"klavogonki:userdata x"`
	MUCUser  *inMUCUser  `xml:"http://jabber.org/protocol/muc#user x"`
}

type inUserData struct {
	User   *inUserInfo `xml:"user"`
	GameID string      `xml:"game_id"`
}

type inUserInfo struct {
	Login      string `xml:"login"`
	Avatar     string `xml:"avatar"`
	Background string `xml:"background"`
}

type inMUCUser struct {
	Item *inMUCItem `xml:"item"`
}

type inMUCItem struct {
	Affiliation string `xml:"affiliation,attr"`
	Role        string `xml:"role,attr"`
}

type inDelay struct {
	Stamp string `xml:"stamp,attr"`
}
