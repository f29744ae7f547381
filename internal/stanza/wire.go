package stanza

import "encoding/xml"

// Namespaces used on the wire.
const (
	NSHTTPBind = "http://jabber.org/protocol/httpbind"
	NSXBOSH    = "urn:xmpp:xbosh"
	NSClient   = "jabber:client"
	NSSASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	NSBind     = "urn:ietf:params:xml:ns:xmpp-bind"
	NSSession  = "urn:ietf:params:xml:ns:xmpp-session"
	NSMUC      = "http://jabber.org/protocol/muc"
	NSMUCUser  = "http://jabber.org/protocol/muc#user"
	NSUserData = "klavogonki:userdata"
	NSDelay    = "urn:xmpp:delay"
)

// Body is the BOSH envelope. Every request and response is one of these;
// the session id, request id and termination signal all ride on its attributes.
type Body struct {
	XMLName     xml.Name `xml:"body"`
	RID         string   `xml:"rid,attr,omitempty"`
	XMLNS       string   `xml:"xmlns,attr,omitempty"`
	SID         string   `xml:"sid,attr,omitempty"`
	To          string   `xml:"to,attr,omitempty"`
	Lang        string   `xml:"xml:lang,attr,omitempty"`
	Wait        string   `xml:"wait,attr,omitempty"`
	Hold        string   `xml:"hold,attr,omitempty"`
	Content     string   `xml:"content,attr,omitempty"`
	Ver         string   `xml:"ver,attr,omitempty"`
	Type        string   `xml:"type,attr,omitempty"`
	XMLNSXMPP   string   `xml:"xmlns:xmpp,attr,omitempty"`
	XMPPVersion string   `xml:"xmpp:version,attr,omitempty"`
	XMPPRestart string   `xml:"xmpp:restart,attr,omitempty"`

	Auth     *Auth         `xml:"auth,omitempty"`
	IQ       *IQ           `xml:"iq,omitempty"`
	Presence *JoinPresence `xml:"presence,omitempty"`
	Message  *ChatMessage  `xml:"message,omitempty"`
}

// Auth carries the SASL PLAIN token.
type Auth struct {
	XMLName   xml.Name `xml:"auth"`
	XMLNS     string   `xml:"xmlns,attr"`
	Mechanism string   `xml:"mechanism,attr"`
	Token     string   `xml:",chardata"`
}

// IQ is the request/response element for resource bind and session establish.
type IQ struct {
	XMLName xml.Name        `xml:"iq"`
	Type    string          `xml:"type,attr,omitempty"`
	ID      string          `xml:"id,attr,omitempty"`
	XMLNS   string          `xml:"xmlns,attr,omitempty"`
	Bind    *BindRequest    `xml:"bind,omitempty"`
	Session *SessionRequest `xml:"session,omitempty"`
}

// BindRequest asks the server to bind a resource; the response carries the JID.
type BindRequest struct {
	XMLName  xml.Name `xml:"bind"`
	XMLNS    string   `xml:"xmlns,attr,omitempty"`
	Resource string   `xml:"resource,omitempty"`
	JID      string   `xml:"jid,omitempty"`
}

// SessionRequest establishes the session after bind.
type SessionRequest struct {
	XMLName xml.Name `xml:"session"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`
}

// JoinPresence announces the client in a MUC room. Extensions carries the
// bare muc block plus the vendor userdata block so other occupants see the
// login; both are x elements distinguished only by namespace.
type JoinPresence struct {
	XMLName    xml.Name     `xml:"presence"`
	XMLNS      string       `xml:"xmlns,attr,omitempty"`
	To         string       `xml:"to,attr"`
	Extensions []ExtensionX `xml:"x,omitempty"`
}

// ExtensionX is an x extension element on an outgoing presence.
type ExtensionX struct {
	XMLName xml.Name  `xml:"x"`
	XMLNS   string    `xml:"xmlns,attr"`
	User    *UserInfo `xml:"user,omitempty"`
}

// UserInfo is the vendor user block inside an extension.
type UserInfo struct {
	Login string `xml:"login,omitempty"`
}

// ChatMessage is an outgoing groupchat message.
type ChatMessage struct {
	XMLName xml.Name `xml:"message"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`
	To      string   `xml:"to,attr"`
	Type    string   `xml:"type,attr"`
	ID      string   `xml:"id,attr,omitempty"`
	Body    string   `xml:"body"`
}
