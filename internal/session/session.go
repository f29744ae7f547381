package session

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/kgchat/internal/auth"
	"github.com/vovakirdan/kgchat/internal/config"
	"github.com/vovakirdan/kgchat/internal/stanza"
	"github.com/vovakirdan/kgchat/internal/transport/bosh"
	"github.com/vovakirdan/kgchat/internal/utils"
)

var (
	// ErrNoSessionID means the server did not assign a sid on session init.
	ErrNoSessionID = errors.New("server did not assign a session id")
	// ErrNoBoundJID means the bind response carried no JID.
	ErrNoBoundJID = errors.New("server did not return a bound jid")
	// ErrNotEstablished means an operation needs a connected session.
	ErrNotEstablished = errors.New("session not established")
)

// Credentials identify an account for the SASL PLAIN handshake.
type Credentials struct {
	UserID   string
	Login    string
	Password string
}

// Session owns the BOSH session state: the monotonically increasing request
// id, the server-assigned sid and the bound JID. All sends are serialized
// behind its mutex; the server drops sessions whose rids arrive out of order.
type Session struct {
	mu        sync.Mutex
	transport bosh.Transport
	log       *zerolog.Logger

	domain   string
	resource string
	conn     config.Connection

	rid int64
	sid string
	jid string
}

// New builds a session against the given transport. The request id is
// seeded from a random range so rids never collide across restarts.
func New(t bosh.Transport, server config.Server, conn config.Connection, logger *zerolog.Logger) *Session {
	return &Session{
		transport: t,
		log:       logger,
		domain:    server.Domain,
		resource:  server.Resource,
		conn:      conn,
		rid:       utils.SeedRequestID(),
	}
}

// SID returns the server-assigned session id, empty before connect.
func (s *Session) SID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// JID returns the bound full address, empty before bind succeeds.
func (s *Session) JID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jid
}

// Established reports whether the handshake completed.
func (s *Session) Established() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid != "" && s.jid != ""
}

// Connect runs the handshake: init, authenticate, stream restart, resource
// bind, session establish. It short-circuits as soon as a required
// server-assigned field is missing. No retry here; that is the caller's call.
func (s *Session) Connect(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Session init. The very first request goes out with the seeded rid.
	body := s.newBody()
	body.To = s.domain
	body.Lang = s.conn.Lang
	body.Wait = s.conn.Wait
	body.Hold = s.conn.Hold
	body.Content = s.conn.ContentType
	body.Ver = s.conn.Version
	body.XMLNSXMPP = stanza.NSXBOSH
	body.XMPPVersion = s.conn.XMPPVersion

	resp, err := s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}
	env, err := stanza.DecodeEnvelope(resp)
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}
	if env.SID == "" {
		return ErrNoSessionID
	}
	s.sid = env.SID
	s.log.Debug().Str("sid", s.sid).Msg("session initialized")

	// Authenticate.
	s.rid++
	body = s.newBody()
	body.Auth = &stanza.Auth{
		XMLNS:     stanza.NSSASL,
		Mechanism: auth.Mechanism,
		Token:     auth.PlainToken(creds.UserID, creds.Login, creds.Password),
	}
	if _, err := s.post(ctx, body); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	// Restart the stream.
	s.rid++
	body = s.newBody()
	body.To = s.domain
	body.Lang = "en"
	body.XMLNSXMPP = stanza.NSXBOSH
	body.XMPPRestart = "true"
	if _, err := s.post(ctx, body); err != nil {
		return fmt.Errorf("stream restart: %w", err)
	}

	// Bind the resource.
	s.rid++
	body = s.newBody()
	body.IQ = &stanza.IQ{
		Type:  "set",
		ID:    uuid.NewString(),
		XMLNS: stanza.NSClient,
		Bind: &stanza.BindRequest{
			XMLNS:    stanza.NSBind,
			Resource: s.resource,
		},
	}
	resp, err = s.post(ctx, body)
	if err != nil {
		return fmt.Errorf("bind resource: %w", err)
	}
	env, err = stanza.DecodeEnvelope(resp)
	if err != nil {
		return fmt.Errorf("bind resource: %w", err)
	}
	if env.BoundJID == "" {
		return ErrNoBoundJID
	}
	s.jid = env.BoundJID
	s.log.Debug().Str("jid", s.jid).Msg("resource bound")

	// Establish the session.
	s.rid++
	body = s.newBody()
	body.IQ = &stanza.IQ{
		Type:    "set",
		ID:      uuid.NewString(),
		XMLNS:   stanza.NSClient,
		Session: &stanza.SessionRequest{XMLNS: stanza.NSSession},
	}
	if _, err := s.post(ctx, body); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	return nil
}

// Disconnect best-effort terminates the session, then clears the sid and
// bound JID unconditionally.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sid != "" {
		s.rid++
		body := s.newBody()
		body.Type = stanza.Terminate
		if _, err := s.post(ctx, body); err != nil {
			s.log.Debug().Err(err).Msg("terminate request failed")
		}
	}
	s.sid = ""
	s.jid = ""
}

// Poll sends an empty keep-alive body and returns the raw response.
// It blocks for up to the server-side wait interval.
func (s *Session) Poll(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rid++
	return s.post(ctx, s.newBody())
}

// SendPresence attaches a presence to the next request and returns the raw
// response, which for a room join carries the initial occupant roster.
func (s *Session) SendPresence(ctx context.Context, p *stanza.JoinPresence) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rid++
	body := s.newBody()
	body.Presence = p
	return s.post(ctx, body)
}

// SendMessage attaches a chat message to the next request. It requires an
// established session.
func (s *Session) SendMessage(ctx context.Context, m *stanza.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sid == "" || s.jid == "" {
		return ErrNotEstablished
	}

	s.rid++
	body := s.newBody()
	body.Message = m
	if _, err := s.post(ctx, body); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// newBody builds an envelope carrying the current rid and, once assigned,
// the sid. Callers must hold s.mu.
func (s *Session) newBody() *stanza.Body {
	b := &stanza.Body{
		RID:   strconv.FormatInt(s.rid, 10),
		XMLNS: stanza.NSHTTPBind,
	}
	if s.sid != "" {
		b.SID = s.sid
	}
	return b
}

func (s *Session) post(ctx context.Context, body *stanza.Body) ([]byte, error) {
	payload, err := xml.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return s.transport.Post(ctx, payload)
}
