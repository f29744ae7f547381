package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/kgchat/internal/config"
	"github.com/vovakirdan/kgchat/internal/roster"
	"github.com/vovakirdan/kgchat/internal/session"
	"github.com/vovakirdan/kgchat/internal/stanza"
)

// ErrNoRoom means a message had no explicit room and no auto-join room is
// configured.
var ErrNoRoom = errors.New("no destination room")

// Callbacks are invoked from the poll loop goroutine. Consumers marshal to
// their own loop as needed.
type Callbacks struct {
	OnMessage  func(stanza.Message)
	OnPresence func(stanza.Presence)
}

// Client ties the session, codec and roster together: it joins rooms,
// sends messages and runs the long-poll loop that turns inbound frames
// into callbacks.
type Client struct {
	sess    *session.Session
	tracker *roster.Tracker
	log     *zerolog.Logger

	creds  session.Credentials
	rooms  []config.Room
	filter config.Filter

	callbacks Callbacks

	mu     sync.Mutex
	joined map[string]struct{}
	// primed flips once the first join's own response has been fully
	// processed; until then available presences are existing occupants,
	// not new joins, and must not reach the presence callback.
	primed bool
}

// New builds a client around an existing session.
func New(sess *session.Session, creds session.Credentials, cfg config.Config, cb Callbacks, logger *zerolog.Logger) *Client {
	return &Client{
		sess:      sess,
		tracker:   roster.NewTracker(),
		log:       logger,
		creds:     creds,
		rooms:     cfg.Rooms,
		filter:    cfg.Filter,
		callbacks: cb,
		joined:    make(map[string]struct{}),
	}
}

// Roster exposes the participant tracker for snapshot queries.
func (c *Client) Roster() *roster.Tracker {
	return c.tracker
}

// Connect runs the session handshake with the client's credentials.
func (c *Client) Connect(ctx context.Context) error {
	c.log.Info().Str("login", c.creds.Login).Msg("connecting")
	if err := c.sess.Connect(ctx, c.creds); err != nil {
		return err
	}
	c.log.Info().Str("jid", c.sess.JID()).Msg("connected")
	return nil
}

// Disconnect terminates the session.
func (c *Client) Disconnect(ctx context.Context) {
	c.sess.Disconnect(ctx)
}

// Join enters a MUC room. A repeat join for an already-joined room is a
// no-op with no network traffic. An empty nickname defaults to the
// account's numericId#login form. The join response carries the room's
// current occupants; they update the roster but do not fire the presence
// callback.
//
// Join holds the client lock across the round trip, so callbacks must not
// call back into Join.
func (c *Client) Join(ctx context.Context, roomJID, nickname string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.joined[roomJID]; ok {
		c.log.Debug().Str("room", roomJID).Msg("already joined")
		return nil
	}

	if nickname == "" {
		nickname = fmt.Sprintf("%s#%s", c.creds.UserID, c.creds.Login)
	}

	p := &stanza.JoinPresence{
		XMLNS: stanza.NSClient,
		To:    roomJID + "/" + nickname,
		Extensions: []stanza.ExtensionX{
			{XMLNS: stanza.NSMUC},
			{XMLNS: stanza.NSUserData, User: &stanza.UserInfo{Login: c.creds.Login}},
		},
	}

	resp, err := c.sess.SendPresence(ctx, p)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomJID, err)
	}

	env, err := stanza.DecodeEnvelope(resp)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomJID, err)
	}
	c.dispatch(env, true)

	c.joined[roomJID] = struct{}{}
	c.primed = true
	c.log.Info().Str("room", roomJID).Str("nickname", nickname).Msg("joined room")
	return nil
}

// AutoJoin joins every room flagged auto_join in configuration.
func (c *Client) AutoJoin(ctx context.Context) error {
	for _, room := range c.rooms {
		if !room.AutoJoin {
			continue
		}
		if err := c.Join(ctx, room.JID, room.Nickname); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers a groupchat message. An empty roomJID resolves to the
// first auto-join room in configuration.
func (c *Client) Send(ctx context.Context, body, roomJID string) error {
	if roomJID == "" {
		for _, room := range c.rooms {
			if room.AutoJoin {
				roomJID = room.JID
				break
			}
		}
	}
	if roomJID == "" {
		return ErrNoRoom
	}

	msg := &stanza.ChatMessage{
		XMLNS: stanza.NSClient,
		To:    roomJID,
		Type:  "groupchat",
		ID:    uuid.NewString(),
		Body:  body,
	}
	return c.sess.SendMessage(ctx, msg)
}

// Listen runs the long-poll loop until the server terminates the session,
// the transport fails, or ctx is cancelled. A malformed frame is logged
// and skipped; it never kills the loop.
func (c *Client) Listen(ctx context.Context) error {
	c.log.Info().Msg("listening")

	for {
		raw, err := c.sess.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("poll: %w", err)
		}

		env, err := stanza.DecodeEnvelope(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed frame")
			continue
		}
		if env.Terminated() {
			c.log.Warn().Msg("session terminated by server")
			return nil
		}

		c.mu.Lock()
		initial := !c.primed
		c.mu.Unlock()
		c.dispatch(env, initial)
	}
}

// dispatch routes decoded events. When initial is true, available
// presences update the roster without firing the presence callback;
// unavailable presences always fire it, a leave is always reported.
func (c *Client) dispatch(env *stanza.Envelope, initial bool) {
	for _, msg := range env.Messages {
		if c.suppressed(msg) {
			c.log.Debug().Str("from", msg.From).Msg("message suppressed")
			continue
		}
		if c.callbacks.OnMessage != nil {
			c.callbacks.OnMessage(msg)
		}
	}

	for _, pres := range env.Presences {
		c.tracker.Apply(pres)

		switch pres.Type {
		case stanza.Available:
			if !initial && c.callbacks.OnPresence != nil {
				c.callbacks.OnPresence(pres)
			}
		case stanza.Unavailable:
			if c.callbacks.OnPresence != nil {
				c.callbacks.OnPresence(pres)
			}
		}
	}
}

// suppressed filters out the configured bot identity and messages
// containing the configured moderation phrase, case-insensitively.
func (c *Client) suppressed(msg stanza.Message) bool {
	if c.filter.BotLogin != "" && msg.Login == c.filter.BotLogin {
		return true
	}
	if c.filter.Phrase != "" &&
		strings.Contains(strings.ToLower(msg.Body), strings.ToLower(c.filter.Phrase)) {
		return true
	}
	return false
}
