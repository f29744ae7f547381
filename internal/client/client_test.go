package client

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vovakirdan/kgchat/internal/config"
	"github.com/vovakirdan/kgchat/internal/log"
	"github.com/vovakirdan/kgchat/internal/session"
	"github.com/vovakirdan/kgchat/internal/stanza"
)

const testRoom = "general@conference.example.com"

// stubTransport replays scripted responses and records every request.
type stubTransport struct {
	responses [][]byte
	requests  [][]byte
}

func (s *stubTransport) Post(ctx context.Context, payload []byte) ([]byte, error) {
	s.requests = append(s.requests, payload)
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *stubTransport) push(responses ...string) {
	for _, r := range responses {
		s.responses = append(s.responses, []byte(r))
	}
}

func handshakeResponses() []string {
	return []string{
		`<body xmlns='http://jabber.org/protocol/httpbind' sid='s1'/>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><success/></body>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'/>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><iq xmlns='jabber:client' type='result'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>100#tester@example.com/kg</jid></bind></iq></body>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'/>`,
	}
}

// recorder collects callback invocations.
type recorder struct {
	messages  []stanza.Message
	presences []stanza.Presence
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnMessage:  func(m stanza.Message) { r.messages = append(r.messages, m) },
		OnPresence: func(p stanza.Presence) { r.presences = append(r.presences, p) },
	}
}

func testConfig() config.Config {
	cfg := config.Config{
		Rooms:  []config.Room{{JID: testRoom, AutoJoin: true}},
		Filter: config.Filter{BotLogin: "Клавобот", Phrase: "not anonymous"},
	}
	return cfg
}

func newTestClient(t *testing.T, cfg config.Config, cb Callbacks) (*Client, *stubTransport) {
	t.Helper()

	tr := &stubTransport{}
	server := config.Server{URL: "test", Domain: "example.com", Resource: "kg"}
	sess := session.New(tr, server, config.Default().Connection, log.Nop())
	creds := session.Credentials{UserID: "100", Login: "tester", Password: "secret"}
	return New(sess, creds, cfg, cb, log.Nop()), tr
}

func connectedClient(t *testing.T, cfg config.Config, cb Callbacks) (*Client, *stubTransport) {
	t.Helper()

	c, tr := newTestClient(t, cfg, cb)
	tr.push(handshakeResponses()...)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return c, tr
}

func presenceFrame(items ...string) string {
	return `<body xmlns='http://jabber.org/protocol/httpbind'>` + strings.Join(items, "") + `</body>`
}

func TestJoinIsIdempotent(t *testing.T) {
	c, tr := connectedClient(t, testConfig(), Callbacks{})
	tr.push(presenceFrame())

	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	before := len(tr.requests)

	// Second join: no-op, no network traffic. The stub has no responses
	// left, so any request would fail loudly.
	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("repeat join failed: %v", err)
	}
	if len(tr.requests) != before {
		t.Errorf("repeat join issued %d extra requests", len(tr.requests)-before)
	}
}

func TestJoinDefaultsNickname(t *testing.T) {
	c, tr := connectedClient(t, testConfig(), Callbacks{})
	tr.push(presenceFrame())

	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	joinReq := string(tr.requests[len(tr.requests)-1])
	if !strings.Contains(joinReq, testRoom+"/100#tester") {
		t.Errorf("join presence missing default nickname: %s", joinReq)
	}
	if !strings.Contains(joinReq, "klavogonki:userdata") {
		t.Errorf("join presence missing userdata extension: %s", joinReq)
	}
}

func TestInitialRosterDoesNotFireCallback(t *testing.T) {
	rec := &recorder{}
	c, tr := connectedClient(t, testConfig(), rec.callbacks())
	tr.push(presenceFrame(
		`<presence xmlns='jabber:client' from='`+testRoom+`/1#alice'/>`,
		`<presence xmlns='jabber:client' from='`+testRoom+`/2#bob'/>`,
	))

	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if len(rec.presences) != 0 {
		t.Errorf("initial roster fired %d presence callbacks", len(rec.presences))
	}
	if got := len(c.Roster().Online()); got != 2 {
		t.Errorf("expected 2 roster entries from initial roster, got %d", got)
	}

	// A later available presence from a new address is a real join.
	tr.push(
		presenceFrame(`<presence xmlns='jabber:client' from='`+testRoom+`/3#carol'/>`),
		`<body xmlns='http://jabber.org/protocol/httpbind' type='terminate'/>`,
	)
	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	if len(rec.presences) != 1 {
		t.Fatalf("expected 1 presence callback, got %d", len(rec.presences))
	}
	if rec.presences[0].Login != "carol" {
		t.Errorf("unexpected presence callback: %+v", rec.presences[0])
	}
}

func TestUnavailableAlwaysFiresCallback(t *testing.T) {
	rec := &recorder{}
	c, tr := connectedClient(t, testConfig(), rec.callbacks())

	// Unavailable inside the join's own response still reports the leave.
	tr.push(presenceFrame(
		`<presence xmlns='jabber:client' from='`+testRoom+`/1#alice'/>`,
		`<presence xmlns='jabber:client' from='`+testRoom+`/1#alice' type='unavailable'/>`,
	))
	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if len(rec.presences) != 1 {
		t.Fatalf("expected 1 presence callback, got %d", len(rec.presences))
	}
	if rec.presences[0].Type != stanza.Unavailable {
		t.Errorf("expected unavailable callback, got %+v", rec.presences[0])
	}

	got, ok := c.Roster().Get(testRoom + "/1#alice")
	if !ok || got.Status != stanza.Unavailable {
		t.Errorf("roster should keep the left participant: %+v ok=%v", got, ok)
	}
}

func TestMessageSuppression(t *testing.T) {
	rec := &recorder{}
	c, tr := connectedClient(t, testConfig(), rec.callbacks())
	tr.push(presenceFrame())
	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	botMessage := `<message xmlns='jabber:client' from='` + testRoom + `/7#bot' type='groupchat'>` +
		`<body>totally normal text</body>` +
		`<x xmlns='klavogonki:userdata'><user><login>Клавобот</login></user></x></message>`
	phraseMessage := `<message xmlns='jabber:client' from='` + testRoom + `/1#alice' type='groupchat'>` +
		`<body>you are NOT Anonymous here</body></message>`
	normalMessage := `<message xmlns='jabber:client' from='` + testRoom + `/1#alice' type='groupchat'>` +
		`<body>hello</body></message>`

	tr.push(
		presenceFrame(botMessage, phraseMessage, normalMessage),
		`<body xmlns='http://jabber.org/protocol/httpbind' type='terminate'/>`,
	)
	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	if len(rec.messages) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(rec.messages))
	}
	if rec.messages[0].Body != "hello" {
		t.Errorf("wrong message delivered: %+v", rec.messages[0])
	}
}

func TestListenSkipsMalformedFrames(t *testing.T) {
	rec := &recorder{}
	c, tr := connectedClient(t, testConfig(), rec.callbacks())
	tr.push(presenceFrame())
	if err := c.Join(context.Background(), testRoom, ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	tr.push(
		"this is not xml",
		presenceFrame(`<message xmlns='jabber:client' from='`+testRoom+`/1#alice' type='groupchat'><body>still alive</body></message>`),
		`<body xmlns='http://jabber.org/protocol/httpbind' type='terminate'/>`,
	)
	if err := c.Listen(context.Background()); err != nil {
		t.Fatalf("listen should survive a bad frame: %v", err)
	}

	if len(rec.messages) != 1 || rec.messages[0].Body != "still alive" {
		t.Errorf("expected the message after the bad frame, got %+v", rec.messages)
	}
}

func TestSendResolvesDefaultRoom(t *testing.T) {
	c, tr := connectedClient(t, testConfig(), Callbacks{})
	tr.push(`<body xmlns='http://jabber.org/protocol/httpbind'/>`)

	if err := c.Send(context.Background(), "hi", ""); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	sendReq := string(tr.requests[len(tr.requests)-1])
	if !strings.Contains(sendReq, `to="`+testRoom+`"`) {
		t.Errorf("message not routed to default room: %s", sendReq)
	}
	if !strings.Contains(sendReq, `type="groupchat"`) {
		t.Errorf("message missing groupchat type: %s", sendReq)
	}
}

func TestSendWithoutRoom(t *testing.T) {
	cfg := testConfig()
	cfg.Rooms = nil
	c, _ := newTestClient(t, cfg, Callbacks{})

	err := c.Send(context.Background(), "hi", "")
	if !errors.Is(err, ErrNoRoom) {
		t.Fatalf("expected ErrNoRoom, got %v", err)
	}
}

func TestSendWithoutSession(t *testing.T) {
	c, tr := newTestClient(t, testConfig(), Callbacks{})

	err := c.Send(context.Background(), "hi", "")
	if !errors.Is(err, session.ErrNotEstablished) {
		t.Fatalf("expected ErrNotEstablished, got %v", err)
	}
	if len(tr.requests) != 0 {
		t.Errorf("expected no network traffic, got %d requests", len(tr.requests))
	}
}
