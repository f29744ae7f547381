package session

import (
	"context"
	"encoding/xml"
	"errors"
	"strconv"
	"testing"

	"github.com/vovakirdan/kgchat/internal/config"
	"github.com/vovakirdan/kgchat/internal/log"
)

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
		`<body xmlns='http://jabber.org/protocol/httpbind' sid='s1' wait='60'/>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/></body>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><stream:features xmlns:stream='http://etherx.jabber.org/streams'/></body>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><iq xmlns='jabber:client' type='result'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>100#tester@example.com/kg</jid></bind></iq></body>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'/>`,
	}
}

func newTestSession(tr *stubTransport) *Session {
	server := config.Server{URL: "test", Domain: "example.com", Resource: "kg"}
	conn := config.Default().Connection
	return New(tr, server, conn, log.Nop())
}

func testCreds() Credentials {
	return Credentials{UserID: "100", Login: "tester", Password: "secret"}
}

type requestBody struct {
	RID  string `xml:"rid,attr"`
	SID  string `xml:"sid,attr"`
	To   string `xml:"to,attr"`
	Type string `xml:"type,attr"`
}

func parseRequest(t *testing.T, raw []byte) requestBody {
	t.Helper()
	var body requestBody
	if err := xml.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed to parse recorded request %q: %v", raw, err)
	}
	return body
}

func TestConnectPopulatesSession(t *testing.T) {
	tr := &stubTransport{}
	tr.push(handshakeResponses()...)
	sess := newTestSession(tr)

	if err := sess.Connect(context.Background(), testCreds()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if sess.SID() != "s1" {
		t.Errorf("unexpected sid: %q", sess.SID())
	}
	if sess.JID() != "100#tester@example.com/kg" {
		t.Errorf("unexpected jid: %q", sess.JID())
	}
	if !sess.Established() {
		t.Error("expected established session")
	}
	if len(tr.requests) != 5 {
		t.Errorf("expected 5 handshake requests, got %d", len(tr.requests))
	}

	// The session id rides on every request after init.
	for i, raw := range tr.requests[1:] {
		if body := parseRequest(t, raw); body.SID != "s1" {
			t.Errorf("request %d missing sid: %q", i+1, raw)
		}
	}
}

func TestRequestIDStrictlyIncreases(t *testing.T) {
	tr := &stubTransport{}
	tr.push(handshakeResponses()...)
	tr.push(`<body xmlns='http://jabber.org/protocol/httpbind'/>`)
	sess := newTestSession(tr)

	if err := sess.Connect(context.Background(), testCreds()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if _, err := sess.Poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(tr.requests) != 6 {
		t.Fatalf("expected 6 requests, got %d", len(tr.requests))
	}

	var prev int64
	for i, raw := range tr.requests {
		body := parseRequest(t, raw)
		rid, err := strconv.ParseInt(body.RID, 10, 64)
		if err != nil {
			t.Fatalf("request %d has non-numeric rid %q", i, body.RID)
		}
		if i == 0 {
			// First rid is the random seed, unchanged.
			if rid < 1_000_000_000 || rid >= 10_000_000_000 {
				t.Errorf("seed rid %d outside expected range", rid)
			}
		} else if rid != prev+1 {
			t.Errorf("request %d rid %d, want %d", i, rid, prev+1)
		}
		prev = rid
	}
}

func TestConnectFailsWithoutSessionID(t *testing.T) {
	tr := &stubTransport{}
	tr.push(`<body xmlns='http://jabber.org/protocol/httpbind'/>`)
	sess := newTestSession(tr)

	err := sess.Connect(context.Background(), testCreds())
	if !errors.Is(err, ErrNoSessionID) {
		t.Fatalf("expected ErrNoSessionID, got %v", err)
	}
	if len(tr.requests) != 1 {
		t.Errorf("expected handshake to stop after init, got %d requests", len(tr.requests))
	}
}

func TestConnectFailsWithoutBoundJID(t *testing.T) {
	tr := &stubTransport{}
	tr.push(
		`<body xmlns='http://jabber.org/protocol/httpbind' sid='s1'/>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><success/></body>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'/>`,
		`<body xmlns='http://jabber.org/protocol/httpbind'><iq xmlns='jabber:client' type='result'/></body>`,
	)
	sess := newTestSession(tr)

	err := sess.Connect(context.Background(), testCreds())
	if !errors.Is(err, ErrNoBoundJID) {
		t.Fatalf("expected ErrNoBoundJID, got %v", err)
	}
	if len(tr.requests) != 4 {
		t.Errorf("expected handshake to stop after bind, got %d requests", len(tr.requests))
	}
}

func TestDisconnectTerminatesAndClears(t *testing.T) {
	tr := &stubTransport{}
	tr.push(handshakeResponses()...)
	tr.push(`<body xmlns='http://jabber.org/protocol/httpbind' type='terminate'/>`)
	sess := newTestSession(tr)

	if err := sess.Connect(context.Background(), testCreds()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	sess.Disconnect(context.Background())

	last := parseRequest(t, tr.requests[len(tr.requests)-1])
	if last.Type != "terminate" {
		t.Errorf("expected terminate request, got %q", last.Type)
	}
	if sess.SID() != "" || sess.JID() != "" {
		t.Errorf("session not cleared: sid=%q jid=%q", sess.SID(), sess.JID())
	}
	if sess.Established() {
		t.Error("expected torn-down session")
	}
}

func TestDisconnectWithoutSessionSendsNothing(t *testing.T) {
	tr := &stubTransport{}
	sess := newTestSession(tr)

	sess.Disconnect(context.Background())
	if len(tr.requests) != 0 {
		t.Errorf("expected no terminate without a sid, got %d requests", len(tr.requests))
	}
}

func TestSendMessageRequiresEstablishedSession(t *testing.T) {
	tr := &stubTransport{}
	sess := newTestSession(tr)

	err := sess.SendMessage(context.Background(), nil)
	if !errors.Is(err, ErrNotEstablished) {
		t.Fatalf("expected ErrNotEstablished, got %v", err)
	}
	if len(tr.requests) != 0 {
		t.Errorf("expected no network traffic, got %d requests", len(tr.requests))
	}
}
