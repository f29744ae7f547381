package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Server.URL = ""
	if err := cfg.Validate(); !errors.Is(err, ErrNoServerURL) {
		t.Errorf("expected ErrNoServerURL, got %v", err)
	}

	cfg = Default()
	cfg.Server.Domain = ""
	if err := cfg.Validate(); !errors.Is(err, ErrNoDomain) {
		t.Errorf("expected ErrNoDomain, got %v", err)
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{
		Server: Server{Domain: "other.example.com"},
		Rooms:  []Room{{JID: "room@conference.other.example.com", AutoJoin: true}},
	})

	if cfg.Server.Domain != "other.example.com" {
		t.Errorf("domain not updated: %q", cfg.Server.Domain)
	}
	if cfg.Server.Resource != "kg" {
		t.Errorf("zero value overwrote resource: %q", cfg.Server.Resource)
	}
	if len(cfg.Rooms) != 1 || cfg.Rooms[0].JID != "room@conference.other.example.com" {
		t.Errorf("rooms not updated: %+v", cfg.Rooms)
	}
}

func TestAutoJoinRoom(t *testing.T) {
	cfg := Config{Rooms: []Room{
		{JID: "a@conf", AutoJoin: false},
		{JID: "b@conf", AutoJoin: true},
		{JID: "c@conf", AutoJoin: true},
	}}

	room := cfg.AutoJoinRoom()
	if room == nil || room.JID != "b@conf" {
		t.Errorf("expected first auto-join room, got %+v", room)
	}

	none := Config{}
	if none.AutoJoinRoom() != nil {
		t.Error("expected nil without auto-join rooms")
	}
}
