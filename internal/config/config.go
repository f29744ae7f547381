package config

import "errors"

// Config holds client configuration values.
type Config struct {
	LogLevel     string     `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath string     `mapstructure:"database_path" yaml:"database_path"`
	Server       Server     `mapstructure:"server" yaml:"server"`
	Connection   Connection `mapstructure:"connection" yaml:"connection"`
	Headers      Headers    `mapstructure:"headers" yaml:"headers"`
	Filter       Filter     `mapstructure:"filter" yaml:"filter"`
	AvatarBase   string     `mapstructure:"avatar_base" yaml:"avatar_base"`
	Rooms        []Room     `mapstructure:"rooms" yaml:"rooms"`
}

// Server identifies the BOSH endpoint and the XMPP identity to bind.
type Server struct {
	URL      string `mapstructure:"url" yaml:"url"`
	Domain   string `mapstructure:"domain" yaml:"domain"`
	Resource string `mapstructure:"resource" yaml:"resource"`
}

// Connection carries the BOSH session-init attributes. All values are sent
// verbatim on the opening body element.
type Connection struct {
	Lang        string `mapstructure:"lang" yaml:"lang"`
	Wait        string `mapstructure:"wait" yaml:"wait"`
	Hold        string `mapstructure:"hold" yaml:"hold"`
	ContentType string `mapstructure:"content_type" yaml:"content_type"`
	Version     string `mapstructure:"version" yaml:"version"`
	XMPPVersion string `mapstructure:"xmpp_version" yaml:"xmpp_version"`
}

// Headers are sent on every HTTP POST. The chat server rejects requests
// without a browser-looking origin, so these are configuration, not constants.
type Headers struct {
	Origin    string `mapstructure:"origin" yaml:"origin"`
	Referer   string `mapstructure:"referer" yaml:"referer"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Filter configures inbound message suppression. BotLogin drops everything
// from that sender; Phrase drops messages containing it, case-insensitively.
type Filter struct {
	BotLogin string `mapstructure:"bot_login" yaml:"bot_login"`
	Phrase   string `mapstructure:"phrase" yaml:"phrase"`
}

// Room is a multi-user chat room the client knows about.
type Room struct {
	JID      string `mapstructure:"jid" yaml:"jid"`
	Nickname string `mapstructure:"nickname" yaml:"nickname"`
	AutoJoin bool   `mapstructure:"auto_join" yaml:"auto_join"`
}

var (
	ErrNoServerURL = errors.New("server url is not configured")
	ErrNoDomain    = errors.New("server domain is not configured")
)

// Default returns configuration with the stock klavogonki endpoint values.
func Default() Config {
	return Config{
		LogLevel:     "info",
		DatabasePath: "kgchat.db",
		Server: Server{
			URL:      "https://klavogonki.ru/xmpp-httpbind/",
			Domain:   "klavogonki.ru",
			Resource: "kg",
		},
		Connection: Connection{
			Lang:        "en",
			Wait:        "60",
			Hold:        "1",
			ContentType: "text/xml; charset=utf-8",
			Version:     "1.6",
			XMPPVersion: "1.0",
		},
		Headers: Headers{
			Origin:    "https://klavogonki.ru",
			Referer:   "https://klavogonki.ru/gamelist/",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		Filter: Filter{
			BotLogin: "Клавобот",
			Phrase:   "not anonymous",
		},
		AvatarBase: "https://klavogonki.ru",
		Rooms: []Room{
			{JID: "general@conference.klavogonki.ru", AutoJoin: true},
		},
	}
}

// Validate reports configuration errors that make the client unusable.
// These are fatal at construction; nothing retries them.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return ErrNoServerURL
	}
	if c.Server.Domain == "" {
		return ErrNoDomain
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.Server.URL != "" {
		c.Server.URL = other.Server.URL
	}
	if other.Server.Domain != "" {
		c.Server.Domain = other.Server.Domain
	}
	if other.Server.Resource != "" {
		c.Server.Resource = other.Server.Resource
	}
	if len(other.Rooms) > 0 {
		c.Rooms = other.Rooms
	}
}

// AutoJoinRoom returns the first room flagged for auto-join, or nil.
func (c *Config) AutoJoinRoom() *Room {
	for i := range c.Rooms {
		if c.Rooms[i].AutoJoin {
			return &c.Rooms[i]
		}
	}
	return nil
}
