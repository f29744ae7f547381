package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/kgchat/internal/client"
	"github.com/vovakirdan/kgchat/internal/config"
	"github.com/vovakirdan/kgchat/internal/session"
	"github.com/vovakirdan/kgchat/internal/stanza"
	"github.com/vovakirdan/kgchat/internal/store"
	"github.com/vovakirdan/kgchat/internal/store/sqlite"
	"github.com/vovakirdan/kgchat/internal/transport/bosh"
)

const disconnectTimeout = 5 * time.Second

// App wires the store, session and client together for the CLI.
type App struct {
	cfg    config.Config
	log    *zerolog.Logger
	store  store.Store
	client *client.Client
}

// New constructs the application with the provided configuration. The
// active account's credentials feed the handshake; inbound events render
// to stdout.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Debug().Str("db_path", cfg.DatabasePath).Msg("account store opened")

	account, err := st.ActiveAccount(context.Background())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load active account: %w", err)
	}

	creds := session.Credentials{
		UserID:   account.UserID,
		Login:    account.Login,
		Password: account.Password,
	}

	transport := bosh.NewHTTP(cfg.Server.URL, cfg.Headers)
	sess := session.New(transport, cfg.Server, cfg.Connection, logger)

	callbacks := client.Callbacks{
		OnMessage:  printMessage,
		OnPresence: printPresence,
	}

	return &App{
		cfg:    cfg,
		log:    logger,
		store:  st,
		client: client.New(sess, creds, cfg, callbacks, logger),
	}, nil
}

// Run connects, joins the configured rooms and listens until the session
// terminates or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	if err := a.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer a.disconnect()

	if err := a.client.AutoJoin(ctx); err != nil {
		return fmt.Errorf("auto-join: %w", err)
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- a.client.Listen(ctx)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
		// The poll request is cancelled through ctx; wait for the loop.
		<-listenErr
		return nil
	}
}

// SendOnce connects, delivers one message and disconnects. An empty room
// resolves to the first auto-join room.
func (a *App) SendOnce(ctx context.Context, text, room string) error {
	defer a.cleanup()

	if err := a.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer a.disconnect()

	if err := a.client.Send(ctx, text, room); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (a *App) disconnect() {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	a.client.Disconnect(ctx)
}

func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		}
	}
}

func printMessage(msg stanza.Message) {
	sender := msg.Login
	if sender == "" {
		sender = stanza.Resource(msg.From)
	}
	fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), sender, msg.Body)
}

func printPresence(pres stanza.Presence) {
	name := pres.Login
	if name == "" {
		name = stanza.Resource(pres.From)
	}
	switch pres.Type {
	case stanza.Unavailable:
		fmt.Printf("* %s left\n", name)
	case stanza.Available:
		if pres.GameID != "" {
			fmt.Printf("* %s joined (game #%s)\n", name, pres.GameID)
		} else {
			fmt.Printf("* %s joined\n", name)
		}
	}
}
