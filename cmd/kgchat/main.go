package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/kgchat/internal/app"
	"github.com/vovakirdan/kgchat/internal/config"
	"github.com/vovakirdan/kgchat/internal/log"
	"github.com/vovakirdan/kgchat/internal/store/sqlite"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:           "kgchat",
		Short:         "BOSH chat client for klavogonki.ru rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(listenCmd(), sendCmd(), accountsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration and builds the logger. The log-level
// flag overrides the configured level.
func loadConfig() (config.Config, *zerolog.Logger, error) {
	bootLogger := log.New("info")
	cfg, path, err := config.Load(bootLogger, flagConfig)
	if err != nil {
		return cfg, bootLogger, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("path", path).Msg("config loaded")
	return cfg, logger, nil
}

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Connect, join the configured rooms and print chat until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			return application.Run(ctx)
		},
	}
}

func sendCmd() *cobra.Command {
	var room string
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send one message to a room and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			return application.SendOnce(ctx, args[0], room)
		},
	}
	cmd.Flags().StringVar(&room, "room", "", "room JID (defaults to the first auto-join room)")
	return cmd
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage stored accounts",
	}

	var (
		userID   string
		password string
		active   bool
	)
	add := &cobra.Command{
		Use:   "add <login>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *sqlite.SQLiteStore) error {
				acc, err := st.AddAccount(ctx, userID, args[0], password, active)
				if err != nil {
					return err
				}
				fmt.Printf("added %s#%s\n", acc.UserID, acc.Login)
				return nil
			})
		},
	}
	add.Flags().StringVar(&userID, "user-id", "", "numeric site id")
	add.Flags().StringVar(&password, "password", "", "account password")
	add.Flags().BoolVar(&active, "active", false, "make this the active account")
	add.MarkFlagRequired("user-id")
	add.MarkFlagRequired("password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *sqlite.SQLiteStore) error {
				accounts, err := st.ListAccounts(ctx)
				if err != nil {
					return err
				}
				for _, acc := range accounts {
					marker := " "
					if acc.Active {
						marker = "*"
					}
					fmt.Printf("%s %s#%s\n", marker, acc.UserID, acc.Login)
				}
				return nil
			})
		},
	}

	use := &cobra.Command{
		Use:   "use <login>",
		Short: "Switch the active account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *sqlite.SQLiteStore) error {
				return st.SetActive(ctx, args[0])
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <login>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *sqlite.SQLiteStore) error {
				return st.RemoveAccount(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(add, list, use, remove)
	return cmd
}

func withStore(fn func(context.Context, *sqlite.SQLiteStore) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st)
}
