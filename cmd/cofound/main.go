package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cofound/internal/auth"
	"cofound/internal/config"
	"cofound/internal/llm"
	"cofound/internal/logging"
	"cofound/internal/matching"
	"cofound/internal/server"
	"cofound/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "cofound",
	Short: "cofound - collaboration platform backend",
	Long: `cofound is the REST backend for a platform connecting builders,
investors, and technical leads: profile browsing, AI-assisted match
suggestions, project dashboards, and contribution tracking.

Run "cofound serve" to start the API server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Dir, loggingOptions(cfg)); err != nil {
			return err
		}
		logging.Get(logging.CategoryBoot).Info("starting cofound serve")

		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		authn, err := auth.ForMode(cfg.Auth.Mode, cfg.Auth.SubjectHeader, st)
		if err != nil {
			return err
		}
		if cfg.Auth.Mode == "harness" {
			logger.Warn("harness auth mode enabled; do not serve real users with this configuration")
		}

		client, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}

		matcher := matching.NewEngine(st, client, cfg.Matching)
		srv := server.New(cfg, st, authn, matcher, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Hot-reload the tunable config sections while running.
		watcher, err := config.NewWatcher(configPath, func(updated *config.Config) {
			srv.ApplyConfig(updated)
			logging.Reload(loggingOptions(updated))
		})
		if err == nil {
			if werr := watcher.Start(ctx); werr == nil {
				defer watcher.Stop()
			}
		} else {
			logger.Warn("config watcher unavailable", zap.Error(err))
		}

		return srv.Run(ctx)
	},
}

var initDBCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		logger.Info("schema ready", zap.String("path", cfg.Database.Path))
		return nil
	},
}

var sessionProfileID string
var sessionTTL time.Duration

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Mint a session token for a profile",
	Long: `Mint a bearer session token bound to an existing profile. This is an
operator convenience for session-mode deployments; real tokens come from the
login flow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionProfileID == "" {
			return fmt.Errorf("--profile is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if _, err := st.GetProfile(sessionProfileID); err != nil {
			return err
		}

		token := uuid.NewString()
		var expires *time.Time
		if sessionTTL > 0 {
			t := time.Now().UTC().Add(sessionTTL)
			expires = &t
		}
		if err := st.CreateSession(token, sessionProfileID, expires); err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func loggingOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.JSONFormat,
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cofound.yaml", "path to config file")

	sessionCmd.Flags().StringVar(&sessionProfileID, "profile", "", "profile id to bind the session to")
	sessionCmd.Flags().DurationVar(&sessionTTL, "ttl", 0, "session lifetime (0 means no expiry)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(sessionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
