// Command spotify-history ingests Spotify listening history into PostgreSQL
// and reports on the accumulated data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/suzaram3/spotify-history/internal/auth"
	"github.com/suzaram3/spotify-history/internal/config"
	"github.com/suzaram3/spotify-history/internal/enrich"
	"github.com/suzaram3/spotify-history/internal/history"
	"github.com/suzaram3/spotify-history/internal/logging"
	"github.com/suzaram3/spotify-history/internal/report"
	"github.com/suzaram3/spotify-history/internal/spotify"
	"github.com/suzaram3/spotify-history/internal/store"
)

var (
	cfgFile  string
	cfgViper = config.NewViper()
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "spotify-history",
		Short:        "Spotify listening history pipeline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real deployments use the environment.
			_ = godotenv.Load()
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		newETLCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newSetupCmd(),
		newSummaryCmd(),
		newCurrentCmd(),
		newEnrichCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")
	cmd.PersistentFlags().Int("page-limit", cfgViper.GetInt("spotify.page_limit"), "Recently played fetch size (max 50)")
	cmd.PersistentFlags().Int("top-count", cfgViper.GetInt("report.top_count"), "Number of top songs/artists in the summary")
	cmd.PersistentFlags().String("log-level", cfgViper.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "spotify.page_limit", "page-limit")
	bindFlag(cmd, "report.top_count", "top-count")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := cfgViper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		cfgViper.SetConfigFile(cfgFile)
	}

	if err := cfgViper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func loadConfig() (config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load(cfgViper)
	if err != nil {
		return config.AppConfig{}, nil, err
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, err
	}

	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg config.AppConfig) (*store.Store, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return store.New(ctx, cfg.DatabaseURL)
}

func newAuthenticator(cfg config.AppConfig) (*auth.Authenticator, error) {
	if err := cfg.RequireSpotify(); err != nil {
		return nil, err
	}

	cache, err := tokenCache(cfg)
	if err != nil {
		return nil, err
	}

	return auth.New(auth.Credentials{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
	}, cache)
}

func tokenCache(cfg config.AppConfig) (*auth.TokenCache, error) {
	if cfg.TokenPath != "" {
		return auth.NewTokenCache(cfg.TokenPath), nil
	}
	return auth.DefaultTokenCache()
}

func newSpotifyClient(ctx context.Context, cfg config.AppConfig) (*spotify.Client, error) {
	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	api, err := authenticator.Client(ctx)
	if err != nil {
		return nil, err
	}
	return spotify.New(api), nil
}

func newETLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "etl",
		Short: "Fetch recently played tracks and load new plays into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				logger.Error("opening store", zap.Error(err))
				return err
			}
			defer st.Close()

			client, err := newSpotifyClient(ctx, cfg)
			if err != nil {
				logger.Error("creating spotify client", zap.Error(err))
				return err
			}

			service := history.New(client, st,
				history.WithPageLimit(cfg.PageLimit),
				history.WithLogger(logger))

			result, err := service.Run(ctx)
			if err != nil {
				logger.Error("etl run failed", zap.Error(err))
				return err
			}

			logger.Info("etl run complete",
				zap.String("run_id", result.RunID),
				zap.Int("fetched", result.Fetched),
				zap.Int("skipped", result.Skipped),
				zap.Int("new", result.New))
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Spotify and cache the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			authenticator, err := newAuthenticator(cfg)
			if err != nil {
				return err
			}

			api, err := authenticator.Login(cmd.Context())
			if err != nil {
				return err
			}

			userID, err := spotify.New(api).UserID(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Authenticated as %s\n", userID)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached Spotify token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			cache, err := tokenCache(cfg)
			if err != nil {
				return err
			}
			return cache.Delete()
		},
	}
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				logger.Error("opening store", zap.Error(err))
				return err
			}
			defer st.Close()

			if err := st.CreateSchema(cmd.Context()); err != nil {
				logger.Error("creating schema", zap.Error(err))
				return err
			}

			logger.Info("database schema ready")
			return nil
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print summary statistics from the accumulated history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				logger.Error("opening store", zap.Error(err))
				return err
			}
			defer st.Close()

			summary, err := report.New(st, cfg.TopCount).Summary(cmd.Context())
			if err != nil {
				logger.Error("gathering summary", zap.Error(err))
				return err
			}

			summary.Render(os.Stdout)
			return nil
		},
	}
}

func newCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the currently playing track and its stream count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()

			client, err := newSpotifyClient(ctx, cfg)
			if err != nil {
				return err
			}

			playing, err := client.CurrentlyPlaying(ctx)
			if err != nil {
				return err
			}
			if playing == nil {
				fmt.Println("Nothing playing currently")
				return nil
			}

			st, err := openStore(ctx, cfg)
			if err != nil {
				logger.Error("opening store", zap.Error(err))
				return err
			}
			defer st.Close()

			count, err := st.SongStreamCount(ctx, playing.TrackID)
			if err != nil {
				return err
			}

			fmt.Printf("%s - %s [%s]\n", playing.Artist, playing.TrackName, playing.Album)
			fmt.Printf("Streams on record: %d\n", count)
			return nil
		},
	}
}

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Backfill song lengths missing from the recently played payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()

			st, err := openStore(ctx, cfg)
			if err != nil {
				logger.Error("opening store", zap.Error(err))
				return err
			}
			defer st.Close()

			client, err := newSpotifyClient(ctx, cfg)
			if err != nil {
				return err
			}

			if _, err := enrich.New(client, st, logger).Run(ctx); err != nil {
				logger.Error("enrich run failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
