package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"fingle/internal/config"
	"fingle/internal/model"
	"fingle/internal/notify"
	"fingle/internal/pkg/db"
	"fingle/internal/seed"
	"fingle/internal/server"
	"fingle/internal/service"
)

type configLoader func() (*config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	var tokenTTL time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, tokenTTL)
		},
	}
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 0, "with the memory driver, log bearer tokens for the demo users, valid for this long")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, tokenTTL time.Duration) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	if b.demo != nil && tokenTTL > 0 {
		tokens, err := demoTokens(cfg.Auth.JWTSecret, tokenTTL, b.demo)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			log.Info().Str("user", t.user.Username).Str("id", t.user.ID).Str("token", t.token).Msg("Demo token")
		}
	}

	hub := notify.NewHub(notify.WithAllowedOrigins(cfg.Server.AllowedOrigins))

	challenges := service.NewChallengeService(service.ChallengeDeps{
		Users:      b.users,
		Friends:    b.friends,
		Challenges: b.challenges,
		Guesses:    b.guesses,
		Photos:     b.photos,
		Notifier:   hub,
	}, cfg.Photo.MaxBytes)

	leaderboard := service.NewLeaderboardService(b.friends, b.scores, service.LeaderboardConfig{
		Limit:   cfg.Game.LeaderboardLimit,
		Weekly:  cfg.Game.WeeklyWindow(),
		Monthly: cfg.Game.MonthlyWindow(),
	})

	srv := server.New(cfg.Server, cfg.Photo.MaxBytes, server.Deps{
		Challenges:  challenges,
		Leaderboard: leaderboard,
		Users:       b.users,
		Photos:      b.photos,
		Hub:         hub,
		Verifier:    server.NewTokenVerifier(cfg.Auth.JWTSecret),
		Health:      b.health,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil {
		return err
	}

	log.Info().Msg("Server stopped gracefully")
	return nil
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires the %s driver", config.DriverPostgres)
			}
			return db.Migrate(cfg.Database.DSN())
		},
	}
}

func newSeedCmd(load configLoader) *cobra.Command {
	var tokenTTL time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users alice and bob as friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.close()

			res, err := seed.Run(cmd.Context(), b.users, b.friends)
			if err != nil {
				return err
			}

			if cfg.Auth.JWTSecret == "" || tokenTTL <= 0 {
				return nil
			}
			tokens, err := demoTokens(cfg.Auth.JWTSecret, tokenTTL, res)
			if err != nil {
				return err
			}
			for _, t := range tokens {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.user.Username, t.user.ID, t.token)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 0, "also print bearer tokens for the seeded users, valid for this long")

	return cmd
}

type demoToken struct {
	user  *model.User
	token string
}

// demoTokens signs a bearer token for each seeded user.
func demoTokens(secret string, ttl time.Duration, res *seed.Result) ([]demoToken, error) {
	verifier := server.NewTokenVerifier(secret)
	var out []demoToken
	for _, u := range []*model.User{res.Alice, res.Bob} {
		token, err := verifier.Sign(u.ID, ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to sign token: %w", err)
		}
		out = append(out, demoToken{user: u, token: token})
	}
	return out, nil
}
