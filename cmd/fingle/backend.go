package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"fingle/internal/config"
	"fingle/internal/pkg/db"
	"fingle/internal/repository"
	"fingle/internal/repository/memory"
	"fingle/internal/seed"
	"fingle/internal/server"
	"fingle/internal/service"
)

type userStore interface {
	service.UserStore
	seed.UserEnsurer
}

type friendStore interface {
	service.FriendStore
	seed.FriendEnsurer
}

type photoStore interface {
	service.PhotoStore
	server.PhotoSource
}

// backend is the storage selected by database.driver.
type backend struct {
	users      userStore
	friends    friendStore
	challenges service.ChallengeStore
	guesses    service.GuessStore
	scores     service.ScoreStore
	photos     photoStore
	health     server.HealthChecker
	close      func()

	// demo holds the users seeded into a memory backend.
	demo *seed.Result
}

// openBackend connects to storage. For postgres it also applies pending
// migrations. A memory backend starts out with the demo users, since
// nothing else can create users in it.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage; data is lost on exit")
		store := memory.New(memory.WithPhotoBaseURL(cfg.Photo.PublicBaseURL))
		demo, err := seed.Run(ctx, store, store)
		if err != nil {
			return nil, err
		}
		return &backend{
			users:      store,
			friends:    store,
			challenges: store.Challenges(),
			guesses:    store.Guesses(),
			scores:     store,
			photos:     store,
			close:      func() {},
			demo:       demo,
		}, nil
	}

	if err := db.Migrate(cfg.Database.DSN()); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &backend{
		users:      repository.NewUserRepository(pool.Pool),
		friends:    repository.NewFriendshipRepository(pool.Pool),
		challenges: repository.NewChallengeRepository(pool.Pool),
		guesses:    repository.NewGuessRepository(pool.Pool),
		scores:     repository.NewLeaderboardRepository(pool.Pool),
		photos:     repository.NewPhotoRepository(pool.Pool, cfg.Photo.PublicBaseURL),
		health:     pool,
		close:      pool.Close,
	}, nil
}
