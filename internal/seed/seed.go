// Package seed populates a development database with demo players.
package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"fingle/internal/model"
)

// Demo usernames created by Run.
const (
	Alice = "alice"
	Bob   = "bob"
)

// UserEnsurer creates users that do not exist yet.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, username string, emailVerified bool) (*model.User, bool, error)
}

// FriendEnsurer creates or updates a friendship between two users.
type FriendEnsurer interface {
	EnsureFriendship(ctx context.Context, initiatorID, receiverID string, status model.FriendshipStatus) error
}

// Result holds the seeded users.
type Result struct {
	Alice *model.User
	Bob   *model.User
}

// Run creates alice and bob and makes them accepted friends. Running it
// again leaves existing rows as they are.
func Run(ctx context.Context, users UserEnsurer, friends FriendEnsurer) (*Result, error) {
	alice, err := ensure(ctx, users, Alice)
	if err != nil {
		return nil, err
	}
	bob, err := ensure(ctx, users, Bob)
	if err != nil {
		return nil, err
	}

	if err := friends.EnsureFriendship(ctx, alice.ID, bob.ID, model.FriendshipAccepted); err != nil {
		return nil, fmt.Errorf("failed to seed friendship: %w", err)
	}
	log.Info().Str("a", alice.Username).Str("b", bob.Username).Msg("Friendship seeded")

	return &Result{Alice: alice, Bob: bob}, nil
}

func ensure(ctx context.Context, users UserEnsurer, username string) (*model.User, error) {
	u, created, err := users.EnsureUser(ctx, username, true)
	if err != nil {
		return nil, fmt.Errorf("failed to seed user %s: %w", username, err)
	}
	log.Info().Str("user", u.Username).Str("id", u.ID).Bool("created", created).Msg("User seeded")
	return u, nil
}
