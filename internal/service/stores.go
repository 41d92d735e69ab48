package service

import (
	"context"
	"time"

	"fingle/internal/model"
)

// UserStore reads user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// FriendStore answers questions about the accepted friend graph.
type FriendStore interface {
	IsAcceptedFriend(ctx context.Context, a, b string) (bool, error)
	AcceptedFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// ChallengeStore persists challenges and serves the feeds.
type ChallengeStore interface {
	Create(ctx context.Context, c *model.Challenge) error
	GetByID(ctx context.Context, id string) (*model.Challenge, error)
	ListReceived(ctx context.Context, userID string) ([]*model.ChallengeView, error)
	ListSent(ctx context.Context, userID string) ([]*model.ChallengeView, error)
}

// GuessStore persists guesses. Commit must insert the guess, mark the
// challenge seen and increment the guesser's score atomically, returning
// repository.ErrGuessExists when the challenge already has a guess.
type GuessStore interface {
	GetByChallengeID(ctx context.Context, challengeID string) (*model.Guess, error)
	Commit(ctx context.Context, g *model.Guess) error
}

// ScoreStore ranks users. A nil userIDs means every user.
type ScoreStore interface {
	TopByTotalScore(ctx context.Context, userIDs []string, limit int) ([]*model.LeaderboardEntry, error)
	TopByPointsSince(ctx context.Context, since time.Time, userIDs []string, limit int) ([]*model.LeaderboardEntry, error)
}

// PhotoStore saves challenge images and returns an opaque URL.
type PhotoStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

// Notifier delivers best-effort events to a connected user. Implementations
// must not block and must not report delivery failures.
type Notifier interface {
	Notify(userID, event string, payload any)
}

// NopNotifier discards every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, string, any) {}
