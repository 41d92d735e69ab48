package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"fingle/internal/model"
	"fingle/internal/repository"
)

// GuessCoordinator commits a scored guess. The guess row, the challenge's
// seen flag and the guesser's score change together or not at all; the
// store's uniqueness on challenge id picks the winner of concurrent commits.
type GuessCoordinator struct {
	guesses  GuessStore
	notifier Notifier
}

// NewGuessCoordinator creates a new GuessCoordinator instance.
func NewGuessCoordinator(guesses GuessStore, notifier Notifier) *GuessCoordinator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &GuessCoordinator{guesses: guesses, notifier: notifier}
}

// Commit persists g for challenge c and, once durable, tells the sender.
func (co *GuessCoordinator) Commit(ctx context.Context, c *model.Challenge, g *model.Guess) error {
	if err := co.guesses.Commit(ctx, g); err != nil {
		switch {
		case errors.Is(err, repository.ErrGuessExists):
			log.Info().
				Str("challenge", c.ID).
				Str("user", g.UserID).
				Msg("Lost guess commit race")
			return ErrAlreadyGuessed
		case errors.Is(err, repository.ErrChallengeNotFound):
			return ErrChallengeNotFound
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to commit guess: %w", err)
	}

	log.Info().
		Str("challenge", c.ID).
		Str("user", g.UserID).
		Int("points", g.Points).
		Msg("Guess committed")

	co.notifier.Notify(c.SenderID, model.EventChallengeGuessed, model.ChallengeGuessedEvent{
		ChallengeID:      c.ID,
		By:               model.EventActor{ID: g.UserID},
		Points:           g.Points,
		IsCountCorrect:   g.IsCountCorrect,
		IsFingersCorrect: g.IsFingersCorrect,
	})
	return nil
}
