package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"fingle/internal/model"
	"fingle/internal/repository"
)

// ChallengeStore exposes the challenge and guess methods of a Store.
// Both repositories need a GetByID, so they cannot share the Store's
// method set directly.
type ChallengeStore struct{ s *Store }

// GuessStore exposes the guess methods of a Store.
type GuessStore struct{ s *Store }

// Challenges returns the challenge repository view of s.
func (s *Store) Challenges() *ChallengeStore { return &ChallengeStore{s: s} }

// Guesses returns the guess repository view of s.
func (s *Store) Guesses() *GuessStore { return &GuessStore{s: s} }

// Create inserts a new unseen challenge.
func (c *ChallengeStore) Create(_ context.Context, ch *model.Challenge) error {
	s := c.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ch.SenderID]; !ok {
		return repository.ErrUserNotFound
	}
	if _, ok := s.users[ch.ReceiverID]; !ok {
		return repository.ErrUserNotFound
	}

	ch.ID = uuid.NewString()
	ch.Seen = false
	ch.CreatedAt = s.now()
	stored := *ch
	s.challenges[ch.ID] = &stored
	return nil
}

// GetByID retrieves a challenge including its secret.
func (c *ChallengeStore) GetByID(_ context.Context, id string) (*model.Challenge, error) {
	s := c.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.challenges[id]
	if !ok {
		return nil, repository.ErrChallengeNotFound
	}
	clone := *ch
	return &clone, nil
}

// ListReceived returns challenges sent to userID, newest first.
func (c *ChallengeStore) ListReceived(_ context.Context, userID string) ([]*model.ChallengeView, error) {
	return c.list(func(ch *model.Challenge) bool { return ch.ReceiverID == userID }, true), nil
}

// ListSent returns challenges sent by userID, newest first.
func (c *ChallengeStore) ListSent(_ context.Context, userID string) ([]*model.ChallengeView, error) {
	return c.list(func(ch *model.Challenge) bool { return ch.SenderID == userID }, false), nil
}

func (c *ChallengeStore) list(match func(*model.Challenge) bool, peerIsSender bool) []*model.ChallengeView {
	s := c.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var views []*model.ChallengeView
	for _, ch := range s.challenges {
		if !match(ch) {
			continue
		}
		view := &model.ChallengeView{Challenge: *ch}
		if peerIsSender {
			if u, ok := s.users[ch.SenderID]; ok {
				view.Sender = u.Public()
			}
		} else if u, ok := s.users[ch.ReceiverID]; ok {
			view.Receiver = u.Public()
		}
		if g, ok := s.guesses[ch.ID]; ok {
			clone := *g
			view.Guess = &clone
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID > views[j].ID
	})
	return views
}

// GetByChallengeID returns the guess for a challenge, or nil if none exists.
func (g *GuessStore) GetByChallengeID(_ context.Context, challengeID string) (*model.Guess, error) {
	s := g.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	guess, ok := s.guesses[challengeID]
	if !ok {
		return nil, nil
	}
	clone := *guess
	return &clone, nil
}

// Commit records guess, marks its challenge seen and credits the guesser,
// all under one write lock so readers never see a partial commit. A caller
// whose ctx ends while another commit holds the challenge gives up without
// writing anything.
func (g *GuessStore) Commit(ctx context.Context, guess *model.Guess) error {
	s := g.s
	if err := s.commits.LockContext(ctx, guess.ChallengeID); err != nil {
		return fmt.Errorf("failed to acquire commit lock: %w", err)
	}
	defer s.commits.Unlock(guess.ChallengeID)

	s.mu.RLock()
	_, exists := s.guesses[guess.ChallengeID]
	s.mu.RUnlock()
	if exists {
		return repository.ErrGuessExists
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[guess.ChallengeID]
	if !ok || ch.ReceiverID != guess.UserID {
		return repository.ErrChallengeNotFound
	}
	user, ok := s.users[guess.UserID]
	if !ok {
		return repository.ErrUserNotFound
	}

	guess.ID = uuid.NewString()
	guess.CreatedAt = s.now()
	stored := *guess
	s.guesses[guess.ChallengeID] = &stored
	ch.Seen = true
	user.TotalScore += int64(guess.Points)
	return nil
}
