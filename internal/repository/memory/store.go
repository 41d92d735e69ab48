// Package memory is an in-process implementation of the repositories,
// used by the memory database driver and by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fingle/internal/model"
	"fingle/internal/pkg/lock"
	"fingle/internal/repository"
)

// Store keeps every table in maps guarded by one RWMutex. Guess commits
// are additionally serialized per challenge so the existence check and
// the insert cannot interleave.
type Store struct {
	mu          sync.RWMutex
	users       map[string]*model.User
	friendships []*model.Friendship
	challenges  map[string]*model.Challenge
	guesses     map[string]*model.Guess // by challenge id
	photos      map[string]*model.Photo

	commits *lock.KeyLock
	baseURL string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPhotoBaseURL sets the root of URLs returned by Store.
func WithPhotoBaseURL(baseURL string) Option {
	return func(s *Store) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		users:      make(map[string]*model.User),
		challenges: make(map[string]*model.Challenge),
		guesses:    make(map[string]*model.Guess),
		photos:     make(map[string]*model.Photo),
		commits:    lock.NewKeyLock(),
		baseURL:    "http://localhost:3001",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---- users ----

// GetByID retrieves a user by id.
func (s *Store) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

// EnsureUser returns the user with the given username, creating it if needed.
func (s *Store) EnsureUser(_ context.Context, username string, emailVerified bool) (*model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, false, nil
		}
	}
	u := &model.User{
		ID:            uuid.NewString(),
		Username:      username,
		EmailVerified: emailVerified,
		CreatedAt:     s.now(),
	}
	s.users[u.ID] = u
	clone := *u
	return &clone, true, nil
}

// SetBanned updates a user's ban flag. The identity service owns bans in
// production; this exists for tests.
func (s *Store) SetBanned(_ context.Context, id string, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsBanned = banned
	return nil
}

// ---- friendships ----

func (s *Store) findFriendship(a, b string) *model.Friendship {
	for _, f := range s.friendships {
		if (f.InitiatorID == a && f.ReceiverID == b) || (f.InitiatorID == b && f.ReceiverID == a) {
			return f
		}
	}
	return nil
}

// IsAcceptedFriend reports whether a and b share an ACCEPTED friendship.
func (s *Store) IsAcceptedFriend(_ context.Context, a, b string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := s.findFriendship(a, b)
	return f != nil && f.Status == model.FriendshipAccepted, nil
}

// AcceptedFriendIDs returns the ids of userID's accepted friends.
func (s *Store) AcceptedFriendIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, f := range s.friendships {
		if f.Status != model.FriendshipAccepted {
			continue
		}
		switch userID {
		case f.InitiatorID:
			ids = append(ids, f.ReceiverID)
		case f.ReceiverID:
			ids = append(ids, f.InitiatorID)
		}
	}
	return ids, nil
}

// EnsureFriendship records or updates the friendship between the pair.
func (s *Store) EnsureFriendship(_ context.Context, initiatorID, receiverID string, status model.FriendshipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[initiatorID]; !ok {
		return repository.ErrUserNotFound
	}
	if _, ok := s.users[receiverID]; !ok {
		return repository.ErrUserNotFound
	}
	if f := s.findFriendship(initiatorID, receiverID); f != nil {
		f.Status = status
		return nil
	}
	s.friendships = append(s.friendships, &model.Friendship{
		ID:          uuid.NewString(),
		InitiatorID: initiatorID,
		ReceiverID:  receiverID,
		Status:      status,
		CreatedAt:   s.now(),
	})
	return nil
}

// ---- photos ----

// Store saves the image bytes and returns their URL.
func (s *Store) Store(_ context.Context, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.photos[id] = &model.Photo{
		ID:          id,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
		CreatedAt:   s.now(),
	}
	return repository.PhotoURL(s.baseURL, id), nil
}

// Get retrieves a stored photo.
func (s *Store) Get(_ context.Context, id string) (*model.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.photos[id]
	if !ok {
		return nil, repository.ErrPhotoNotFound
	}
	clone := *p
	return &clone, nil
}

// ---- leaderboard ----

// TopByTotalScore ranks users by total score. A nil userIDs means every user.
func (s *Store) TopByTotalScore(_ context.Context, userIDs []string, limit int) ([]*model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := idFilter(userIDs)
	entries := []*model.LeaderboardEntry{}
	for _, u := range s.users {
		if allowed != nil && !allowed[u.ID] {
			continue
		}
		entries = append(entries, entryFor(u, u.TotalScore))
	}
	return topN(entries, limit), nil
}

// TopByPointsSince ranks users by points of guesses created at or after since.
func (s *Store) TopByPointsSince(_ context.Context, since time.Time, userIDs []string, limit int) ([]*model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := idFilter(userIDs)
	sums := make(map[string]int64)
	for _, g := range s.guesses {
		if g.CreatedAt.Before(since) {
			continue
		}
		if allowed != nil && !allowed[g.UserID] {
			continue
		}
		sums[g.UserID] += int64(g.Points)
	}

	entries := []*model.LeaderboardEntry{}
	for id, score := range sums {
		if u, ok := s.users[id]; ok {
			entries = append(entries, entryFor(u, score))
		}
	}
	return topN(entries, limit), nil
}

func idFilter(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func entryFor(u *model.User, score int64) *model.LeaderboardEntry {
	return &model.LeaderboardEntry{
		UserID:    u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Score:     score,
	}
}

func topN(entries []*model.LeaderboardEntry, limit int) []*model.LeaderboardEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
