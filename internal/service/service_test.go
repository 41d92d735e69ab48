package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fingle/internal/model"
	"fingle/internal/repository/memory"
)

var pngPhoto = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type sentEvent struct {
	UserID  string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (n *recordingNotifier) Notify(userID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{userID, event, payload})
}

func (n *recordingNotifier) Events() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.events...)
}

// testClock advances by one second on every read so creation times are
// strictly increasing.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	store       *memory.Store
	clock       *testClock
	notifier    *recordingNotifier
	challenges  *ChallengeService
	leaderboard *LeaderboardService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clock.Now))
	notifier := &recordingNotifier{}

	challenges := NewChallengeService(ChallengeDeps{
		Users:      store,
		Friends:    store,
		Challenges: store.Challenges(),
		Guesses:    store.Guesses(),
		Photos:     store,
		Notifier:   notifier,
	}, 0)
	leaderboard := NewLeaderboardService(store, store, DefaultLeaderboardConfig())
	leaderboard.now = clock.Now

	return &env{
		store:       store,
		clock:       clock,
		notifier:    notifier,
		challenges:  challenges,
		leaderboard: leaderboard,
	}
}

func (e *env) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, _, err := e.store.EnsureUser(context.Background(), name, true)
	require.NoError(t, err)
	return u
}

func (e *env) befriend(t *testing.T, a, b *model.User) {
	t.Helper()
	require.NoError(t, e.store.EnsureFriendship(context.Background(), a.ID, b.ID, model.FriendshipAccepted))
}

// challenge creates a count-3 index/middle/ring challenge from sender to receiver.
func (e *env) challenge(t *testing.T, sender, receiver *model.User) *model.Challenge {
	t.Helper()
	c, err := e.challenges.Create(context.Background(), CreateChallengeInput{
		SenderID:     sender.ID,
		ReceiverID:   receiver.ID,
		Photo:        pngPhoto,
		FingerCount:  3,
		WhichFingers: []string{"index", "middle", "ring"},
	})
	require.NoError(t, err)
	return c
}

func (e *env) score(t *testing.T, u *model.User) int64 {
	t.Helper()
	got, err := e.store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got.TotalScore
}
