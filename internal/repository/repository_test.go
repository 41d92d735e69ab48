// Integration tests run against a PostgreSQL container started with
// testcontainers-go and are skipped when Docker is not available.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fingle/internal/game"
	"fingle/internal/model"
	"fingle/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a migrated PostgreSQL container and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.Migrate(connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

type fixture struct {
	users       *UserRepository
	friends     *FriendshipRepository
	challenges  *ChallengeRepository
	guesses     *GuessRepository
	leaderboard *LeaderboardRepository
	photos      *PhotoRepository
	pool        *pgxpool.Pool
}

func newFixture(t *testing.T) *fixture {
	pool := setupTestDB(t)
	return &fixture{
		users:       NewUserRepository(pool),
		friends:     NewFriendshipRepository(pool),
		challenges:  NewChallengeRepository(pool),
		guesses:     NewGuessRepository(pool),
		leaderboard: NewLeaderboardRepository(pool),
		photos:      NewPhotoRepository(pool, "http://localhost:3001/"),
		pool:        pool,
	}
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	u, _, err := f.users.EnsureUser(context.Background(), name, true)
	require.NoError(t, err)
	return u
}

func (f *fixture) challenge(t *testing.T, sender, receiver *model.User) *model.Challenge {
	fingers, err := game.NewFingerSet(game.Index, game.Middle, game.Ring)
	require.NoError(t, err)
	c := &model.Challenge{
		SenderID:     sender.ID,
		ReceiverID:   receiver.ID,
		PhotoURL:     "http://localhost:3001/api/photos/x",
		FingerCount:  3,
		WhichFingers: fingers,
	}
	require.NoError(t, f.challenges.Create(context.Background(), c))
	return c
}

func guessFor(c *model.Challenge, points int) *model.Guess {
	return &model.Guess{
		ChallengeID:       c.ID,
		UserID:            c.ReceiverID,
		FingerCountGuess:  c.FingerCount,
		WhichFingersGuess: c.WhichFingers,
		IsCountCorrect:    points > 0,
		IsFingersCorrect:  points == game.PointsExactHand,
		Points:            points,
	}
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_EnsureUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, created, err := f.users.EnsureUser(ctx, "alice", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, int64(0), user.TotalScore)

	again, created, err := f.users.EnsureUser(ctx, "alice", true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)

	_, err = f.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_SetBanned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	require.NoError(t, f.users.SetBanned(ctx, alice.ID, true))
	got, err := f.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBanned)

	assert.ErrorIs(t, f.users.SetBanned(ctx, "missing", true), ErrUserNotFound)
}

// ============================================================================
// FriendshipRepository Tests
// ============================================================================

func TestFriendshipRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	require.NoError(t, f.friends.EnsureFriendship(ctx, alice.ID, bob.ID, model.FriendshipAccepted))
	require.NoError(t, f.friends.EnsureFriendship(ctx, carol.ID, alice.ID, model.FriendshipPending))

	ok, err := f.friends.IsAcceptedFriend(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok, "friendship is unordered")

	ok, err = f.friends.IsAcceptedFriend(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, ok, "pending friendship does not count")

	ids, err := f.friends.AcceptedFriendIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, ids)

	// Re-ensuring the reversed pair updates the existing row.
	require.NoError(t, f.friends.EnsureFriendship(ctx, alice.ID, carol.ID, model.FriendshipAccepted))
	ids, err = f.friends.AcceptedFriendIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{bob.ID, carol.ID}, ids)
}

// ============================================================================
// ChallengeRepository Tests
// ============================================================================

func TestChallengeRepository_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	c := f.challenge(t, alice, bob)
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	got, err := f.challenges.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FingerCount)
	assert.True(t, got.WhichFingers.Equal(c.WhichFingers))
	assert.False(t, got.Seen)

	_, err = f.challenges.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeRepository_Feeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	first := f.challenge(t, alice, bob)
	second := f.challenge(t, alice, bob)
	require.NoError(t, f.guesses.Commit(ctx, guessFor(first, game.PointsExactHand)))

	received, err := f.challenges.ListReceived(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, received, 2)
	assert.Equal(t, second.ID, received[0].ID, "newest first")
	assert.Equal(t, alice.ID, received[0].Sender.ID)
	assert.Nil(t, received[0].Guess)
	require.NotNil(t, received[1].Guess)
	assert.Equal(t, game.PointsExactHand, received[1].Guess.Points)
	assert.True(t, received[1].Seen)

	sent, err := f.challenges.ListSent(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, bob.ID, sent[0].Receiver.ID)
	assert.Nil(t, sent[0].Sender)

	empty, err := f.challenges.ListSent(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// ============================================================================
// GuessRepository Tests
// ============================================================================

func TestGuessRepository_Commit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	c := f.challenge(t, alice, bob)

	g := guessFor(c, game.PointsCountOnly)
	require.NoError(t, f.guesses.Commit(ctx, g))
	assert.NotEmpty(t, g.ID)

	stored, err := f.guesses.GetByChallengeID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, g.ID, stored.ID)

	challenge, err := f.challenges.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, challenge.Seen)

	user, err := f.users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(game.PointsCountOnly), user.TotalScore)

	err = f.guesses.Commit(ctx, guessFor(c, game.PointsExactHand))
	assert.ErrorIs(t, err, ErrGuessExists)

	user, err = f.users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(game.PointsCountOnly), user.TotalScore, "losing commit must not credit")
}

func TestGuessRepository_CommitRollsBackForWrongReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	c := f.challenge(t, alice, bob)

	g := guessFor(c, game.PointsExactHand)
	g.UserID = alice.ID
	assert.ErrorIs(t, f.guesses.Commit(ctx, g), ErrChallengeNotFound)

	stored, err := f.guesses.GetByChallengeID(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "guess insert must roll back")

	user, err := f.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.TotalScore)
}

func TestGuessRepository_ConcurrentCommits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	c := f.challenge(t, alice, bob)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.guesses.Commit(ctx, guessFor(c, game.PointsExactHand))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrGuessExists)
	}
	assert.Equal(t, 1, wins)

	var guesses int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT COUNT(*) FROM guesses WHERE challenge_id = $1`, c.ID).Scan(&guesses))
	assert.Equal(t, 1, guesses)

	user, err := f.users.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(game.PointsExactHand), user.TotalScore)
}

// ============================================================================
// LeaderboardRepository Tests
// ============================================================================

func TestLeaderboardRepository_TopByTotalScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	require.NoError(t, f.guesses.Commit(ctx, guessFor(f.challenge(t, alice, bob), game.PointsExactHand)))
	require.NoError(t, f.guesses.Commit(ctx, guessFor(f.challenge(t, bob, carol), game.PointsExactHand)))

	entries, err := f.leaderboard.TopByTotalScore(ctx, nil, 50)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(0), entries[2].Score)
	assert.Equal(t, alice.ID, entries[2].UserID)
	// bob and carol tie; ascending id decides.
	assert.Less(t, entries[0].UserID, entries[1].UserID)

	scoped, err := f.leaderboard.TopByTotalScore(ctx, []string{alice.ID, bob.ID}, 50)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, bob.ID, scoped[0].UserID)

	limited, err := f.leaderboard.TopByTotalScore(ctx, nil, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLeaderboardRepository_TopByPointsSince(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	now := time.Now().UTC().Truncate(time.Microsecond)
	since := now.Add(-7 * 24 * time.Hour)

	old := guessFor(f.challenge(t, alice, bob), game.PointsExactHand)
	edge := guessFor(f.challenge(t, carol, bob), game.PointsCountOnly)
	recent := guessFor(f.challenge(t, bob, carol), game.PointsCountOnly)
	for _, g := range []*model.Guess{old, edge, recent} {
		require.NoError(t, f.guesses.Commit(ctx, g))
	}
	setGuessTime(t, f.pool, old.ID, since.Add(-time.Second))
	setGuessTime(t, f.pool, edge.ID, since)

	entries, err := f.leaderboard.TopByPointsSince(ctx, since, nil, 50)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, int64(game.PointsCountOnly), e.Score, "boundary guess counts, older one does not")
	}

	none, err := f.leaderboard.TopByPointsSince(ctx, since, []string{alice.ID}, 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func setGuessTime(t *testing.T, pool *pgxpool.Pool, id string, at time.Time) {
	_, err := pool.Exec(context.Background(), `UPDATE guesses SET created_at = $2 WHERE id = $1`, id, at)
	require.NoError(t, err)
}

// ============================================================================
// PhotoRepository Tests
// ============================================================================

func TestPhotoRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.photos.Store(ctx, []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Regexp(t, `^http://localhost:3001/api/photos/[0-9a-f-]{36}$`, url)

	id := url[len("http://localhost:3001/api/photos/"):]
	photo, err := f.photos.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "image/png", photo.ContentType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, photo.Data)

	_, err = f.photos.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrPhotoNotFound)
}
