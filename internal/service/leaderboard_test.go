package service

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"fingle/internal/model"
)

func TestParseScopeAndWindow(t *testing.T) {
	scope, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, scope)
	scope, err = ParseScope("friends")
	require.NoError(t, err)
	assert.Equal(t, ScopeFriends, scope)
	_, err = ParseScope("planet")
	assert.ErrorIs(t, err, ErrValidation)

	window, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowAllTime, window)
	for _, w := range []Window{WindowAllTime, WindowWeekly, WindowMonthly} {
		got, err := ParseWindow(string(w))
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
	_, err = ParseWindow("daily")
	assert.ErrorIs(t, err, ErrValidation)
}

// guess commits a fresh challenge from sender to guesser worth the given points.
func (e *env) guess(t *testing.T, sender, guesser *model.User, exact bool) {
	t.Helper()
	c := e.challenge(t, sender, guesser)
	fingers := []string{"thumb"}
	if exact {
		fingers = []string{"index", "middle", "ring"}
	}
	_, err := e.challenges.CommitGuess(context.Background(), c.ID, guesser.ID, 3, fingers)
	require.NoError(t, err)
}

func TestLeaderboardAllTimeMatchesCommittedPoints(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, carol := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")
	e.befriend(t, alice, bob)
	e.befriend(t, alice, carol)

	e.guess(t, alice, bob, true)
	e.guess(t, alice, bob, false)
	e.guess(t, alice, carol, false)

	board, err := e.leaderboard.Get(ctx, alice.ID, ScopeGlobal, WindowAllTime)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, bob.ID, board[0].UserID)
	assert.Equal(t, int64(40), board[0].Score)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, carol.ID, board[1].UserID)
	assert.Equal(t, int64(10), board[1].Score)
	assert.Equal(t, alice.ID, board[2].UserID, "zero-score users are listed in all-time mode")
	assert.Equal(t, 3, board[2].Rank)
}

func TestLeaderboardFriendsScope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, carol, dave := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol"), e.user(t, "dave")
	e.befriend(t, alice, bob)
	e.befriend(t, carol, dave)
	require.NoError(t, e.store.EnsureFriendship(ctx, alice.ID, carol.ID, model.FriendshipPending))

	e.guess(t, alice, bob, true)
	e.guess(t, carol, dave, true)

	board, err := e.leaderboard.Get(ctx, alice.ID, ScopeFriends, WindowAllTime)
	require.NoError(t, err)

	ids := make([]string, len(board))
	for i, entry := range board {
		ids[i] = entry.UserID
	}
	assert.Equal(t, []string{bob.ID, alice.ID}, ids)
}

func TestLeaderboardWindowBoundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, carol := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "carol")
	e.befriend(t, alice, bob)
	e.befriend(t, alice, carol)

	// Bob's guess is the oldest, then carol's.
	e.guess(t, alice, bob, true)
	e.guess(t, alice, carol, false)

	bobGuess := guessTimeOf(t, e, bob)
	carolGuess := guessTimeOf(t, e, carol)
	require.True(t, carolGuess.After(bobGuess))

	// Place "now" so that carol's guess sits exactly on the weekly boundary.
	e.leaderboard.now = func() time.Time { return carolGuess.Add(7 * 24 * time.Hour) }

	weekly, err := e.leaderboard.Get(ctx, alice.ID, ScopeGlobal, WindowWeekly)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, carol.ID, weekly[0].UserID)
	assert.Equal(t, int64(10), weekly[0].Score)

	monthly, err := e.leaderboard.Get(ctx, alice.ID, ScopeGlobal, WindowMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, bob.ID, monthly[0].UserID)

	e.leaderboard.now = func() time.Time { return carolGuess.Add(31 * 24 * time.Hour) }
	empty, err := e.leaderboard.Get(ctx, alice.ID, ScopeGlobal, WindowMonthly)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLeaderboardFriendsWeeklyWithNoFriends(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob, loner := e.user(t, "alice"), e.user(t, "bob"), e.user(t, "loner")
	e.befriend(t, alice, bob)
	e.guess(t, alice, bob, true)

	board, err := e.leaderboard.Get(ctx, loner.ID, ScopeFriends, WindowWeekly)
	require.NoError(t, err)
	assert.Empty(t, board, "no qualifying guesses yields an empty board")

	board, err = e.leaderboard.Get(ctx, bob.ID, ScopeFriends, WindowWeekly)
	require.NoError(t, err)
	require.Len(t, board, 1, "alice has no guesses this week")
	assert.Equal(t, bob.ID, board[0].UserID)

	// A user with guesses but no friends sees only themselves.
	e.befriend(t, loner, alice)
	e.guess(t, alice, loner, false)
	require.NoError(t, e.store.EnsureFriendship(ctx, loner.ID, alice.ID, model.FriendshipPending))
	board, err = e.leaderboard.Get(ctx, loner.ID, ScopeFriends, WindowWeekly)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, loner.ID, board[0].UserID)
}

func guessTimeOf(t *testing.T, e *env, u *model.User) time.Time {
	t.Helper()
	views, err := e.challenges.ListReceived(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, views)
	require.NotNil(t, views[0].Guess)
	return views[0].Guess.CreatedAt
}

// TestRankEntriesProperty checks ordering, truncation and numbering of
// arbitrary score lists.
func TestRankEntriesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 80).Draw(t, "n")
		limit := rapid.IntRange(1, 60).Draw(t, "limit")

		entries := make([]*model.LeaderboardEntry, n)
		for i := range entries {
			entries[i] = &model.LeaderboardEntry{
				UserID: fmt.Sprintf("user-%03d", i),
				Score:  rapid.Int64Range(0, 5).Draw(t, "score") * 10,
			}
		}
		shuffled := rapid.Permutation(entries).Draw(t, "shuffled")

		ranked := rankEntries(shuffled, limit)

		want := n
		if want > limit {
			want = limit
		}
		if len(ranked) != want {
			t.Fatalf("expected %d entries, got %d", want, len(ranked))
		}
		for i, e := range ranked {
			if e.Rank != i+1 {
				t.Fatalf("entry %d has rank %d", i, e.Rank)
			}
			if i == 0 {
				continue
			}
			prev := ranked[i-1]
			if prev.Score < e.Score || (prev.Score == e.Score && prev.UserID > e.UserID) {
				t.Fatalf("entries %d and %d out of order: %+v %+v", i-1, i, prev, e)
			}
		}

		// The kept entries are the top of the full ordering.
		all := append([]*model.LeaderboardEntry(nil), entries...)
		sort.SliceStable(all, func(i, j int) bool {
			if all[i].Score != all[j].Score {
				return all[i].Score > all[j].Score
			}
			return all[i].UserID < all[j].UserID
		})
		for i, e := range ranked {
			if all[i].UserID != e.UserID {
				t.Fatalf("position %d: expected %s, got %s", i, all[i].UserID, e.UserID)
			}
		}
	})
}
