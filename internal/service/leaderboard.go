package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fingle/internal/model"
)

// Scope selects the population of a leaderboard.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeFriends Scope = "friends"
)

// Window selects the time horizon of a leaderboard.
type Window string

const (
	WindowAllTime Window = "all-time"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
)

// ParseScope parses a scope name. The empty string means global.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeFriends:
		return ScopeFriends, nil
	}
	return "", validationf("unknown scope %q", s)
}

// ParseWindow parses a window name. The empty string means all-time.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "", WindowAllTime:
		return WindowAllTime, nil
	case WindowWeekly:
		return WindowWeekly, nil
	case WindowMonthly:
		return WindowMonthly, nil
	}
	return "", validationf("unknown window %q", s)
}

// LeaderboardConfig holds the leaderboard size and window lengths.
type LeaderboardConfig struct {
	Limit   int
	Weekly  time.Duration
	Monthly time.Duration
}

// DefaultLeaderboardConfig returns a top-50 board with 7 and 30 day windows.
func DefaultLeaderboardConfig() LeaderboardConfig {
	return LeaderboardConfig{
		Limit:   50,
		Weekly:  7 * 24 * time.Hour,
		Monthly: 30 * 24 * time.Hour,
	}
}

// LeaderboardService computes ranked standings.
type LeaderboardService struct {
	friends FriendStore
	scores  ScoreStore
	cfg     LeaderboardConfig
	now     func() time.Time
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(friends FriendStore, scores ScoreStore, cfg LeaderboardConfig) *LeaderboardService {
	def := DefaultLeaderboardConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Weekly <= 0 {
		cfg.Weekly = def.Weekly
	}
	if cfg.Monthly <= 0 {
		cfg.Monthly = def.Monthly
	}
	return &LeaderboardService{
		friends: friends,
		scores:  scores,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Get returns the ranked board for requesterID. The all-time window reads
// each user's running total; weekly and monthly sum the points of guesses
// made at or after now minus the window and leave out users with none.
func (s *LeaderboardService) Get(ctx context.Context, requesterID string, scope Scope, window Window) ([]*model.LeaderboardEntry, error) {
	var ids []string
	if scope == ScopeFriends {
		friendIDs, err := s.friends.AcceptedFriendIDs(ctx, requesterID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve friends: %w", err)
		}
		ids = withSelf(requesterID, friendIDs)
	}

	var (
		entries []*model.LeaderboardEntry
		err     error
	)
	switch window {
	case WindowWeekly, WindowMonthly:
		since := s.now().Add(-s.windowLength(window))
		entries, err = s.scores.TopByPointsSince(ctx, since, ids, s.cfg.Limit)
	default:
		entries, err = s.scores.TopByTotalScore(ctx, ids, s.cfg.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return rankEntries(entries, s.cfg.Limit), nil
}

func (s *LeaderboardService) windowLength(w Window) time.Duration {
	if w == WindowMonthly {
		return s.cfg.Monthly
	}
	return s.cfg.Weekly
}

func withSelf(self string, friendIDs []string) []string {
	ids := make([]string, 0, len(friendIDs)+1)
	ids = append(ids, self)
	for _, id := range friendIDs {
		if id != self {
			ids = append(ids, id)
		}
	}
	return ids
}

// rankEntries orders entries by score descending then user id ascending,
// truncates to limit and numbers them from 1.
func rankEntries(entries []*model.LeaderboardEntry, limit int) []*model.LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i, e := range entries {
		e.Rank = i + 1
	}
	if entries == nil {
		return []*model.LeaderboardEntry{}
	}
	return entries
}
