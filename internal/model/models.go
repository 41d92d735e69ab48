// Package model defines the data models for the finger-guessing game.
package model

import (
	"time"

	"fingle/internal/game"
)

// User is a player account. The identity service owns everything except
// TotalScore, which only changes when a guess is committed.
type User struct {
	ID            string    `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	AvatarURL     *string   `db:"avatar_url" json:"avatarUrl"`
	TotalScore    int64     `db:"total_score" json:"totalScore"`
	IsBanned      bool      `db:"is_banned" json:"-"`
	EmailVerified bool      `db:"email_verified" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Public returns the profile that may be shown to other players.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// PublicUser is the part of a user other players can see.
type PublicUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// FriendshipStatus is the state of a friend request.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "PENDING"
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
)

// Friendship links an unordered pair of users.
type Friendship struct {
	ID          string           `db:"id"`
	InitiatorID string           `db:"initiator_id"`
	ReceiverID  string           `db:"receiver_id"`
	Status      FriendshipStatus `db:"status"`
	CreatedAt   time.Time        `db:"created_at"`
}

// Challenge is a concealed photo with a secret finger count and finger set.
// Seen flips once, when its guess is committed.
type Challenge struct {
	ID           string         `db:"id" json:"id"`
	SenderID     string         `db:"sender_id" json:"senderId"`
	ReceiverID   string         `db:"receiver_id" json:"receiverId"`
	PhotoURL     string         `db:"photo_url" json:"photoUrl"`
	FingerCount  int            `db:"finger_count" json:"fingerCount,omitempty"`
	WhichFingers game.FingerSet `db:"which_fingers" json:"whichFingers,omitempty"`
	Seen         bool           `db:"seen" json:"seen"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// Guess is the receiver's single scored answer to a challenge.
type Guess struct {
	ID                string         `db:"id" json:"id"`
	ChallengeID       string         `db:"challenge_id" json:"challengeId"`
	UserID            string         `db:"user_id" json:"userId"`
	FingerCountGuess  int            `db:"finger_count_guess" json:"fingerCountGuess"`
	WhichFingersGuess game.FingerSet `db:"which_fingers_guess" json:"whichFingersGuess"`
	IsCountCorrect    bool           `db:"is_count_correct" json:"isCountCorrect"`
	IsFingersCorrect  bool           `db:"is_fingers_correct" json:"isFingersCorrect"`
	Points            int            `db:"points" json:"points"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
}

// ChallengeView is a challenge as listed in a feed, with the other
// participant's profile and the guess if there is one.
type ChallengeView struct {
	Challenge
	Sender   *PublicUser `json:"sender,omitempty"`
	Receiver *PublicUser `json:"receiver,omitempty"`
	Guess    *Guess      `json:"guess,omitempty"`
}

// Photo is an uploaded challenge image.
type Photo struct {
	ID          string    `db:"id"`
	ContentType string    `db:"content_type"`
	Data        []byte    `db:"data"`
	CreatedAt   time.Time `db:"created_at"`
}

// LeaderboardEntry is one ranked row of a leaderboard.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	UserID    string  `db:"user_id" json:"userId"`
	Username  string  `db:"username" json:"username"`
	AvatarURL *string `db:"avatar_url" json:"avatarUrl"`
	Score     int64   `db:"score" json:"score"`
}

// Notification event names.
const (
	EventNewChallenge     = "new_challenge"
	EventChallengeGuessed = "challenge_guessed"
)

// NewChallengeEvent is sent to a challenge's receiver when it is created.
type NewChallengeEvent struct {
	ChallengeID string      `json:"challengeId"`
	From        *PublicUser `json:"from"`
}

// EventActor identifies the user who triggered an event.
type EventActor struct {
	ID string `json:"id"`
}

// ChallengeGuessedEvent is sent to a challenge's sender when its guess commits.
type ChallengeGuessedEvent struct {
	ChallengeID      string     `json:"challengeId"`
	By               EventActor `json:"by"`
	Points           int        `json:"points"`
	IsCountCorrect   bool       `json:"isCountCorrect"`
	IsFingersCorrect bool       `json:"isFingersCorrect"`
}
