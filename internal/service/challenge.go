package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"fingle/internal/game"
	"fingle/internal/model"
	"fingle/internal/repository"
)

// DefaultMaxPhotoBytes caps uploads when no limit is configured.
const DefaultMaxPhotoBytes = 10 << 20

// ChallengeDeps bundles the collaborators of ChallengeService.
type ChallengeDeps struct {
	Users      UserStore
	Friends    FriendStore
	Challenges ChallengeStore
	Guesses    GuessStore
	Photos     PhotoStore
	Notifier   Notifier
}

// ChallengeService owns challenge creation, the count preview, guess
// commits and the feeds.
type ChallengeService struct {
	users       UserStore
	friends     FriendStore
	challenges  ChallengeStore
	guesses     GuessStore
	photos      PhotoStore
	notifier    Notifier
	coordinator *GuessCoordinator

	maxPhotoBytes int64
}

// NewChallengeService creates a new ChallengeService instance. A
// maxPhotoBytes of zero uses DefaultMaxPhotoBytes.
func NewChallengeService(deps ChallengeDeps, maxPhotoBytes int64) *ChallengeService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &ChallengeService{
		users:         deps.Users,
		friends:       deps.Friends,
		challenges:    deps.Challenges,
		guesses:       deps.Guesses,
		photos:        deps.Photos,
		notifier:      notifier,
		coordinator:   NewGuessCoordinator(deps.Guesses, notifier),
		maxPhotoBytes: maxPhotoBytes,
	}
}

// CreateChallengeInput is a validated-at-the-boundary creation request.
type CreateChallengeInput struct {
	SenderID     string
	ReceiverID   string
	Photo        []byte
	FingerCount  int
	WhichFingers []string
}

// GuessOutcome is the scored result of a commit with the secret revealed.
type GuessOutcome struct {
	Guess          *model.Guess
	Result         game.Result
	CorrectCount   int
	CorrectFingers game.FingerSet
	PhotoURL       string
}

// Create validates the secret, checks that sender and receiver are
// accepted friends, stores the photo and persists the challenge. The
// receiver is notified on a best-effort basis.
func (s *ChallengeService) Create(ctx context.Context, in CreateChallengeInput) (*model.Challenge, error) {
	fingers, err := validateSecret(in.FingerCount, in.WhichFingers)
	if err != nil {
		return nil, err
	}
	if in.ReceiverID == "" {
		return nil, validationf("receiverId is required")
	}
	if in.ReceiverID == in.SenderID {
		return nil, validationf("cannot challenge yourself")
	}
	contentType, err := s.validatePhoto(in.Photo)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, in.SenderID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	friends, err := s.friends.IsAcceptedFriend(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !friends {
		return nil, ErrNotFriends
	}

	photoURL, err := s.photos.Store(ctx, in.Photo, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	challenge := &model.Challenge{
		SenderID:     in.SenderID,
		ReceiverID:   in.ReceiverID,
		PhotoURL:     photoURL,
		FingerCount:  in.FingerCount,
		WhichFingers: fingers,
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	log.Info().
		Str("challenge", challenge.ID).
		Str("sender", challenge.SenderID).
		Str("receiver", challenge.ReceiverID).
		Int("finger_count", challenge.FingerCount).
		Msg("Challenge created")

	s.notifier.Notify(challenge.ReceiverID, model.EventNewChallenge, model.NewChallengeEvent{
		ChallengeID: challenge.ID,
		From:        sender.Public(),
	})
	return challenge, nil
}

// PreviewCount reports whether countGuess matches the secret count without
// recording anything. It can be called any number of times until the
// challenge is guessed.
func (s *ChallengeService) PreviewCount(ctx context.Context, challengeID, requesterID string, countGuess int) (bool, error) {
	if !game.ValidCount(countGuess) {
		return false, validationf("fingerCountGuess must be between %d and %d", game.MinFingerCount, game.MaxFingerCount)
	}
	challenge, err := s.openChallenge(ctx, challengeID, requesterID)
	if err != nil {
		return false, err
	}
	return countGuess == challenge.FingerCount, nil
}

// CommitGuess scores the guess against the secret and commits it. It is
// the only irreversible operation on a challenge.
func (s *ChallengeService) CommitGuess(ctx context.Context, challengeID, requesterID string, countGuess int, fingersGuess []string) (*GuessOutcome, error) {
	if !game.ValidCount(countGuess) {
		return nil, validationf("fingerCountGuess must be between %d and %d", game.MinFingerCount, game.MaxFingerCount)
	}
	guessed, err := game.ParseFingerSet(fingersGuess)
	if err != nil {
		return nil, validationf("whichFingersGuess: %v", err)
	}

	challenge, err := s.openChallenge(ctx, challengeID, requesterID)
	if err != nil {
		return nil, err
	}

	result := game.Evaluate(challenge.FingerCount, challenge.WhichFingers, countGuess, guessed)
	guess := &model.Guess{
		ChallengeID:       challenge.ID,
		UserID:            requesterID,
		FingerCountGuess:  countGuess,
		WhichFingersGuess: guessed,
		IsCountCorrect:    result.IsCountCorrect,
		IsFingersCorrect:  result.IsFingersCorrect,
		Points:            result.Points,
	}
	if err := s.coordinator.Commit(ctx, challenge, guess); err != nil {
		return nil, err
	}

	return &GuessOutcome{
		Guess:          guess,
		Result:         result,
		CorrectCount:   challenge.FingerCount,
		CorrectFingers: challenge.WhichFingers,
		PhotoURL:       challenge.PhotoURL,
	}, nil
}

// ListReceived returns the requester's incoming challenges, newest first.
// The secret of a challenge stays hidden until it has been guessed.
func (s *ChallengeService) ListReceived(ctx context.Context, userID string) ([]*model.ChallengeView, error) {
	views, err := s.challenges.ListReceived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list received challenges: %w", err)
	}
	for _, v := range views {
		if v.Guess == nil {
			v.FingerCount = 0
			v.WhichFingers = 0
		}
	}
	return nonNil(views), nil
}

// ListSent returns the requester's outgoing challenges, newest first.
func (s *ChallengeService) ListSent(ctx context.Context, userID string) ([]*model.ChallengeView, error) {
	views, err := s.challenges.ListSent(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent challenges: %w", err)
	}
	return nonNil(views), nil
}

// openChallenge loads a challenge the requester may still guess. A
// challenge addressed to someone else is reported as not found.
func (s *ChallengeService) openChallenge(ctx context.Context, challengeID, requesterID string) (*model.Challenge, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrChallengeNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	if challenge.ReceiverID != requesterID {
		return nil, ErrChallengeNotFound
	}

	existing, err := s.guesses.GetByChallengeID(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing guess: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyGuessed
	}
	return challenge, nil
}

func validateSecret(count int, names []string) (game.FingerSet, error) {
	if !game.ValidCount(count) {
		return 0, validationf("fingerCount must be between %d and %d", game.MinFingerCount, game.MaxFingerCount)
	}
	fingers, err := game.ParseFingerSet(names)
	if err != nil {
		return 0, validationf("whichFingers: %v", err)
	}
	if len(names) != count || fingers.Len() != count {
		return 0, validationf("whichFingers must contain exactly %d distinct finger names", count)
	}
	return fingers, nil
}

func (s *ChallengeService) validatePhoto(data []byte) (string, error) {
	if len(data) == 0 {
		return "", validationf("photo is required")
	}
	if int64(len(data)) > s.maxPhotoBytes {
		return "", validationf("photo exceeds %d bytes", s.maxPhotoBytes)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", validationf("photo must be an image, got %s", mt.String())
	}
	return mt.String(), nil
}

func nonNil(views []*model.ChallengeView) []*model.ChallengeView {
	if views == nil {
		return []*model.ChallengeView{}
	}
	return views
}
