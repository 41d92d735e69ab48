// Package service implements the challenge lifecycle, the guess commit
// coordinator and the leaderboard on top of the storage interfaces.
package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Every error returned by this package
// that is not an internal failure wraps exactly one of these.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Specific conditions. They wrap the kinds above so errors.Is works on both.
var (
	ErrChallengeNotFound = fmt.Errorf("%w: challenge not found", ErrNotFound)
	ErrAlreadyGuessed    = fmt.Errorf("%w: already guessed this challenge", ErrConflict)
	ErrNotFriends        = fmt.Errorf("%w: you can only challenge friends", ErrAuthorization)
	ErrUserNotFound      = fmt.Errorf("%w: user not found", ErrNotFound)
)
