package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"fingle/internal/game"
	"fingle/internal/model"
)

var validate = validator.New()

// createChallengeForm is the non-file part of the multipart upload.
type createChallengeForm struct {
	ReceiverID   string   `validate:"required"`
	FingerCount  int      `validate:"min=1,max=5"`
	WhichFingers []string `validate:"required,min=1,max=5,dive,oneof=thumb index middle ring pinky"`
}

type checkCountRequest struct {
	FingerCountGuess *int `json:"fingerCountGuess" validate:"required,min=1,max=5"`
}

type guessRequest struct {
	FingerCountGuess  *int     `json:"fingerCountGuess" validate:"required,min=1,max=5"`
	WhichFingersGuess []string `json:"whichFingersGuess" validate:"omitempty,dive,oneof=thumb index middle ring pinky"`
}

type checkCountResponse struct {
	IsCorrect bool `json:"isCorrect"`
}

type guessResult struct {
	Points           int            `json:"points"`
	IsCountCorrect   bool           `json:"isCountCorrect"`
	IsFingersCorrect bool           `json:"isFingersCorrect"`
	CorrectCount     int            `json:"correctCount"`
	CorrectFingers   game.FingerSet `json:"correctFingers"`
	PhotoURL         string         `json:"photoUrl"`
}

type guessResponse struct {
	Guess  *model.Guess `json:"guess"`
	Result guessResult  `json:"result"`
}

type challengeResponse struct {
	Challenge *model.Challenge `json:"challenge"`
}

type challengesResponse struct {
	Challenges []*model.ChallengeView `json:"challenges"`
}

type leaderboardResponse struct {
	Leaderboard []*model.LeaderboardEntry `json:"leaderboard"`
}

// decodeJSON decodes and validates a request body, writing the error
// response itself. It reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidPayload, "invalid JSON body", err)
		return false
	}
	return validateStruct(w, dst)
}

func validateStruct(w http.ResponseWriter, v any) bool {
	if err := validate.Struct(v); err != nil {
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeValidation, describeValidation(err))
		return false
	}
	return true
}

// describeValidation renders validator errors as one readable line.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min", "max":
			parts = append(parts, fmt.Sprintf("%s must be %s %s", field, map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s has unknown value %v", field, fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
