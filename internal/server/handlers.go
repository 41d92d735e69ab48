package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fingle/internal/model"
	"fingle/internal/repository"
	"fingle/internal/service"
)

// PhotoSource serves stored challenge images.
type PhotoSource interface {
	Get(ctx context.Context, id string) (*model.Photo, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// multipartOverhead is the allowance for form fields and boundaries on top
// of the photo itself.
const multipartOverhead = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.HealthCheck(r.Context()); err != nil {
			RespondErrorWithCode(w, http.StatusServiceUnavailable, ErrCodeInternal, "database unavailable", err)
			return
		}
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxPhotoBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxPhotoBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondErrorWithCode(w, http.StatusRequestEntityTooLarge, ErrCodeValidation, "photo is too large")
			return
		}
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidPayload, "expected multipart form", err)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeValidation, "photo is required")
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, s.maxPhotoBytes+1))
	if err != nil {
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeInvalidPayload, "failed to read photo", err)
		return
	}

	form := createChallengeForm{ReceiverID: r.FormValue("receiverId")}
	if form.FingerCount, err = strconv.Atoi(r.FormValue("fingerCount")); err != nil {
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeValidation, "fingerCount must be a number")
		return
	}
	if err := json.Unmarshal([]byte(r.FormValue("whichFingers")), &form.WhichFingers); err != nil {
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeValidation, "whichFingers must be a JSON array")
		return
	}
	if !validateStruct(w, &form) {
		return
	}

	challenge, err := s.challenges.Create(r.Context(), service.CreateChallengeInput{
		SenderID:     userID,
		ReceiverID:   form.ReceiverID,
		Photo:        photo,
		FingerCount:  form.FingerCount,
		WhichFingers: form.WhichFingers,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, challengeResponse{Challenge: challenge})
}

func (s *Server) handleReceived(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	views, err := s.challenges.ListReceived(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, challengesResponse{Challenges: views})
}

func (s *Server) handleSent(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	views, err := s.challenges.ListSent(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, challengesResponse{Challenges: views})
}

func (s *Server) handleCheckCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req checkCountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ok, err := s.challenges.PreviewCount(r.Context(), mux.Vars(r)["id"], userID, *req.FingerCountGuess)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, checkCountResponse{IsCorrect: ok})
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req guessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := s.challenges.CommitGuess(r.Context(), mux.Vars(r)["id"], userID, *req.FingerCountGuess, req.WhichFingersGuess)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, guessResponse{
		Guess: out.Guess,
		Result: guessResult{
			Points:           out.Result.Points,
			IsCountCorrect:   out.Result.IsCountCorrect,
			IsFingersCorrect: out.Result.IsFingersCorrect,
			CorrectCount:     out.CorrectCount,
			CorrectFingers:   out.CorrectFingers,
			PhotoURL:         out.PhotoURL,
		},
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	scope, err := service.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	window, err := service.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	entries, err := s.leaderboard.Get(r.Context(), userID, scope, window)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, leaderboardResponse{Leaderboard: entries})
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := s.photos.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			RespondErrorWithCode(w, http.StatusNotFound, ErrCodeNotFound, "photo not found")
			return
		}
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error", err)
		return
	}

	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(photo.Data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(photo.Data)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	s.hub.Serve(w, r, userID)
}
