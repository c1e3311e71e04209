package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"promo-quiz/internal/app"
	"promo-quiz/internal/domain"
)

// APIHandler serves the admin endpoints: leaderboard, raffle and export.
type APIHandler struct {
	service      *app.GameService
	exporter     *app.Exporter
	raffleFrames int
	now          func() time.Time
}

func NewAPIHandler(service *app.GameService, exporter *app.Exporter, raffleFrames int) *APIHandler {
	return &APIHandler{service: service, exporter: exporter, raffleFrames: raffleFrames, now: time.Now}
}

// Register mounts every route on mux, including the play socket.
func Register(mux *http.ServeMux, api *APIHandler, ws *WSHandler) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/leaderboard", api.Leaderboard)
	mux.HandleFunc("POST /api/raffle", api.Raffle)
	mux.HandleFunc("GET /api/export", api.Export)
	mux.HandleFunc("/ws/play", ws.ServePlay)
}

type raffleRequest struct {
	Top        int      `json:"top"`
	Candidates []string `json:"candidates"`
}

type raffleResponse struct {
	Record domain.RaffleRecord `json:"record"`
	Frames []string            `json:"frames"`
}

func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Raffle draws among explicit candidates, or among the top N of the
// leaderboard when none are given.
func (h *APIHandler) Raffle(w http.ResponseWriter, r *http.Request) {
	var req raffleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "malformed request body"})
		return
	}

	candidates := app.CanonicalCandidates(req.Candidates)
	if len(candidates) == 0 {
		top, err := h.service.TopCandidates(r.Context(), req.Top)
		if err != nil {
			writeError(w, err)
			return
		}
		candidates = top
	}

	eligible, err := h.service.Raffle().Eligible(r.Context(), candidates)
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.service.DrawRaffle(r.Context(), candidates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raffleResponse{
		Record: record,
		Frames: h.service.Raffle().Frames(eligible, h.raffleFrames),
	})
}

func (h *APIHandler) Export(w http.ResponseWriter, r *http.Request) {
	report, err := h.exporter.Build(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporter.FileName(h.now())))
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRaffleIneligible), errors.Is(err, domain.ErrDuplicateAttempt):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidCandidateCount),
		errors.Is(err, domain.ErrInvalidHandle),
		errors.Is(err, domain.ErrInvalidAge),
		errors.Is(err, domain.ErrInvalidGender):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrStoreIO):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorPayload{Message: userMessage(err)})
}

// userMessage maps domain errors to text safe to show a player.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateAttempt):
		return "This handle has already played."
	case errors.Is(err, domain.ErrInvalidHandle):
		return "Handle may only contain letters, numbers, dots and underscores."
	case errors.Is(err, domain.ErrInvalidAge):
		return "You must be between 18 and 100 to play."
	case errors.Is(err, domain.ErrInvalidGender):
		return "Please pick a valid gender option."
	case errors.Is(err, domain.ErrRaffleIneligible):
		return "Every candidate has already won a raffle."
	case errors.Is(err, domain.ErrInvalidCandidateCount):
		return "Candidate count must be between 1 and the number of ranked players."
	case errors.Is(err, domain.ErrStoreIO):
		return "Storage is unavailable, please try again."
	case errors.Is(err, domain.ErrEmptyQuestionSet), errors.Is(err, domain.ErrQuestionSetNotFound):
		return "The quiz is not available right now."
	}
	return "Something went wrong."
}
