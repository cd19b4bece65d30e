// Package api serves the session controller over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/abhisek/examkit/internal/app"
	"github.com/abhisek/examkit/internal/progress"
	"github.com/abhisek/examkit/internal/session"
)

// UserHeader carries the learner id set by the upstream auth gateway.
const UserHeader = "X-User-ID"

type ctxKey struct{}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type answerRequest struct {
	Choice int `json:"choice"`
}

type gotoRequest struct {
	Index int `json:"index"`
}

type theoryRequest struct {
	Topic string `json:"topic"`
}

type theoryResponse struct {
	Topic      string `json:"topic"`
	NextTestID int    `json:"next_test_id,omitempty"`
}

type Handler struct {
	ctrl *app.Controller
}

func NewHandler(ctrl *app.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

func getUserID(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(ctxKey{}).(string)
	return uid, ok && uid != ""
}

// requireUser rejects requests without an identity header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(UserHeader))
		if uid == "" {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, uid)))
	})
}

// Topics is public; an identity header adds that user's marks.
func (h *Handler) Topics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.ctrl.Topics(r.Context(), strings.TrimSpace(r.Header.Get(UserHeader)))
	if err != nil {
		writeError(w, err)
		return
	}
	if topics == nil {
		topics = []app.TopicInfo{}
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)
	v, err := h.ctrl.Current(r.Context(), userID)
	h.respond(w, v, err)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)
	if err := h.ctrl.Reset(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)

	var req session.StartParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	v, err := h.ctrl.Start(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	v, err := h.ctrl.Answer(r.Context(), userID, req.Choice)
	h.respond(w, v, err)
}

func (h *Handler) GoTo(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)

	var req gotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	v, err := h.ctrl.GoTo(r.Context(), userID, req.Index)
	h.respond(w, v, err)
}

func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)
	v, err := h.ctrl.Finish(r.Context(), userID)
	h.respond(w, v, err)
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)
	rec, err := h.ctrl.Progress(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ConfirmTheory(w http.ResponseWriter, r *http.Request) {
	userID, _ := getUserID(r)

	var req theoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	next, err := h.ctrl.ConfirmTheory(r.Context(), userID, req.Topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, theoryResponse{Topic: strings.TrimSpace(req.Topic), NextTestID: next})
}

func (h *Handler) respond(w http.ResponseWriter, v app.View, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, session.ErrInsufficientPool),
		errors.Is(err, session.ErrNoValidQuestions),
		errors.Is(err, session.ErrInvalidChoice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrSessionInvalid),
		errors.Is(err, session.ErrQuestionMissing),
		errors.Is(err, session.ErrSessionFinished),
		errors.Is(err, session.ErrTimeExpired):
		return http.StatusConflict
	case errors.Is(err, progress.ErrLockTimeout):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
