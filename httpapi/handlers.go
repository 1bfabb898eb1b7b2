// Package httpapi exposes the request/response surface around the
// real-time core: account management and message history.
package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/services"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

type Handler struct {
	log      *slog.Logger
	auth     services.IAuthService
	messages services.IMessageService
}

func NewHandler(log *slog.Logger, auth services.IAuthService, messages services.IMessageService) *Handler {
	return &Handler{log: log, auth: auth, messages: messages}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, err := h.auth.Register(body.Email, body.Password)
	switch {
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case stderrors.Is(err, errors.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.log.Error("Registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
	default:
		writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, err := h.auth.Login(body.Email, body.Password)
	switch {
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case err != nil:
		h.log.Error("Login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
	default:
		writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
	}
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if err := h.auth.DeleteAccount(userID); err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error("Account deletion failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "account deletion failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// messageResponse is the JSON shape of one history entry, matching the
// fields of the real-time message-received event.
type messageResponse struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"authorId"`
	AuthorEmail string    `json:"authorEmail"`
	CreatedAt   time.Time `json:"createdAt"`
}

type historyResponse struct {
	Data    []messageResponse `json:"data"`
	Count   int               `json:"count"`
	HasMore bool              `json:"hasMore"`
}

// History serves GET /api/messages?limit=&before=. The before bound is an
// RFC 3339 timestamp; messages strictly older than it are returned, oldest
// first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
			return
		}
		before = &parsed
	}

	page, err := h.messages.History(limit, before)
	if err != nil {
		h.log.Error("History query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	data := lo.Map(page.Messages, func(m domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:          m.ID.String(),
			Content:     m.Content,
			AuthorID:    m.AuthorID,
			AuthorEmail: m.AuthorEmail,
			CreatedAt:   m.CreatedAt,
		}
	})
	writeJSON(w, http.StatusOK, historyResponse{Data: data, Count: len(data), HasMore: page.HasMore})
}

// DeleteMessage serves DELETE /api/messages/{id}, owner only.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "message id must be a UUID")
		return
	}

	err = h.messages.Delete(requestUserID(r), messageID)
	switch {
	case stderrors.Is(err, errors.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case stderrors.Is(err, errors.ErrNotMessageOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case err != nil:
		h.log.Error("Message deletion failed", "message_id", messageID, "error", err)
		writeError(w, http.StatusInternalServerError, "message deletion failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
