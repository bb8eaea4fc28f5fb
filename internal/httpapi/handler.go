package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"agentchat/internal/auth"
	"agentchat/internal/chat"
	"agentchat/internal/store"
	"agentchat/internal/user"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	users  user.Store
	issuer auth.Issuer
	chat   chat.Interactor
}

func NewHandler(users user.Store, issuer auth.Issuer, interactor chat.Interactor) Handler {
	return Handler{users: users, issuer: issuer, chat: interactor}
}

type contextKey string

const userContextKey contextKey = "authenticated_user"

func (h Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if errors.Is(err, user.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username_taken", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	token, err := h.issuer.Issue(created.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error", "failed to issue token")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": created, "token": token})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	authed, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to authenticate")
		return
	}

	token, err := h.issuer.Issue(authed.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error", "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": authed, "token": token})
}

func (h Handler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": current})
}

func (h Handler) ListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.chat.AvailableModels())
}

type chatRequest struct {
	Message       string   `json:"message"`
	ModelProvider string   `json:"modelProvider"`
	ModelName     string   `json:"modelName"`
	Role          string   `json:"role"`
	SessionID     string   `json:"sessionId"`
	SearchEnabled *bool    `json:"searchEnabled"`
	Temperature   *float32 `json:"temperature"`
}

func (h Handler) Chat(w http.ResponseWriter, r *http.Request) {
	current, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}
	if strings.TrimSpace(req.ModelProvider) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "modelProvider is required")
		return
	}

	// Search is on unless the client opts out.
	searchEnabled := true
	if req.SearchEnabled != nil {
		searchEnabled = *req.SearchEnabled
	}

	record, err := h.chat.ProcessChat(r.Context(), chat.ProcessChatParams{
		UserID:        current.ID,
		Message:       req.Message,
		Provider:      req.ModelProvider,
		Model:         req.ModelName,
		Role:          req.Role,
		SessionToken:  req.SessionID,
		SearchEnabled: searchEnabled,
		Temperature:   req.Temperature,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "chat_error", "failed to process chat")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	current, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	history, err := h.chat.History(r.Context(), current.ID, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": sessionID, "history": history})
}

func (h Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	current, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}

	sessions, err := h.chat.Sessions(r.Context(), current.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	current, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
		return
	}

	token, err := h.chat.NewSession(r.Context(), current.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sessionId": token})
}

func (h Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken, err := readBearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		userID, err := h.issuer.Verify(rawToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		current, err := h.users.ByID(r.Context(), userID)
		if errors.Is(err, user.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error", "failed to resolve user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, current)))
	})
}

func readBearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing Authorization header")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("expected a Bearer token")
	}
	return strings.TrimSpace(token), nil
}

func userFromContext(ctx context.Context) (user.User, bool) {
	value := ctx.Value(userContextKey)
	if value == nil {
		return user.User{}, false
	}
	current, ok := value.(user.User)
	return current, ok
}
