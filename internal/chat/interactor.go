// Package chat ties the session manager, the agent, and the store together
// into the operations the HTTP layer exposes.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agentchat/internal/agent"
	"agentchat/internal/provider"
	"agentchat/internal/roles"
	"agentchat/internal/store"
)

type Responder interface {
	Respond(ctx context.Context, req agent.Request) string
}

type ModelCatalog interface {
	Catalog() map[string]provider.ModelInfo
	DefaultModel(providerName string) (string, error)
}

type SessionManager interface {
	Resolve(ctx context.Context, userID, providedToken string) (string, error)
	Sessions(ctx context.Context, userID string) ([]store.ChatSession, error)
	Invalidate(userID string)
}

type ProcessChatParams struct {
	UserID        string
	Message       string
	Provider      string
	Model         string
	Role          string
	SessionToken  string
	SearchEnabled bool
	Temperature   *float32
}

type ModelsResponse struct {
	Providers map[string]provider.ModelInfo `json:"providers"`
	Roles     []roles.Summary               `json:"roles"`
}

type Interactor struct {
	store    store.Store
	sessions SessionManager
	agent    Responder
	models   ModelCatalog
	roles    roles.Catalog
}

func NewInteractor(chatStore store.Store, sessions SessionManager, responder Responder, models ModelCatalog, catalog roles.Catalog) Interactor {
	return Interactor{
		store:    chatStore,
		sessions: sessions,
		agent:    responder,
		models:   models,
		roles:    catalog,
	}
}

// ProcessChat resolves the target session, runs the agent, and persists the
// exchange. The agent never fails; anything it could not do arrives here as an
// "Error: ..." reply and is stored like any other response. Only session
// resolution and persistence errors propagate.
func (i Interactor) ProcessChat(ctx context.Context, params ProcessChatParams) (store.Chat, error) {
	token, err := i.sessions.Resolve(ctx, params.UserID, params.SessionToken)
	if err != nil {
		return store.Chat{}, fmt.Errorf("resolve session: %w", err)
	}

	role := i.roles.Normalize(params.Role)

	start := time.Now()
	reply := i.agent.Respond(ctx, agent.Request{
		Provider:    params.Provider,
		Prompt:      agent.TextPrompt(params.Message),
		Role:        role,
		AllowSearch: params.SearchEnabled,
		Model:       params.Model,
		Temperature: params.Temperature,
	})
	elapsed := time.Since(start).Milliseconds()

	record, err := i.store.CreateChat(ctx, store.CreateChatParams{
		UserID:         params.UserID,
		SessionID:      token,
		ModelName:      i.resolveModelName(params.Provider, params.Model),
		ModelProvider:  strings.ToLower(strings.TrimSpace(params.Provider)),
		Role:           role,
		SystemPrompt:   i.roles.InstructionFor(role),
		UserMessage:    params.Message,
		AIResponse:     reply,
		SearchEnabled:  params.SearchEnabled,
		ResponseTimeMs: &elapsed,
	})
	if err != nil {
		return store.Chat{}, fmt.Errorf("persist chat: %w", err)
	}
	return record, nil
}

// History returns a session's exchanges, oldest first. The session must be an
// active one owned by the requesting user; anything else is store.ErrNotFound.
func (i Interactor) History(ctx context.Context, userID, sessionToken string) ([]store.Chat, error) {
	if _, err := i.store.ActiveUserSession(ctx, userID, sessionToken); err != nil {
		return nil, err
	}
	return i.store.ChatHistory(ctx, sessionToken)
}

func (i Interactor) Sessions(ctx context.Context, userID string) ([]store.ChatSession, error) {
	return i.sessions.Sessions(ctx, userID)
}

// NewSession retires the user's cached session and returns a fresh token. The
// old session record stays active in the store.
func (i Interactor) NewSession(ctx context.Context, userID string) (string, error) {
	i.sessions.Invalidate(userID)
	return i.sessions.Resolve(ctx, userID, "")
}

// AvailableModels lists the providers and roles a client may pick from. When
// no gateway is available the static catalog keeps the picker usable.
func (i Interactor) AvailableModels() ModelsResponse {
	providers := staticCatalog()
	if i.models != nil {
		providers = i.models.Catalog()
	}
	return ModelsResponse{
		Providers: providers,
		Roles:     i.roles.Summaries(),
	}
}

func (i Interactor) resolveModelName(providerName, modelName string) string {
	if name := strings.TrimSpace(modelName); name != "" {
		return name
	}
	if i.models != nil {
		if name, err := i.models.DefaultModel(providerName); err == nil {
			return name
		}
	}
	return strings.TrimSpace(modelName)
}

func staticCatalog() map[string]provider.ModelInfo {
	return map[string]provider.ModelInfo{
		provider.Gemini: {
			Provider:     provider.Gemini,
			Models:       []string{"gemini-2.0-flash", "gemini-1.5-pro"},
			CurrentModel: "gemini-2.0-flash",
			Temperature:  0.7,
		},
		provider.Groq: {
			Provider:     provider.Groq,
			Models:       []string{"llama-3.3-70b-versatile", "mixtral-8x7b-32768"},
			CurrentModel: "llama-3.3-70b-versatile",
			Temperature:  0.7,
		},
	}
}
