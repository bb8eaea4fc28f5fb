// Package agent composes a provider model handle, a role instruction, and an
// optional search tool into a single synchronous invocation. Respond never
// returns an error: every failure is folded into the reply text so callers
// always have something to show and persist.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"agentchat/internal/provider"
	"agentchat/internal/roles"
	"agentchat/internal/tavily"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const apologyReply = "I apologize, but I couldn't generate a response."

const searchToolName = "web_search"

// maxToolRounds bounds the tool-call loop so a model that keeps requesting
// searches cannot spin forever.
const maxToolRounds = 5

type ModelSource interface {
	Handle(providerName, modelName string, temperature *float32) (provider.ChatModel, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]tavily.SearchResult, error)
}

// Prompt is the query input: either plain text wrapped as a single user turn,
// or a pre-built message sequence forwarded unmodified.
type Prompt struct {
	text       string
	messages   []openai.ChatCompletionMessage
	structured bool
}

func TextPrompt(text string) Prompt {
	return Prompt{text: text}
}

func MessagesPrompt(messages []openai.ChatCompletionMessage) Prompt {
	return Prompt{messages: messages, structured: true}
}

func (p Prompt) conversation() []openai.ChatCompletionMessage {
	if p.structured {
		return p.messages
	}
	return []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: p.text}}
}

type Request struct {
	Provider    string
	Prompt      Prompt
	Role        string
	AllowSearch bool
	Model       string
	Temperature *float32
}

type Orchestrator struct {
	models     ModelSource
	catalog    roles.Catalog
	search     Searcher
	maxResults int
}

func New(models ModelSource, catalog roles.Catalog, search Searcher, maxResults int) Orchestrator {
	if maxResults <= 0 {
		maxResults = 2
	}
	return Orchestrator{models: models, catalog: catalog, search: search, maxResults: maxResults}
}

// Respond runs the agent to completion and returns the final reply text. Any
// failure along the way is converted into an "Error: ..." reply instead of
// being raised to the caller.
func (o Orchestrator) Respond(ctx context.Context, req Request) string {
	reply, err := o.respond(ctx, req)
	if err != nil {
		return fmt.Sprintf("Error: %s", err.Error())
	}
	return reply
}

func (o Orchestrator) respond(ctx context.Context, req Request) (string, error) {
	model, err := o.models.Handle(req.Provider, req.Model, req.Temperature)
	if err != nil {
		return "", err
	}

	instruction := o.catalog.InstructionFor(req.Role)

	var tools []openai.Tool
	if req.AllowSearch && o.search != nil {
		tools = []openai.Tool{searchToolDefinition()}
	}

	transcript := make([]openai.ChatCompletionMessage, 0, len(req.Prompt.conversation())+1)
	transcript = append(transcript, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: instruction,
	})
	transcript = append(transcript, req.Prompt.conversation()...)

	for round := 0; round < maxToolRounds; round++ {
		reply, err := model.Chat(ctx, transcript, tools)
		if err != nil {
			return "", err
		}
		transcript = append(transcript, reply)

		if len(reply.ToolCalls) == 0 {
			break
		}

		for _, toolCall := range reply.ToolCalls {
			result := o.executeTool(ctx, toolCall)
			transcript = append(transcript, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: toolCall.ID,
			})
		}
	}

	reply, ok := lastAssistantContent(transcript)
	if !ok {
		return apologyReply, nil
	}
	return reply, nil
}

// executeTool never fails: tool errors are reported back to the model as tool
// output so the conversation can continue.
func (o Orchestrator) executeTool(ctx context.Context, toolCall openai.ToolCall) string {
	if toolCall.Function.Name != searchToolName {
		return fmt.Sprintf("unknown tool: %s", toolCall.Function.Name)
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
		return fmt.Sprintf("invalid tool arguments: %v", err)
	}

	results, err := o.search.Search(ctx, args.Query, o.maxResults)
	if err != nil {
		return fmt.Sprintf("search failed: %v", err)
	}

	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Sprintf("encode search results: %v", err)
	}
	return string(encoded)
}

func searchToolDefinition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        searchToolName,
			Description: "Search the web for current information. Use this before answering questions that depend on recent events or live data.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query": {
						Type:        jsonschema.String,
						Description: "The search query to run.",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

func lastAssistantContent(messages []openai.ChatCompletionMessage) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, openai.ChatMessageRoleAssistant) {
			return messages[i].Content, true
		}
	}
	return "", false
}
