package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"agentchat/internal/provider"
	"agentchat/internal/roles"
	"agentchat/internal/tavily"

	openai "github.com/sashabaranov/go-openai"
)

type stubModel struct {
	replies []openai.ChatCompletionMessage
	err     error

	transcripts [][]openai.ChatCompletionMessage
	toolsSeen   [][]openai.Tool
}

func (s *stubModel) Chat(_ context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	s.transcripts = append(s.transcripts, append([]openai.ChatCompletionMessage(nil), messages...))
	s.toolsSeen = append(s.toolsSeen, tools)
	if s.err != nil {
		return openai.ChatCompletionMessage{}, s.err
	}
	if len(s.replies) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "done"}, nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *stubModel) Provider() string { return "groq" }
func (s *stubModel) Model() string    { return "llama-3.3-70b-versatile" }

type stubSource struct {
	model provider.ChatModel
	err   error

	gotProvider string
	gotModel    string
	gotTemp     *float32
}

func (s *stubSource) Handle(providerName, modelName string, temperature *float32) (provider.ChatModel, error) {
	s.gotProvider = providerName
	s.gotModel = modelName
	s.gotTemp = temperature
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

type stubSearcher struct {
	results []tavily.SearchResult
	err     error

	gotQuery string
	gotCount int
	calls    int
}

func (s *stubSearcher) Search(_ context.Context, query string, count int) ([]tavily.SearchResult, error) {
	s.calls++
	s.gotQuery = query
	s.gotCount = count
	return s.results, s.err
}

func assistant(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

func TestRespondNeverRaisesOnUnsupportedProvider(t *testing.T) {
	source := &stubSource{err: provider.UnsupportedProviderError{Name: "unsupported-provider"}}
	orchestrator := New(source, roles.New(), &stubSearcher{}, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider: "unsupported-provider",
		Prompt:   TextPrompt("hello"),
	})

	if !strings.HasPrefix(reply, "Error: ") {
		t.Fatalf("expected error-prefixed reply, got %q", reply)
	}
	if !strings.Contains(reply, "unsupported-provider") {
		t.Fatalf("reply should name the offending provider: %q", reply)
	}
}

func TestRespondFoldsModelFailureIntoReply(t *testing.T) {
	model := &stubModel{err: errors.New("upstream timeout")}
	orchestrator := New(&stubSource{model: model}, roles.New(), &stubSearcher{}, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider: "groq",
		Prompt:   TextPrompt("hello"),
	})

	if !strings.HasPrefix(reply, "Error: ") {
		t.Fatalf("expected error-prefixed reply, got %q", reply)
	}
}

func TestRespondWrapsPlainQueryWithRoleInstruction(t *testing.T) {
	model := &stubModel{replies: []openai.ChatCompletionMessage{assistant("crypto answer")}}
	orchestrator := New(&stubSource{model: model}, roles.New(), &stubSearcher{}, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider:    "gemini",
		Prompt:      TextPrompt("what is bitcoin doing"),
		Role:        "crypto_trend_teller",
		AllowSearch: true,
	})

	if reply != "crypto answer" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	sent := model.transcripts[0]
	if len(sent) != 2 {
		t.Fatalf("expected system + user message, got %d messages", len(sent))
	}
	if sent[0].Role != openai.ChatMessageRoleSystem || !strings.Contains(sent[0].Content, "Crypto Trend Teller") {
		t.Fatalf("unexpected system message: %+v", sent[0])
	}
	if sent[1].Role != openai.ChatMessageRoleUser || sent[1].Content != "what is bitcoin doing" {
		t.Fatalf("unexpected user message: %+v", sent[1])
	}
	if len(model.toolsSeen[0]) != 1 {
		t.Fatalf("expected the search tool to be attached, got %d tools", len(model.toolsSeen[0]))
	}
}

func TestRespondOmitsToolsWhenSearchDisabled(t *testing.T) {
	model := &stubModel{replies: []openai.ChatCompletionMessage{assistant("ok")}}
	searcher := &stubSearcher{}
	orchestrator := New(&stubSource{model: model}, roles.New(), searcher, 2)

	orchestrator.Respond(context.Background(), Request{
		Provider:    "groq",
		Prompt:      TextPrompt("hello"),
		AllowSearch: false,
	})

	if len(model.toolsSeen[0]) != 0 {
		t.Fatalf("expected no tools, got %d", len(model.toolsSeen[0]))
	}
	if searcher.calls != 0 {
		t.Fatalf("searcher should not have been called")
	}
}

func TestRespondExecutesSearchToolAndContinues(t *testing.T) {
	model := &stubModel{replies: []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   "call-1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      searchToolName,
					Arguments: `{"query":"bitcoin price today"}`,
				},
			}},
		},
		assistant("bitcoin is volatile"),
	}}
	searcher := &stubSearcher{results: []tavily.SearchResult{
		{Title: "BTC", URL: "https://example.com/btc", Content: "price data"},
	}}
	orchestrator := New(&stubSource{model: model}, roles.New(), searcher, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider:    "groq",
		Prompt:      TextPrompt("what is bitcoin worth"),
		AllowSearch: true,
	})

	if reply != "bitcoin is volatile" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if searcher.gotQuery != "bitcoin price today" || searcher.gotCount != 2 {
		t.Fatalf("unexpected search call: query=%q count=%d", searcher.gotQuery, searcher.gotCount)
	}

	second := model.transcripts[1]
	last := second[len(second)-1]
	if last.Role != openai.ChatMessageRoleTool || last.ToolCallID != "call-1" {
		t.Fatalf("expected tool result message, got %+v", last)
	}
	if !strings.Contains(last.Content, "https://example.com/btc") {
		t.Fatalf("tool result should carry search output: %q", last.Content)
	}
}

func TestRespondFeedsSearchFailureBackToModel(t *testing.T) {
	model := &stubModel{replies: []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:       "call-1",
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: searchToolName, Arguments: `{"query":"x"}`},
			}},
		},
		assistant("answered without search"),
	}}
	searcher := &stubSearcher{err: errors.New("quota exceeded")}
	orchestrator := New(&stubSource{model: model}, roles.New(), searcher, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider:    "groq",
		Prompt:      TextPrompt("hello"),
		AllowSearch: true,
	})

	if reply != "answered without search" {
		t.Fatalf("search failure must not abort the run, got %q", reply)
	}

	second := model.transcripts[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "quota exceeded") {
		t.Fatalf("tool output should carry the failure: %q", last.Content)
	}
}

func TestRespondPicksLastAssistantMessage(t *testing.T) {
	history := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "question"},
		{Role: openai.ChatMessageRoleTool, Content: "tool noise", ToolCallID: "old-1"},
		assistant("A"),
		{Role: openai.ChatMessageRoleTool, Content: "more tool noise", ToolCallID: "old-2"},
	}
	model := &stubModel{replies: []openai.ChatCompletionMessage{assistant("B")}}
	orchestrator := New(&stubSource{model: model}, roles.New(), &stubSearcher{}, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider: "groq",
		Prompt:   MessagesPrompt(history),
	})

	if reply != "B" {
		t.Fatalf("expected last assistant content, got %q", reply)
	}

	sent := model.transcripts[0]
	if len(sent) != len(history)+1 {
		t.Fatalf("structured prompt must be forwarded unmodified, got %d messages", len(sent))
	}
}

func TestRespondApologizesWhenNoAssistantMessage(t *testing.T) {
	model := &stubModel{replies: []openai.ChatCompletionMessage{
		{Role: "", Content: ""},
	}}
	orchestrator := New(&stubSource{model: model}, roles.New(), &stubSearcher{}, 2)

	reply := orchestrator.Respond(context.Background(), Request{
		Provider: "groq",
		Prompt:   TextPrompt("hello"),
	})

	if reply != apologyReply {
		t.Fatalf("expected apology fallback, got %q", reply)
	}
}

func TestRespondStopsAfterMaxToolRounds(t *testing.T) {
	toolReply := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{{
			ID:       "call-loop",
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: searchToolName, Arguments: `{"query":"again"}`},
		}},
	}
	model := &stubModel{replies: []openai.ChatCompletionMessage{
		toolReply, toolReply, toolReply, toolReply, toolReply, toolReply, toolReply,
	}}
	searcher := &stubSearcher{}
	orchestrator := New(&stubSource{model: model}, roles.New(), searcher, 2)

	orchestrator.Respond(context.Background(), Request{
		Provider:    "groq",
		Prompt:      TextPrompt("hello"),
		AllowSearch: true,
	})

	if len(model.transcripts) != maxToolRounds {
		t.Fatalf("expected %d model rounds, got %d", maxToolRounds, len(model.transcripts))
	}
}

func TestRespondForwardsModelAndTemperature(t *testing.T) {
	model := &stubModel{replies: []openai.ChatCompletionMessage{assistant("ok")}}
	source := &stubSource{model: model}
	orchestrator := New(source, roles.New(), &stubSearcher{}, 2)

	temp := float32(0.1)
	orchestrator.Respond(context.Background(), Request{
		Provider:    "Gemini",
		Prompt:      TextPrompt("hello"),
		Model:       "gemini-1.5-flash",
		Temperature: &temp,
	})

	if source.gotProvider != "Gemini" || source.gotModel != "gemini-1.5-flash" {
		t.Fatalf("unexpected handle args: %q %q", source.gotProvider, source.gotModel)
	}
	if source.gotTemp == nil || *source.gotTemp != 0.1 {
		t.Fatalf("temperature not forwarded: %v", source.gotTemp)
	}
}
