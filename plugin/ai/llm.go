package ai

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMService is the LLM service interface.
type LLMService interface {
	// Chat performs synchronous chat.
	Chat(ctx context.Context, messages []Message) (string, error)
}

type llmService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewLLMService creates a new LLMService against an OpenAI-compatible endpoint.
func NewLLMService(cfg *LLMConfig) LLMService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &llmService{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (s *llmService) Chat(ctx context.Context, messages []Message) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    chatMessages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// SystemPrompt is a helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage is a helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
