package ai

import (
	"context"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	rewriteTimeout = 20 * time.Second

	// The model is asked for a short, factual listing; it must not invent details.
	systemPrompt = "Ты — лаконичный менеджер барахолки. " +
		"Пиши кратко, по делу, без воды. " +
		"Структура: Название, Состояние, Описание (2 фразы). " +
		"Не придумывай факты."
)

// Rewriter improves listing descriptions through an OpenAI-compatible API.
// It fails open: any error, timeout or missing configuration yields the
// original text, never an error to the caller.
type Rewriter struct {
	client *openai.Client
	model  string
}

// NewRewriter creates a rewriter against the given OpenAI-compatible endpoint.
// With an empty apiKey the rewriter is disabled and Rewrite echoes its input.
func NewRewriter(apiKey, baseURL, model string) *Rewriter {
	if apiKey == "" {
		return &Rewriter{}
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Rewriter{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Rewrite returns an improved version of text, or text itself when the
// rewrite is unavailable or fails.
func (r *Rewriter) Rewrite(ctx context.Context, text string) string {
	if r.client == nil {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Сделай краткое объявление: " + text},
		},
	})
	if err != nil {
		log.Printf("[Rewriter] Chat completion failed, using original text: %v", err)
		return text
	}
	if len(resp.Choices) == 0 {
		log.Printf("[Rewriter] Chat completion returned no choices, using original text")
		return text
	}

	improved := strings.TrimSpace(resp.Choices[0].Message.Content)
	if improved == "" {
		return text
	}
	return improved
}
