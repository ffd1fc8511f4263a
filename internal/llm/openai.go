package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config for the OpenAI-compatible client. BaseURL may point at any endpoint
// speaking the chat-completions protocol, including a local Ollama instance.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements Categorizer against an OpenAI-compatible API.
type Client struct {
	api        *openai.Client
	model      string
	timeout    time.Duration
	categories []string
}

const defaultTimeout = 10 * time.Second

// NewClient builds a Client. categories is the canonical label set offered to
// the model; the model is instructed to pick from it but its output is still
// treated as untrusted by callers.
func NewClient(cfg Config, categories []string) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		model:      model,
		timeout:    timeout,
		categories: categories,
	}
}

func (c *Client) systemPrompt() string {
	return "You are an expert accountant categorizing personal finance transactions. " +
		"Pick exactly one category from this list for each transaction: " +
		strings.Join(c.categories, ", ") + ". " +
		"Respond with the category name only, one per line, in input order. " +
		"Do not include any explanatory text."
}

func (c *Client) complete(ctx context.Context, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Categorize labels a single description.
func (c *Client) Categorize(ctx context.Context, description string) (string, error) {
	out, err := c.complete(ctx, "Transaction: "+description)
	if err != nil {
		return "", err
	}
	// Keep the first line only; chatty models sometimes add more.
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out), nil
}

// CategorizeBatch labels each description, one response line per input line.
// Lines the model failed to produce come back empty rather than failing the
// whole batch.
func (c *Client) CategorizeBatch(ctx context.Context, descriptions []string) ([]string, error) {
	if len(descriptions) == 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString("Transactions to categorize:\n")
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	out, err := c.complete(ctx, b.String())
	if err != nil {
		return nil, err
	}

	lines := strings.Split(out, "\n")
	labels := make([]string, len(descriptions))
	n := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n >= len(labels) {
			break
		}
		labels[n] = stripOrdinal(line)
		n++
	}
	return labels, nil
}

// stripOrdinal removes a leading "3." or "3)" the model may echo back.
func stripOrdinal(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
