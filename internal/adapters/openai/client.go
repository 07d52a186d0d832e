// Package openai implements the activity suggester port against an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/triplink-api/internal/ports/out/suggester"
)

var _ suggester.Suggester = (*Client)(nil)

const (
	systemPrompt = "You are a helpful travel assistant. Provide activity suggestions in JSON format."
	maxNameLen   = 50
	maxDescLen   = 100
)

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type suggestionJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func userPrompt(req suggester.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest 5 must-do activities or places to visit in %s, %s.\n", req.City, req.Country)
	b.WriteString(`Return as JSON array with objects containing "name" (activity name, max 50 chars) and "description" (brief description, max 100 chars).` + "\n")
	b.WriteString(`Example: [{"name": "Visit the Eiffel Tower", "description": "Iconic iron lattice tower with stunning city views"}]` + "\n")
	if len(req.Existing) > 0 {
		fmt.Fprintf(&b, "Do not repeat these already planned activities: %s.\n", strings.Join(req.Existing, "; "))
	}
	b.WriteString("Only return the JSON array, no other text.")
	return b.String()
}

func (c *Client) SuggestActivities(ctx context.Context, req suggester.Request) ([]suggester.Suggestion, error) {
	if c.apiKey == "" {
		return nil, errors.New("openai: api key not configured")
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completions responded %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, errors.New("chat response has no choices")
	}
	return parseSuggestions(cr.Choices[0].Message.Content)
}

// parseSuggestions reads the JSON array out of a model reply, tolerating code fences.
func parseSuggestions(content string) ([]suggester.Suggestion, error) {
	content = strings.TrimSpace(content)
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		content = content[start : end+1]
	}
	var raw []suggestionJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	out := make([]suggester.Suggestion, 0, len(raw))
	for _, s := range raw {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		out = append(out, suggester.Suggestion{
			Name:        truncate(name, maxNameLen),
			Description: truncate(strings.TrimSpace(s.Description), maxDescLen),
		})
	}
	if len(out) == 0 {
		return nil, errors.New("no usable suggestions in reply")
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
