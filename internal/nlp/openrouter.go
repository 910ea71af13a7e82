package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fieldline/intakeflow/internal/config"
	"github.com/fieldline/intakeflow/internal/domain"
)

// OpenRouter is the live Backend. It drives a chat-completions model and asks
// it to answer in a strict JSON envelope so replies can be mapped onto the
// extraction contract.
type OpenRouter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewOpenRouter(apiKey, model string) *OpenRouter {
	return &OpenRouter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    "https://openrouter.ai/api/v1",
		httpClient: &http.Client{Timeout: config.BackendTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const extractSystemPrompt = `You are an intake assistant collecting facts about a business process.
Known fields so far are provided as JSON. From the user's latest message, fill in any of:
title, department, description, location, business_unit, contact_email, queue_priority
(queue_priority is one of Low, Medium, High, Critical).
Respond with JSON only: {"reply": "...", "fields": {...only newly learned fields...}, "complete": bool}.
complete is true only when title, department and description are all known.`

func (o *OpenRouter) Extract(ctx context.Context, transcript []domain.ChatTurn, userText string, current domain.IntakeFields) (ExtractResult, error) {
	known, _ := json.Marshal(current)
	messages := []chatMessage{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "system", Content: "Known fields: " + string(known)},
	}
	for _, turn := range transcript {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Text})
	}
	if len(transcript) > 0 {
		messages = append(messages, chatMessage{Role: "user", Content: userText})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: "Start the intake by asking for the process title."})
	}

	content, err := o.chat(ctx, messages)
	if err != nil {
		return ExtractResult{}, err
	}

	var parsed struct {
		Reply    string              `json:"reply"`
		Fields   domain.IntakeFields `json:"fields"`
		Complete bool                `json:"complete"`
	}
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		return ExtractResult{}, fmt.Errorf("%w: parse extraction reply: %v", domain.ErrBackendFailure, err)
	}
	return ExtractResult{Reply: parsed.Reply, Fields: parsed.Fields, IsComplete: parsed.Complete}, nil
}

const synthesizeSystemPrompt = `You analyse captured business processes.
Given a title, description and supporting document excerpts, respond with JSON only:
{"brief": "one paragraph", "checkpoints": ["..."], "actionables": ["..."]}.
Both lists must be non-empty and ordered most important first.`

func (o *OpenRouter) Synthesize(ctx context.Context, title, description string, attachmentTexts []string) (Synthesis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nDescription: %s\n", title, description)
	for i, text := range attachmentTexts {
		fmt.Fprintf(&b, "Document %d: %s\n", i+1, text)
	}

	content, err := o.chat(ctx, []chatMessage{
		{Role: "system", Content: synthesizeSystemPrompt},
		{Role: "user", Content: b.String()},
	})
	if err != nil {
		return Synthesis{}, err
	}

	var parsed Synthesis
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		return Synthesis{}, fmt.Errorf("%w: parse synthesis reply: %v", domain.ErrBackendFailure, err)
	}
	if parsed.Brief == "" || len(parsed.Checkpoints) == 0 || len(parsed.Actionables) == 0 {
		return Synthesis{}, fmt.Errorf("%w: model returned empty synthesis", domain.ErrBackendFailure)
	}
	return parsed, nil
}

func (o *OpenRouter) chat(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: o.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: chat request: %v", domain.ErrBackendFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: chat completions returned %d", domain.ErrBackendFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrBackendFailure, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", domain.ErrBackendFailure, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", domain.ErrBackendFailure)
	}
	return parsed.Choices[0].Message.Content, nil
}

// stripFence removes a markdown code fence if the model wrapped its JSON in one.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
