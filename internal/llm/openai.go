package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/plan"
)

const textSystemPrompt = `You control Home Assistant.
Respond ONLY with valid JSON.

The JSON MUST have this exact shape:
{
  "actions": [
    {
      "domain": "light",
      "service": "turn_on",
      "entity_id": "light.kitchen",
      "data": {"brightness": 220}
    }
  ],
  "explanation": "Short summary"
}

RULES:
- IMPORTANT: Use specific domain services like light.turn_on, NOT homeassistant.turn_on.
- entity_id is a single string; emit one action per target entity.
- Max 3 actions per request. Prefer 1. Keep explanation under 15 words.
- Use only entity_ids and services from the context below.

CONTEXT KEY: e=entity_id, n=name, d=domain, s=state, b=brightness, cm=color_modes, c=supports_color, pos=position, area=room.

HOME ASSISTANT CONTEXT:
%s`

const audioSystemPrompt = `You are a voice-controlled Home Assistant.
The user is speaking a command. Understand their spoken request and call the
propose_actions tool with the appropriate Home Assistant service calls.

Rules:
- IMPORTANT: Use specific domain services like light.turn_on, NOT homeassistant.turn_on.
- entity_id is a single string; emit one action per target entity.
- Max 3 actions per request. Prefer 1. Keep explanation under 15 words.
- Only use entity_ids and services that appear in the context below.
- If the user asks about state, return empty actions and explain current state.
- For ambiguous names, pick the closest match from the entity list.
- Always provide an explanation.

Context key: e=entity_id, n=name, d=domain, s=state, b=brightness, cm=color_modes, c=supports_color, pos=position, area=room.

HOME ASSISTANT CONTEXT:
%s`

// Usage is the token accounting from one model call. CachedTokens
// counts prompt tokens served from the provider's prompt cache.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	CachedTokens     int `json:"cached_tokens"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
//
// Both pathways embed context built by BuildContext: the text pathway
// uses JSON response mode, the audio pathway attaches the recording as
// an input_audio content part and forces the propose_actions tool.
// Cancelling the context aborts an in-flight call rather than letting
// it run to completion; any tokens already generated remotely are
// abandoned, and the caller sees ErrModelCall. Safe for concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	audioModel  string
	routerModel string
	httpClient  *http.Client
}

// New creates a Client from config. BaseURL points at the API root,
// e.g. https://api.openai.com/v1.
func New(cfg config.LLMConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		audioModel:  cfg.AudioModel,
		routerModel: cfg.RouterModel,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured text model name.
func (c *Client) Model() string { return c.model }

// AudioModel returns the configured audio model name.
func (c *Client) AudioModel() string { return c.audioModel }

// ProposeFromText sends a typed command plus registry context and
// parses the JSON-mode reply into a Plan. An empty model selects the
// configured default. Schema violations surface as plan.ErrSchema,
// transport and auth failures as ErrModelCall.
func (c *Client) ProposeFromText(ctx context.Context, model, userText, contextJSON string) (*plan.Plan, *Usage, error) {
	if model == "" {
		model = c.model
	}
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(textSystemPrompt, contextJSON)},
			{Role: "user", Content: userText},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := c.completion(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	content := resp.firstContent()
	if content == "" {
		return nil, resp.usage(), ErrEmptyResponse
	}

	p, err := plan.Parse([]byte(content))
	if err != nil {
		return nil, resp.usage(), err
	}
	return p, resp.usage(), nil
}

// ProposeFromAudio sends a captured recording to the audio model and
// parses the forced propose_actions tool call into a Plan. An empty
// model selects the configured audio default.
//
// The payload is validated locally first; an empty, oversize, or
// unsupported-format asset is rejected with ErrInvalidAudio before any
// remote call is made.
func (c *Client) ProposeFromAudio(ctx context.Context, model string, audio []byte, format, contextJSON string) (*plan.Plan, *Usage, error) {
	if err := ValidateAudio(audio, format); err != nil {
		return nil, nil, err
	}
	if model == "" {
		model = c.audioModel
	}

	userContent := []contentPart{{
		Type: "input_audio",
		InputAudio: &inputAudio{
			Data:   base64.StdEncoding.EncodeToString(audio),
			Format: NormalizeFormat(format),
		},
	}}

	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(audioSystemPrompt, contextJSON)},
			{Role: "user", ContentParts: userContent},
		},
		Modalities: []string{"text"},
		Tools:      []tool{proposeActionsTool},
		ToolChoice: &toolChoice{
			Type:     "function",
			Function: toolChoiceFunction{Name: "propose_actions"},
		},
	}

	resp, err := c.completion(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	raw := resp.firstToolArguments("propose_actions")
	if raw == "" {
		// Some replies skip the tool call and answer in text.
		raw = resp.firstContent()
	}
	if raw == "" {
		return nil, resp.usage(), ErrEmptyResponse
	}

	p, err := plan.Parse([]byte(raw))
	if err != nil {
		return nil, resp.usage(), err
	}
	return p, resp.usage(), nil
}

func (c *Client) completion(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", ErrModelCall, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrModelCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelCall, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort drain

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrModelCall, resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrModelCall, err)
	}
	return &decoded, nil
}
