package llm

import "encoding/json"

// Wire types for the OpenAI-compatible chat completions API.

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Modalities     []string        `json:"modalities,omitempty"`
	Tools          []tool          `json:"tools,omitempty"`
	ToolChoice     *toolChoice     `json:"tool_choice,omitempty"`
}

// chatMessage carries either a plain string content or a list of
// multimodal parts, never both.
type chatMessage struct {
	Role         string        `json:"role"`
	Content      string        `json:"-"`
	ContentParts []contentPart `json:"-"`
}

func (m chatMessage) MarshalJSON() ([]byte, error) {
	if len(m.ContentParts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []contentPart `json:"content"`
		}{m.Role, m.ContentParts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Content})
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolChoice struct {
	Type     string             `json:"type"`
	Function toolChoiceFunction `json:"function"`
}

type toolChoiceFunction struct {
	Name string `json:"name"`
}

// proposeActionsTool is the function schema forced on the audio model.
// Its arguments shape matches the Plan schema exactly.
var proposeActionsTool = tool{
	Type: "function",
	Function: toolFunction{
		Name: "propose_actions",
		Description: "Propose one or more Home Assistant service calls to fulfil the " +
			"user's request, plus a short human-readable explanation.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"actions": {
					"type": "array",
					"description": "List of service calls to execute.",
					"items": {
						"type": "object",
						"properties": {
							"domain": {"type": "string", "description": "Domain, e.g. 'light', 'switch'."},
							"service": {"type": "string", "description": "Service name, e.g. 'turn_on'."},
							"entity_id": {"type": "string", "description": "Target entity."},
							"data": {
								"type": "object",
								"description": "Service data. ALL parameters go here: brightness (0-255), color_temp, transition, etc."
							}
						},
						"required": ["domain", "service", "entity_id", "data"],
						"additionalProperties": false
					}
				},
				"explanation": {"type": "string", "description": "Human-readable summary of what will happen."}
			},
			"required": ["actions", "explanation"]
		}`),
	},
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		TotalTokens         int `json:"total_tokens"`
		PromptTokensDetails *struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
}

func (r *chatResponse) firstContent() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

func (r *chatResponse) firstToolArguments(name string) string {
	if len(r.Choices) == 0 {
		return ""
	}
	for _, call := range r.Choices[0].Message.ToolCalls {
		if call.Function.Name == name {
			return call.Function.Arguments
		}
	}
	return ""
}

func (r *chatResponse) usage() *Usage {
	if r.Usage == nil {
		return nil
	}
	u := &Usage{
		PromptTokens:     r.Usage.PromptTokens,
		CompletionTokens: r.Usage.CompletionTokens,
		TotalTokens:      r.Usage.TotalTokens,
	}
	if r.Usage.PromptTokensDetails != nil {
		u.CachedTokens = r.Usage.PromptTokensDetails.CachedTokens
	}
	return u
}
