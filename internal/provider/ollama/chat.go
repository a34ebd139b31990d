package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shahar-caura/relay/internal/intent"
)

// BuildRequest wraps input in the classification prompt as a single-message,
// non-streaming, non-thinking chat request.
func BuildRequest(model, input string) (*ChatRequest, error) {
	prompt, err := BuildPrompt(input)
	if err != nil {
		return nil, err
	}
	return &ChatRequest{
		Model: model,
		Messages: []ChatMessage{
			{Role: RoleUser, Content: prompt},
		},
		Stream: false,
		Think:  false,
	}, nil
}

// envelope mirrors ChatResponse with pointers so absent fields can be told
// apart from zero values.
type envelope struct {
	Model   string `json:"model"`
	Message *struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
	Error      string `json:"error"`
}

// ParseEnvelope decodes a chat response body and returns the assistant's raw text.
func ParseEnvelope(body []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", intent.MalformedResponse("decoding chat envelope", err)
	}

	if env.Error != "" {
		return "", intent.BackendError(0, env.Error)
	}
	if env.Message == nil {
		return "", intent.MalformedResponse("envelope has no message", nil)
	}
	if env.Message.Content == nil {
		return "", intent.MalformedResponse("envelope has no message.content", nil)
	}
	if !env.Done {
		return "", intent.BackendError(0, "generation incomplete (done=false)")
	}
	if failedReason(env.DoneReason) {
		return "", intent.BackendError(0, fmt.Sprintf("generation failed (done_reason=%s)", env.DoneReason))
	}

	return *env.Message.Content, nil
}

// failedReason reports whether done_reason names an error condition. Ollama
// reports "stop", "length", "load" and "unload" for normal completions.
func failedReason(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "error")
}
