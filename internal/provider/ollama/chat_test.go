package ollama

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shahar-caura/relay/internal/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest("llama3.2", "Send an email to Carlos about the delay")
	require.NoError(t, err)

	assert.Equal(t, "llama3.2", req.Model)
	assert.False(t, req.Stream)
	assert.False(t, req.Think)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Send an email to Carlos about the delay")
}

func TestBuildRequest_WireFormat(t *testing.T) {
	req, err := BuildRequest("qwen3", "hello")
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "qwen3", wire["model"])
	assert.Equal(t, false, wire["stream"])
	assert.Equal(t, false, wire["think"])

	msgs, ok := wire["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.NotEmpty(t, msg["content"])
}

func TestBuildRequest_Deterministic(t *testing.T) {
	a, err := BuildRequest("m", "schedule a sync with Ana")
	require.NoError(t, err)
	b, err := BuildRequest("m", "schedule a sync with Ana")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildRequest_EmptyInput(t *testing.T) {
	req, err := BuildRequest("m", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(req.Messages[0].Content), "## User request"))
}

func TestBuildPrompt_ContainsEveryIntentExample(t *testing.T) {
	prompt, err := BuildPrompt("anything")
	require.NoError(t, err)

	for _, i := range intent.All() {
		example := `{"intent":"` + string(i) + `"`
		assert.Contains(t, prompt, example, "missing few-shot example for %s", i)
	}
}

func TestBuildPrompt_ExamplesExtract(t *testing.T) {
	prompt, err := BuildPrompt("anything")
	require.NoError(t, err)

	// Every example line in the prompt must itself be an extractable classification.
	var found int
	for _, line := range strings.Split(prompt, "\n") {
		if !strings.HasPrefix(line, `{"intent":"`) {
			continue
		}
		raw, err := intent.Extract(line)
		require.NoError(t, err, line)
		_, err = raw.Resolve()
		require.NoError(t, err, line)
		found++
	}
	assert.Equal(t, 3, found)
}

func TestParseEnvelope_HappyPath(t *testing.T) {
	body := `{
  "model": "llama3.2",
  "created_at": "2025-06-01T10:00:00.000000Z",
  "message": {"role": "assistant", "content": "{\"intent\":\"no_action\",\"params\":{}}"},
  "done": true,
  "done_reason": "stop",
  "total_duration": 5191566416,
  "load_duration": 2154458,
  "prompt_eval_count": 26,
  "prompt_eval_duration": 383809000,
  "eval_count": 298,
  "eval_duration": 4799921000
}`
	content, err := ParseEnvelope([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"no_action","params":{}}`, content)

	var full ChatResponse
	require.NoError(t, json.Unmarshal([]byte(body), &full))
	assert.Equal(t, RoleAssistant, full.Message.Role)
	assert.Equal(t, 298, full.EvalCount)
}

func TestParseEnvelope_LengthIsNotAFailure(t *testing.T) {
	content, err := ParseEnvelope([]byte(`{"message":{"role":"assistant","content":"{}"},"done":true,"done_reason":"length"}`))
	require.NoError(t, err)
	assert.Equal(t, "{}", content)
}

func TestParseEnvelope_EmptyContentIsPresent(t *testing.T) {
	content, err := ParseEnvelope([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
	require.NoError(t, err)
	assert.Equal(t, "", content)
}

func TestParseEnvelope_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>bad gateway</html>"},
		{"array", `[]`},
		{"null", `null`},
		{"no message", `{"done":true}`},
		{"incomplete without message", `{"done":false}`},
		{"message wrong shape", `{"message":"hi","done":true}`},
		{"no content", `{"message":{"role":"assistant"},"done":true}`},
		{"content wrong type", `{"message":{"role":"assistant","content":42},"done":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, intent.ErrMalformedResponse), "got: %v", err)
		})
	}
}

func TestParseEnvelope_BackendFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"incomplete", `{"message":{"role":"assistant","content":"{\"intent\""},"done":false}`, "done=false"},
		{"done missing", `{"message":{"role":"assistant","content":"x"}}`, "done=false"},
		{"error reason", `{"message":{"role":"assistant","content":"x"},"done":true,"done_reason":"error"}`, "done_reason=error"},
		{"error field", `{"error":"model 'nope' not found"}`, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, intent.ErrBackend), "got: %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
