package ollama

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// classifyTemplate is rendered with Go template syntax; only {{.input}} is substituted.
const classifyTemplate = `You are an intent classifier for a personal assistant.
Given a user request, decide which single action the user wants and extract its parameters.

## Intents

- send_email:       the user wants an email sent. Params: "recipient", "message".
- schedule_meeting: the user wants a meeting scheduled. Params: "recipient", "message".
- no_action:        anything else. Params: {}.

## Examples

Request: Send an email to Carlos saying the report will be late.
{"intent":"send_email","params":{"recipient":"Carlos","message":"The report will be late."}}

Request: Set up a meeting with Dana tomorrow at 10 to review the budget.
{"intent":"schedule_meeting","params":{"recipient":"Dana","message":"Review the budget tomorrow at 10."}}

Request: What's the capital of France?
{"intent":"no_action","params":{}}

## Rules

1. Use exactly one of the intent tokens listed above, spelled exactly as shown.
2. Keep parameter values in the language of the request.
3. Return ONLY one JSON object. No markdown, no code fences, no explanation.

## Output format

{"intent": "<token>", "params": {"<name>": "<value>"}}

## User request

{{.input}}
`

var classifyPrompt = prompts.NewPromptTemplate(classifyTemplate, []string{"input"})

// BuildPrompt renders the classification prompt around input.
func BuildPrompt(input string) (string, error) {
	out, err := classifyPrompt.Format(map[string]any{"input": input})
	if err != nil {
		return "", fmt.Errorf("ollama: rendering prompt: %w", err)
	}
	return out, nil
}
