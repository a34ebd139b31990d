package intent

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Raw is the classification object as the model wrote it, before the intent
// token is checked against the closed set.
type Raw struct {
	Intent string `json:"intent"`
	Params Params `json:"params"`
}

// Resolve maps the raw token to an Intent.
func (r *Raw) Resolve() (*Result, error) {
	i, err := Parse(r.Intent)
	if err != nil {
		return nil, err
	}
	return NewResult(i, r.Params), nil
}

// fenceOpen matches a line holding only a fence marker and an optional language tag.
var fenceOpen = regexp.MustCompile("^```[A-Za-z0-9_+.-]*$")

// Extract locates and decodes the single classification object embedded in
// model output. It tolerates a surrounding markdown fence and leading or
// trailing prose; the candidate is everything from the first '{' to the last '}'.
func Extract(text string) (*Raw, error) {
	source := text
	if block, ok := fencedBlock(text); ok && strings.Contains(block, "{") {
		source = block
	}

	start := strings.Index(source, "{")
	end := strings.LastIndex(source, "}")
	if start == -1 || end < start {
		return nil, NoExtractableJSON("no JSON object in model output", nil)
	}
	candidate := source[start : end+1]

	var obj struct {
		Intent *string                    `json:"intent"`
		Params map[string]json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, NoExtractableJSON("invalid JSON object", err)
	}
	if obj.Intent == nil {
		return nil, NoExtractableJSON("object has no intent field", nil)
	}

	params := make(Params, len(obj.Params))
	for k, v := range obj.Params {
		params[k] = paramValue(v)
	}

	return &Raw{Intent: *obj.Intent, Params: params}, nil
}

// fencedBlock returns the body of the first closed code fence in text.
func fencedBlock(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !fenceOpen.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "```" {
				return strings.Join(lines[i+1:j], "\n"), true
			}
		}
		return "", false
	}
	return "", false
}

// paramValue flattens a JSON value to a string. Strings are kept verbatim,
// null becomes "", anything else keeps its compact JSON text.
func paramValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
