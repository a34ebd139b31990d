package intent

import (
	"encoding/json"
	"fmt"
)

// Intent is one member of the closed set of classification outcomes.
type Intent string

const (
	SendEmail       Intent = "send_email"
	ScheduleMeeting Intent = "schedule_meeting"
	NoAction        Intent = "no_action"
)

// All returns every recognized intent in declaration order.
func All() []Intent {
	return []Intent{SendEmail, ScheduleMeeting, NoAction}
}

// Parse maps a wire token to an Intent. Matching is exact and case-sensitive;
// any other token yields an UnrecognizedIntent error.
func Parse(token string) (Intent, error) {
	switch Intent(token) {
	case SendEmail, ScheduleMeeting, NoAction:
		return Intent(token), nil
	default:
		return "", UnrecognizedIntent(token)
	}
}

// Valid reports whether i is a member of the closed set.
func (i Intent) Valid() bool {
	_, err := Parse(string(i))
	return err == nil
}

func (i Intent) String() string { return string(i) }

// UnmarshalJSON rejects tokens outside the closed set.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("intent must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Params holds the arguments the model extracted, keyed by name.
type Params map[string]string

// Recipient returns the "recipient" parameter, if present.
func (p Params) Recipient() (string, bool) {
	v, ok := p["recipient"]
	return v, ok
}

// Message returns the "message" parameter, if present.
func (p Params) Message() (string, bool) {
	v, ok := p["message"]
	return v, ok
}

// Result is the typed outcome of one classification.
type Result struct {
	Intent Intent `json:"intent"`
	Params Params `json:"params"`
}

// NewResult returns a Result with a non-nil params map.
func NewResult(i Intent, params Params) *Result {
	if params == nil {
		params = Params{}
	}
	return &Result{Intent: i, Params: params}
}
