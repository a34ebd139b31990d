package intent

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtract_FencedJSON(t *testing.T) {
	text := "```json\n{\"intent\":\"send_email\",\"params\":{\"recipient\":\"Carlos\",\"message\":\"About the delay\"}}\n```"

	raw, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := raw.Resolve()
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if r.Intent != SendEmail {
		t.Fatalf("intent = %q, want %q", r.Intent, SendEmail)
	}
	want := Params{"recipient": "Carlos", "message": "About the delay"}
	if !reflect.DeepEqual(r.Params, want) {
		t.Fatalf("params = %v, want %v", r.Params, want)
	}
}

func TestExtract_AllIntents(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"send email bare", `{"intent":"send_email","params":{"recipient":"Turtle"}}`, SendEmail},
		{"schedule meeting fenced", "```json\n{\"intent\":\"schedule_meeting\",\"params\":{\"recipient\":\"John\"}}\n```", ScheduleMeeting},
		{"no action bare fence", "```\n{\"intent\":\"no_action\",\"params\":{}}\n```", NoAction},
		{"pretty printed", "{\n  \"intent\": \"no_action\",\n  \"params\": {}\n}\n", NoAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Extract(tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			r, err := raw.Resolve()
			if err != nil {
				t.Fatalf("unexpected resolve error: %v", err)
			}
			if r.Intent != tt.want {
				t.Fatalf("intent = %q, want %q", r.Intent, tt.want)
			}
		})
	}
}

func TestExtract_SurroundingProse(t *testing.T) {
	raw, err := Extract(`Sure! Here is the result: {"intent":"no_action","params":{}} Hope that helps!`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := raw.Resolve()
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if r.Intent != NoAction {
		t.Fatalf("intent = %q, want %q", r.Intent, NoAction)
	}
	if r.Params == nil || len(r.Params) != 0 {
		t.Fatalf("expected empty non-nil params, got %#v", r.Params)
	}
}

func TestExtract_ProseAroundFence(t *testing.T) {
	text := "The user wants to send an email.\n\n```json\n{\"intent\":\"send_email\",\"params\":{\"recipient\":\"Ana\"}}\n```\n\nLet me know if {you} need more."

	raw, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Intent != "send_email" || raw.Params["recipient"] != "Ana" {
		t.Fatalf("unexpected raw: %+v", raw)
	}
}

func TestExtract_MissingParamsDefaultsEmpty(t *testing.T) {
	raw, err := Extract(`{"intent":"no_action"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Params == nil || len(raw.Params) != 0 {
		t.Fatalf("expected empty params, got %#v", raw.Params)
	}
}

func TestExtract_ParamValues(t *testing.T) {
	raw, err := Extract(`{"intent":"schedule_meeting","params":{"recipient":null,"attendees":3,"urgent":true,"when":{"day":"friday"},"message":"ok"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Params{
		"recipient": "",
		"attendees": "3",
		"urgent":    "true",
		"when":      `{"day":"friday"}`,
		"message":   "ok",
	}
	if !reflect.DeepEqual(raw.Params, want) {
		t.Fatalf("params = %v, want %v", raw.Params, want)
	}
}

func TestExtract_UnicodeParams(t *testing.T) {
	raw, err := Extract("```json\n{\"intent\":\"send_email\",\"params\":{\"recipient\":\"用户@example.com\",\"message\":\"Hello 世界! 🌍\"}}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := raw.Params.Recipient(); got != "用户@example.com" {
		t.Fatalf("recipient = %q", got)
	}
	if got, _ := raw.Params.Message(); got != "Hello 世界! 🌍" {
		t.Fatalf("message = %q", got)
	}
}

func TestExtract_NoJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain prose", "This is not JSON content"},
		{"empty", ""},
		{"only open brace", "here { it starts"},
		{"reversed braces", "} before {"},
		{"unclosed object in fence", "```json\n{\n  \"intent\": \"send_email\",\n  \"params\": {\n    \"recipient\": \"test@example.com\"\n```"},
		{"garbled object", `{"intent": send_email}`},
		{"two objects", `{"intent":"no_action"} and also {"intent":"send_email"}`},
		{"no intent field", `{"action":"send_email"}`},
		{"intent not a string", `{"intent":42,"params":{}}`},
		{"params not an object", `{"intent":"no_action","params":"none"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.text)
			if !errors.Is(err, ErrNoExtractableJSON) {
				t.Fatalf("expected ErrNoExtractableJSON, got: %v", err)
			}
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	text := "```json\n{\"intent\":\"send_email\",\"params\":{\"recipient\":\"Carlos\",\"message\":\"About the delay\"}}\n```"

	first, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Extract(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
}

func TestResolve_UnrecognizedIntent(t *testing.T) {
	raw, err := Extract(`{"intent":"do_something_else","params":{}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = raw.Resolve()
	if !errors.Is(err, ErrUnrecognizedIntent) {
		t.Fatalf("expected ErrUnrecognizedIntent, got: %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Token != "do_something_else" {
		t.Fatalf("expected token do_something_else, got: %#v", err)
	}
}

func TestFencedBlock(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"crlf", "```json\r\n{\"a\":1}\r\n```\r\n", "{\"a\":1}\r", true},
		{"unclosed", "```json\n{\"a\":1}\n", "", false},
		{"inline fence is not a fence line", "```json {\"a\":1} ```", "", false},
		{"no fence", `{"a":1}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fencedBlock(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("fencedBlock(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
