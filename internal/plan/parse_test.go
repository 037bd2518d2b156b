package plan

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParse_Valid(t *testing.T) {
	raw := []byte(`{
		"actions": [
			{"domain": "light", "service": "turn_off", "entity_id": "light.kitchen", "data": {}},
			{"domain": "climate", "service": "set_temperature", "entity_id": "climate.lounge",
			 "data": {"temperature": 21.5, "hvac_mode": "heat", "boost": true}}
		],
		"explanation": "Turning off the kitchen light and warming the lounge."
	}`)

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(p.Actions) != 2 {
		t.Fatalf("len(Actions) = %d, want 2", len(p.Actions))
	}
	if p.Explanation == "" {
		t.Error("Explanation is empty")
	}

	first := p.Actions[0]
	if first.Target() != "light.turn_off" {
		t.Errorf("Target() = %q, want light.turn_off", first.Target())
	}
	if first.EntityID != "light.kitchen" {
		t.Errorf("EntityID = %q, want light.kitchen", first.EntityID)
	}

	data := p.Actions[1].Data
	if n, ok := data["temperature"].Number(); !ok || n != 21.5 {
		t.Errorf("temperature = %v (number=%v), want 21.5", n, ok)
	}
	if data["hvac_mode"].Kind() != KindString || data["hvac_mode"].String() != "heat" {
		t.Errorf("hvac_mode = %v, want string heat", data["hvac_mode"])
	}
	if b, ok := data["boost"].Bool(); !ok || !b {
		t.Errorf("boost = %v (bool=%v), want true", b, ok)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantIssue string
	}{
		{
			name:      "not json",
			raw:       `turn off the light`,
			wantIssue: "not a JSON object",
		},
		{
			name:      "top level array",
			raw:       `[{"domain": "light"}]`,
			wantIssue: "not a JSON object",
		},
		{
			name:      "missing actions",
			raw:       `{"explanation": "done"}`,
			wantIssue: "missing required field: actions",
		},
		{
			name:      "actions null",
			raw:       `{"actions": null, "explanation": "x"}`,
			wantIssue: "missing required field: actions",
		},
		{
			name:      "actions not an array",
			raw:       `{"actions": {"domain": "light"}}`,
			wantIssue: "actions is not an array",
		},
		{
			name:      "action missing domain",
			raw:       `{"actions": [{"service": "turn_off", "entity_id": "light.kitchen"}]}`,
			wantIssue: "missing required field: domain",
		},
		{
			name:      "action missing service",
			raw:       `{"actions": [{"domain": "light", "entity_id": "light.kitchen"}]}`,
			wantIssue: "missing required field: service",
		},
		{
			name:      "action missing entity_id",
			raw:       `{"actions": [{"domain": "light", "service": "turn_off"}]}`,
			wantIssue: "missing required field: entity_id",
		},
		{
			name:      "nested data object",
			raw:       `{"actions": [{"domain": "light", "service": "turn_on", "entity_id": "light.kitchen", "data": {"rgb": {"r": 255}}}]}`,
			wantIssue: "action 0",
		},
		{
			name:      "array in data",
			raw:       `{"actions": [{"domain": "light", "service": "turn_on", "entity_id": "light.kitchen", "data": {"rgb": [255, 0, 0]}}]}`,
			wantIssue: "action 0",
		},
		{
			name:      "null in data",
			raw:       `{"actions": [{"domain": "light", "service": "turn_on", "entity_id": "light.kitchen", "data": {"brightness": null}}]}`,
			wantIssue: "action 0",
		},
		{
			name:      "numeric entity_id",
			raw:       `{"actions": [{"domain": "light", "service": "turn_off", "entity_id": 42}]}`,
			wantIssue: "action 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.raw))
			if p != nil {
				t.Fatal("Parse() returned a partial Plan alongside an error")
			}
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("Parse() error = %v, want ErrSchema", err)
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("error is not a *SchemaError: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantIssue) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantIssue)
			}
		})
	}
}

func TestParse_AggregatesAllIssues(t *testing.T) {
	raw := []byte(`{
		"actions": [
			{"service": "turn_off", "entity_id": "light.kitchen"},
			{"domain": "light", "entity_id": "light.hall"}
		],
		"explanation": 7
	}`)

	_, err := Parse(raw)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Parse() error = %v, want *SchemaError", err)
	}
	if len(schemaErr.Issues) != 3 {
		t.Errorf("len(Issues) = %d, want 3: %v", len(schemaErr.Issues), schemaErr.Issues)
	}
}

func TestParse_EmptyActions(t *testing.T) {
	p, err := Parse([]byte(`{"actions": [], "explanation": "nothing to do"}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(p.Actions) != 0 {
		t.Errorf("len(Actions) = %d, want 0", len(p.Actions))
	}
}

func TestParse_NoStringToNumberCoercion(t *testing.T) {
	raw := []byte(`{"actions": [{"domain": "climate", "service": "set_temperature",
		"entity_id": "climate.lounge", "data": {"temperature": "21"}}]}`)

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	v := p.Actions[0].Data["temperature"]
	if v.Kind() != KindString {
		t.Errorf("Kind() = %v, want KindString", v.Kind())
	}
	if _, ok := v.Number(); ok {
		t.Error("string value reported as number")
	}
}

func TestValue_MarshalRoundtrip(t *testing.T) {
	data := map[string]Value{
		"brightness": NumberValue(128),
		"effect":     StringValue("pulse"),
		"transition": BoolValue(false),
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["brightness"] != float64(128) {
		t.Errorf("brightness = %v, want 128", decoded["brightness"])
	}
	if decoded["effect"] != "pulse" {
		t.Errorf("effect = %v, want pulse", decoded["effect"])
	}
	if decoded["transition"] != false {
		t.Errorf("transition = %v, want false", decoded["transition"])
	}
}
