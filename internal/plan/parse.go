package plan

import (
	"encoding/json"
	"fmt"
)

// Parse validates raw model output against the action schema and
// returns a Plan.
//
// All violations in the payload are collected into a single
// *SchemaError; no partial Plan is ever returned. The payload must be
// a JSON object with an "actions" array, each element carrying
// non-empty domain, service, and entity_id strings and an optional
// flat data mapping of scalar values.
func Parse(raw []byte) (*Plan, error) {
	var envelope struct {
		Actions     json.RawMessage `json:"actions"`
		Explanation json.RawMessage `json:"explanation"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, newSchemaError([]string{fmt.Sprintf("response is not a JSON object: %v", err)})
	}

	var issues []string

	explanation := ""
	if envelope.Explanation != nil {
		if err := json.Unmarshal(envelope.Explanation, &explanation); err != nil {
			issues = append(issues, "explanation is not a string")
		}
	}

	// json.RawMessage keeps a literal null, which would otherwise
	// decode into an empty slice below.
	if envelope.Actions == nil || string(envelope.Actions) == "null" {
		issues = append(issues, "missing required field: actions")
		return nil, newSchemaError(issues)
	}

	var rawActions []json.RawMessage
	if err := json.Unmarshal(envelope.Actions, &rawActions); err != nil {
		issues = append(issues, "actions is not an array")
		return nil, newSchemaError(issues)
	}

	actions := make([]Action, 0, len(rawActions))
	for i, rawAction := range rawActions {
		action, actionIssues := parseAction(i, rawAction)
		if len(actionIssues) > 0 {
			issues = append(issues, actionIssues...)
			continue
		}
		actions = append(actions, action)
	}

	if len(issues) > 0 {
		return nil, newSchemaError(issues)
	}

	return &Plan{Actions: actions, Explanation: explanation}, nil
}

func parseAction(index int, raw json.RawMessage) (Action, []string) {
	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		return Action{}, []string{fmt.Sprintf("action %d: %v", index, err)}
	}

	var issues []string
	if action.Domain == "" {
		issues = append(issues, fmt.Sprintf("action %d: missing required field: domain", index))
	}
	if action.Service == "" {
		issues = append(issues, fmt.Sprintf("action %d: missing required field: service", index))
	}
	if action.EntityID == "" {
		issues = append(issues, fmt.Sprintf("action %d: missing required field: entity_id", index))
	}
	return action, issues
}
