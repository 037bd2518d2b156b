package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hearth-home/hearth-core/internal/homeassistant"
)

// Limits for the candidate pre-pass. The router model sees a truncated
// registry summary and returns short candidate lists.
const (
	maxExampleEntitiesPerDomain = 12
	maxExampleServicesPerDomain = 20
)

const routerSystemPrompt = `You are a cheap routing model for Home Assistant.
Task: select a SMALL subset of relevant entity_ids and domain.services for the user command.
Return STRICT JSON only with keys:
{ "candidate_entities": ["domain.entity", ...], "candidate_services": ["domain.service", ...] }
Rules:
- Only select items that plausibly exist given the summary.
- Keep lists short (<= 20 each).
- Prefer precision but include enough to complete the task.
- No extra text, JSON only.`

type registrySummary struct {
	DomainsPresent          []string            `json:"domains_present"`
	ExampleEntitiesByDomain map[string][]string `json:"example_entities_by_domain"`
	ExampleServicesByDomain map[string][]string `json:"example_services_by_domain"`
}

// ReduceCandidates runs the cheap router model over a truncated
// registry summary and returns candidate entity IDs and
// domain.service pairs for the user command.
//
// Candidates that don't exist in the snapshot are dropped. Any failure
// is returned to the caller, which falls back to the full context; the
// pre-pass must never break the main pathway.
func (c *Client) ReduceCandidates(ctx context.Context, userText string, snap *homeassistant.Snapshot) ([]string, []string, error) {
	payload, err := json.Marshal(struct {
		UserCommand string          `json:"user_command"`
		Summary     registrySummary `json:"ha_summary"`
	}{userText, summarize(snap)})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: encoding summary: %w", ErrModelCall, err)
	}

	req := chatRequest{
		Model: c.routerModel,
		Messages: []chatMessage{
			{Role: "system", Content: routerSystemPrompt},
			{Role: "user", Content: string(payload)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	resp, err := c.completion(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	content := resp.firstContent()
	if content == "" {
		return nil, nil, ErrEmptyResponse
	}

	var reply struct {
		CandidateEntities []string `json:"candidate_entities"`
		CandidateServices []string `json:"candidate_services"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, nil, fmt.Errorf("%w: router reply is not JSON: %w", ErrModelCall, err)
	}

	entities := make([]string, 0, len(reply.CandidateEntities))
	for _, eid := range dedupe(reply.CandidateEntities) {
		if snap.HasEntity(eid) {
			entities = append(entities, eid)
		}
	}
	return entities, dedupe(reply.CandidateServices), nil
}

// BuildContextFiltered encodes only the candidate entities, using the
// same per-entity encoding as BuildContext. Services are passed whole;
// the pre-pass narrows entities, the main model still needs the
// service surface.
func BuildContextFiltered(snap *homeassistant.Snapshot, candidateEntities []string) string {
	if snap == nil || len(candidateEntities) == 0 {
		return BuildContext(snap)
	}

	keep := make(map[string]struct{}, len(candidateEntities))
	for _, eid := range candidateEntities {
		keep[eid] = struct{}{}
	}

	filtered := &homeassistant.Snapshot{Services: snap.Services}
	for _, entity := range snap.Entities {
		if _, ok := keep[entity.EntityID]; ok {
			filtered.Entities = append(filtered.Entities, entity)
		}
	}
	return BuildContext(filtered)
}

func summarize(snap *homeassistant.Snapshot) registrySummary {
	summary := registrySummary{
		ExampleEntitiesByDomain: map[string][]string{},
		ExampleServicesByDomain: map[string][]string{},
	}
	if snap == nil {
		return summary
	}

	domains := map[string]struct{}{}
	for _, entity := range snap.Entities {
		domain := entity.Domain()
		domains[domain] = struct{}{}
		bucket := summary.ExampleEntitiesByDomain[domain]
		if len(bucket) < maxExampleEntitiesPerDomain {
			summary.ExampleEntitiesByDomain[domain] = append(bucket, entity.EntityID)
		}
	}
	for domain, services := range snap.Services {
		domains[domain] = struct{}{}
		if len(services) > maxExampleServicesPerDomain {
			services = services[:maxExampleServicesPerDomain]
		}
		summary.ExampleServicesByDomain[domain] = services
	}

	for domain := range domains {
		summary.DomainsPresent = append(summary.DomainsPresent, domain)
	}
	sort.Strings(summary.DomainsPresent)
	return summary
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
