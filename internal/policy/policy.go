package policy

import (
	"strings"
	"sync"

	"github.com/hearth-home/hearth-core/internal/plan"
)

// Deny reasons, in evaluation priority order.
const (
	ReasonUnknownEntity  = "unknown-entity"
	ReasonBlockedService = "blocked-service"
	ReasonNotAllowlisted = "not-allowlisted"
)

// Registry is the read-only view of known entities a check runs
// against. Satisfied by homeassistant.Snapshot.
type Registry interface {
	HasEntity(entityID string) bool
}

// Decision is the outcome of one policy check.
type Decision struct {
	Allow  bool
	Reason string
}

// Allow is the decision for a permitted action.
var Allow = Decision{Allow: true}

// Deny builds a deny decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Policy decides whether a single action may reach device execution.
//
// Rules are held behind a lock and re-read on every Check, so a
// hot-reload between two actions of the same plan takes effect
// immediately. Checks are pure: no external calls, no caching.
type Policy struct {
	mu        sync.RWMutex
	denyList  map[string]struct{}
	allowList map[string]struct{}
}

// New creates a Policy from deny and allow lists of domain.service
// pairs. An empty allow list means every pair not denied is permitted.
func New(denyServices, allowServices []string) *Policy {
	p := &Policy{}
	p.SetRules(denyServices, allowServices)
	return p
}

// SetRules replaces both rule lists atomically. Safe to call while
// checks are running; in-flight checks see either the old or the new
// rules, never a mix.
func (p *Policy) SetRules(denyServices, allowServices []string) {
	deny := normalizeSet(denyServices)
	allow := normalizeSet(allowServices)

	p.mu.Lock()
	p.denyList = deny
	p.allowList = allow
	p.mu.Unlock()
}

// Check evaluates one action against the registry snapshot and the
// current rules. Deny conditions in priority order: the entity is not
// in the registry, the domain.service pair is deny-listed, a non-empty
// allow list does not contain the pair.
func (p *Policy) Check(action plan.Action, registry Registry) Decision {
	if registry == nil || !registry.HasEntity(action.EntityID) {
		return Deny(ReasonUnknownEntity)
	}

	target := strings.ToLower(action.Target())

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, blocked := p.denyList[target]; blocked {
		return Deny(ReasonBlockedService)
	}
	if len(p.allowList) > 0 {
		if _, ok := p.allowList[target]; !ok {
			return Deny(ReasonNotAllowlisted)
		}
	}
	return Allow
}

func normalizeSet(pairs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(pairs))
	for _, pair := range pairs {
		pair = strings.ToLower(strings.TrimSpace(pair))
		if pair == "" {
			continue
		}
		set[pair] = struct{}{}
	}
	return set
}
