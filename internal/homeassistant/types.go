package homeassistant

import "strings"

// Entity is one entry from the Home Assistant state registry.
type Entity struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Domain returns the entity's domain, the part before the first dot.
func (e Entity) Domain() string {
	if i := strings.IndexByte(e.EntityID, '.'); i >= 0 {
		return e.EntityID[:i]
	}
	return e.EntityID
}

// Name returns the friendly name when set, otherwise the entity ID.
func (e Entity) Name() string {
	if name, ok := e.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}
	return e.EntityID
}

// Snapshot is a read-only view of the device registry, fetched fresh
// per request. It backs both context building and policy checks.
type Snapshot struct {
	Entities []Entity
	// Services maps domain to the service names it exposes.
	Services map[string][]string

	entityIndex map[string]struct{}
}

// NewSnapshot builds a snapshot with its entity lookup index
// populated.
func NewSnapshot(entities []Entity, services map[string][]string) *Snapshot {
	s := &Snapshot{Entities: entities, Services: services}
	s.buildIndex()
	return s
}

// HasEntity reports whether the entity ID exists in the snapshot.
// Implements policy.Registry.
func (s *Snapshot) HasEntity(entityID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.entityIndex[entityID]
	return ok
}

// buildIndex populates the entity lookup index after fetch.
func (s *Snapshot) buildIndex() {
	s.entityIndex = make(map[string]struct{}, len(s.Entities))
	for _, e := range s.Entities {
		s.entityIndex[e.EntityID] = struct{}{}
	}
}
