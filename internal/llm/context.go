package llm

import (
	"encoding/json"
	"regexp"

	"github.com/hearth-home/hearth-core/internal/homeassistant"
)

// Domains whose entities never enter the model context.
var excludedStateDomains = map[string]struct{}{
	"zone":   {},
	"update": {},
	"sun":    {},
	"event":  {},
}

// Entity ID patterns masked from the context: integration-internal
// helpers and device configuration entities the model must not touch.
var excludedEntityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`.*\.hearth_.*`),
	regexp.MustCompile(`.*\.backup_.*`),
	regexp.MustCompile(`.*_identify(_[0-9]+)?$`),
	regexp.MustCompile(`.*_firmware(_[0-9]+)?$`),
	regexp.MustCompile(`.*_transition_time(_[0-9]+)?$`),
	regexp.MustCompile(`.*_on_level(_[0-9]+)?$`),
	regexp.MustCompile(`.*_start_up_.*`),
	regexp.MustCompile(`.*_behavior(_[0-9]+)?$`),
	regexp.MustCompile(`.*_current_level(_[0-9]+)?$`),
	regexp.MustCompile(`.*_color_temperature(_[0-9]+)?$`),
	regexp.MustCompile(`.*_delay_time(_[0-9]+)?$`),
}

// compactEntity is the abbreviated per-entity encoding sent to the
// model. Short keys keep the prompt small: e=entity_id, n=name,
// d=domain, s=state, b=brightness, cm=color_modes, c=supports_color,
// pos=position, area=room.
type compactEntity struct {
	E    string      `json:"e"`
	N    string      `json:"n"`
	D    string      `json:"d"`
	S    string      `json:"s"`
	B    interface{} `json:"b,omitempty"`
	CM   interface{} `json:"cm,omitempty"`
	C    int         `json:"c,omitempty"`
	Pos  interface{} `json:"pos,omitempty"`
	Mode interface{} `json:"mode,omitempty"`
	CurT interface{} `json:"cur_t,omitempty"`
	TgtT interface{} `json:"tgt_t,omitempty"`
	DC   interface{} `json:"dc,omitempty"`
	Area string      `json:"area,omitempty"`
}

type compactContext struct {
	Entities []compactEntity     `json:"entities"`
	Services map[string][]string `json:"services"`
}

// BuildContext encodes a registry snapshot as the compact JSON context
// embedded in model prompts.
//
// Both the text and audio pathways call this one function; the output
// is deterministic for a given snapshot, so two calls in the same
// request produce byte-identical context. Excluded domains, masked
// entity patterns, and sun.sun are filtered out.
func BuildContext(snap *homeassistant.Snapshot) string {
	ctx := compactContext{
		Entities: []compactEntity{},
		Services: map[string][]string{},
	}
	if snap == nil {
		encoded, _ := json.Marshal(ctx)
		return string(encoded)
	}

	for _, entity := range snap.Entities {
		if excludeEntity(entity.EntityID, entity.Domain()) {
			continue
		}
		ctx.Entities = append(ctx.Entities, compactEntry(entity))
	}
	if snap.Services != nil {
		ctx.Services = snap.Services
	}

	encoded, _ := json.Marshal(ctx)
	return string(encoded)
}

func excludeEntity(entityID, domain string) bool {
	if _, ok := excludedStateDomains[domain]; ok {
		return true
	}
	if entityID == "sun.sun" {
		return true
	}
	for _, pattern := range excludedEntityPatterns {
		if pattern.MatchString(entityID) {
			return true
		}
	}
	return false
}

func compactEntry(entity homeassistant.Entity) compactEntity {
	attrs := entity.Attributes
	c := compactEntity{
		E: entity.EntityID,
		N: entity.Name(),
		D: entity.Domain(),
		S: entity.State,
	}

	switch entity.Domain() {
	case "light":
		c.B = attrs["brightness"]
		if cm, ok := attrs["supported_color_modes"].([]interface{}); ok && len(cm) > 0 {
			c.CM = cm
			if supportsColor(cm) {
				c.C = 1
			}
		}
	case "cover":
		c.Pos = attrs["current_position"]
	case "climate":
		c.Mode = attrs["hvac_mode"]
		c.CurT = attrs["current_temperature"]
		c.TgtT = attrs["temperature"]
	case "binary_sensor":
		if dc, ok := attrs["device_class"]; ok {
			c.DC = dc
		}
	}

	if area, ok := attrs["area"].(string); ok {
		c.Area = area
	}
	return c
}

func supportsColor(modes []interface{}) bool {
	for _, m := range modes {
		switch m {
		case "color", "hs", "rgb", "xy":
			return true
		}
	}
	return false
}
