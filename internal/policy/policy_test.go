package policy

import (
	"testing"

	"github.com/hearth-home/hearth-core/internal/plan"
)

type fakeRegistry map[string]bool

func (r fakeRegistry) HasEntity(entityID string) bool { return r[entityID] }

func action(domain, service, entityID string) plan.Action {
	return plan.Action{Domain: domain, Service: service, EntityID: entityID}
}

func TestCheck_UnknownEntity(t *testing.T) {
	p := New(nil, nil)
	registry := fakeRegistry{"light.kitchen": true}

	// unknown-entity wins regardless of domain/service
	tests := []plan.Action{
		action("light", "turn_off", "light.bedroom"),
		action("lock", "unlock", "lock.front_door"),
		action("", "", ""),
	}
	for _, a := range tests {
		d := p.Check(a, registry)
		if d.Allow || d.Reason != ReasonUnknownEntity {
			t.Errorf("Check(%v) = %+v, want deny %s", a, d, ReasonUnknownEntity)
		}
	}
}

func TestCheck_NilRegistry(t *testing.T) {
	p := New(nil, nil)

	d := p.Check(action("light", "turn_off", "light.kitchen"), nil)
	if d.Allow || d.Reason != ReasonUnknownEntity {
		t.Errorf("Check() = %+v, want deny %s", d, ReasonUnknownEntity)
	}
}

func TestCheck_BlockedService(t *testing.T) {
	p := New([]string{"lock.unlock", "alarm_control_panel.disarm"}, nil)
	registry := fakeRegistry{"lock.front_door": true}

	d := p.Check(action("lock", "unlock", "lock.front_door"), registry)
	if d.Allow || d.Reason != ReasonBlockedService {
		t.Errorf("Check() = %+v, want deny %s", d, ReasonBlockedService)
	}
}

func TestCheck_DenyListBeatsAllowList(t *testing.T) {
	p := New([]string{"lock.unlock"}, []string{"lock.unlock"})
	registry := fakeRegistry{"lock.front_door": true}

	d := p.Check(action("lock", "unlock", "lock.front_door"), registry)
	if d.Reason != ReasonBlockedService {
		t.Errorf("Reason = %q, want %s", d.Reason, ReasonBlockedService)
	}
}

func TestCheck_AllowList(t *testing.T) {
	p := New(nil, []string{"light.turn_off", "light.turn_on"})
	registry := fakeRegistry{"light.kitchen": true, "switch.heater": true}

	if d := p.Check(action("light", "turn_off", "light.kitchen"), registry); !d.Allow {
		t.Errorf("allowlisted pair denied: %+v", d)
	}

	d := p.Check(action("switch", "turn_on", "switch.heater"), registry)
	if d.Allow || d.Reason != ReasonNotAllowlisted {
		t.Errorf("Check() = %+v, want deny %s", d, ReasonNotAllowlisted)
	}
}

func TestCheck_EmptyAllowListPermitsAll(t *testing.T) {
	p := New(nil, nil)
	registry := fakeRegistry{"switch.heater": true}

	if d := p.Check(action("switch", "turn_on", "switch.heater"), registry); !d.Allow {
		t.Errorf("Check() = %+v, want allow", d)
	}
}

func TestCheck_CaseInsensitivePairs(t *testing.T) {
	p := New([]string{"Lock.Unlock"}, nil)
	registry := fakeRegistry{"lock.front_door": true}

	d := p.Check(action("LOCK", "UNLOCK", "lock.front_door"), registry)
	if d.Reason != ReasonBlockedService {
		t.Errorf("Reason = %q, want %s", d.Reason, ReasonBlockedService)
	}
}

func TestSetRules_HotReload(t *testing.T) {
	p := New(nil, nil)
	registry := fakeRegistry{"light.kitchen": true}
	a := action("light", "turn_off", "light.kitchen")

	if d := p.Check(a, registry); !d.Allow {
		t.Fatalf("Check() before reload = %+v, want allow", d)
	}

	p.SetRules([]string{"light.turn_off"}, nil)

	d := p.Check(a, registry)
	if d.Allow || d.Reason != ReasonBlockedService {
		t.Errorf("Check() after reload = %+v, want deny %s", d, ReasonBlockedService)
	}
}
