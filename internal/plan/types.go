package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Plan is a validated model response: an ordered list of device
// commands plus a natural-language explanation. A Plan is never
// mutated after Parse returns it.
type Plan struct {
	Actions     []Action `json:"actions"`
	Explanation string   `json:"explanation"`
}

// Action is one directed device command. Identity is structural;
// duplicate actions in a Plan are both executed.
type Action struct {
	Domain   string           `json:"domain"`
	Service  string           `json:"service"`
	EntityID string           `json:"entity_id"`
	Data     map[string]Value `json:"data,omitempty"`
}

// Target returns the domain.service pair, e.g. "light.turn_off".
func (a Action) Target() string {
	return a.Domain + "." + a.Service
}

// ValueKind identifies the underlying type of a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a typed scalar in an action's data mapping. Only strings,
// numbers, and booleans are representable; nested objects, arrays, and
// null are rejected at parse time. No coercion is applied, a JSON
// string "42" stays a string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// StringValue creates a string Value.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue creates a numeric Value.
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }

// BoolValue creates a boolean Value.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the value's underlying type.
func (v Value) Kind() ValueKind { return v.kind }

// String returns the string form of the value. Numbers and booleans
// are formatted, matching fmt conventions.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// Number returns the numeric value and whether the value is a number.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean value and whether the value is a boolean.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Interface returns the value as the matching Go type, for handing to
// encoders that expect plain dynamic data.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// UnmarshalJSON decodes a scalar JSON value. Objects, arrays, and null
// are schema violations and produce an error.
func (v *Value) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
		return nil
	case '{', '[':
		return fmt.Errorf("nested structures are not allowed in action data")
	case 'n':
		return fmt.Errorf("null is not allowed in action data")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
		return nil
	}
}

// MarshalJSON encodes the value as its underlying scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
