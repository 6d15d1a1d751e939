package expr

import (
	"encoding/json"
	"fmt"
)

// Lookup walks nested maps along path. A flat key containing dots is tried
// first, so both {"args.total": 1} and {"args": {"total": 1}} resolve.
func Lookup(vars map[string]any, path ...string) any {
	if vars == nil || len(path) == 0 {
		return nil
	}
	if len(path) > 1 {
		flat := path[0]
		for _, p := range path[1:] {
			flat += "." + p
		}
		if v, ok := vars[flat]; ok {
			return v
		}
	}

	var cur any = vars
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

// Vars builds the variable map for a (sender, args) pair from their JSON
// form, exposed under "sender" and "args". Values that fail to marshal are
// exposed as nil.
func Vars(sender, args any) map[string]any {
	return map[string]any{
		"sender": jsonValue(sender),
		"args":   jsonValue(args),
	}
}

func jsonValue(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// IsTruthy returns whether a value is truthy.
// nil is false, bools return their value, empty strings are false,
// zero numbers are false, everything else is true.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case int32:
		return val != 0
	case float64:
		return val != 0
	case float32:
		return val != 0
	default:
		return true
	}
}

// ToFloat64 converts a value to float64 for numeric comparison.
// Returns 0 for values that cannot be converted.
func ToFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case string:
		var f float64
		_, _ = fmt.Sscanf(val, "%f", &f)
		return f
	default:
		return 0
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
