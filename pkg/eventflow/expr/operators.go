package expr

import (
	"fmt"
	"strings"
)

var builtinOps = map[string]BinaryOp{
	"==":       compareEquals,
	"!=":       func(l, r any) bool { return !compareEquals(l, r) },
	"<":        func(l, r any) bool { return ToFloat64(l) < ToFloat64(r) },
	">":        func(l, r any) bool { return ToFloat64(l) > ToFloat64(r) },
	"<=":       func(l, r any) bool { return ToFloat64(l) <= ToFloat64(r) },
	">=":       func(l, r any) bool { return ToFloat64(l) >= ToFloat64(r) },
	"contains": compareContains,
}

// compareEquals compares the formatted values. Numbers are compared
// numerically so 5 and 5.0 are equal.
func compareEquals(left, right any) bool {
	if isNumber(left) && isNumber(right) {
		return ToFloat64(left) == ToFloat64(right)
	}
	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func compareContains(left, right any) bool {
	if left == nil {
		return false
	}
	return strings.Contains(fmt.Sprintf("%v", left), fmt.Sprintf("%v", right))
}
