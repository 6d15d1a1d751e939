package expr

type node interface {
	eval(vars map[string]any) any
}

type literalNode struct{ v any }

func (n literalNode) eval(map[string]any) any { return n.v }

type identNode struct{ path []string }

func (n identNode) eval(vars map[string]any) any {
	return Lookup(vars, n.path...)
}

type notNode struct{ inner node }

func (n notNode) eval(vars map[string]any) any {
	return !IsTruthy(n.inner.eval(vars))
}

type andNode struct{ left, right node }

func (n andNode) eval(vars map[string]any) any {
	return IsTruthy(n.left.eval(vars)) && IsTruthy(n.right.eval(vars))
}

type orNode struct{ left, right node }

func (n orNode) eval(vars map[string]any) any {
	return IsTruthy(n.left.eval(vars)) || IsTruthy(n.right.eval(vars))
}

type compareNode struct {
	op          BinaryOp
	left, right node
}

func (n compareNode) eval(vars map[string]any) any {
	return n.op(n.left.eval(vars), n.right.eval(vars))
}
